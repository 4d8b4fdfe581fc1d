// Package crawler implements the bounded concurrent topology traversal
// (C6): a worker pool of fixed size dequeues PendingTargets, runs the
// fingerprint+neighbor-collect sequence against each, and enqueues newly
// discovered peers until the pending queue is quiescent, max_devices is
// reached, or the caller cancels.
package crawler

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/topolens/topolens/pkg/crawlerrors"
	"github.com/topolens/topolens/pkg/fingerprint"
	"github.com/topolens/topolens/pkg/neighbor"
	"github.com/topolens/topolens/pkg/sshsession"
	"github.com/topolens/topolens/pkg/template"
	"github.com/topolens/topolens/pkg/util"
)

// Config wires a single discovery run, per §4.6.
type Config struct {
	RunID            string
	SeedAddress      string
	Primary          Credentials
	Alternate        *Credentials
	MaxDevices       int
	TimeoutPerDevice time.Duration
	ExcludeSubstrs   []string
	MaxWorkers       int
	Blacklist        fingerprint.BlacklistFunc
	CaptureDebug     bool
}

// Dialer opens an authenticated, shell-ready Session against addr. The
// default wraps pkg/sshsession.Dial; tests inject a fake.
type Dialer func(addr string, creds Credentials, timeout time.Duration) (sshsession.Session, error)

// DefaultDialer dials a real SSH session with no host-key verification,
// matching §4.3's "no key lookup by default" requirement.
func DefaultDialer(addr string, creds Credentials, timeout time.Duration) (sshsession.Session, error) {
	client, err := sshsession.Dial(addr, creds.Username, creds.Password, nil, timeout)
	if err != nil {
		return nil, err
	}
	if err := client.OpenShell(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Crawler owns all shared state for a single discovery run.
type Crawler struct {
	cfg    Config
	engine *template.Engine
	dial   Dialer
	onEvent func(ProgressEvent)

	mu          sync.Mutex
	cond        *sync.Cond
	pending     []PendingTarget
	pendingAddr map[string]bool
	visited     map[string]bool
	failed      map[string]bool
	unreachable map[string]bool
	networkMap  map[string]*Device
	active      int
	stats       Stats
	debugRecords map[string]DebugRecord
}

// New builds a Crawler. onEvent may be nil to discard progress events.
func New(cfg Config, engine *template.Engine, dial Dialer, onEvent func(ProgressEvent)) *Crawler {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.TimeoutPerDevice <= 0 {
		cfg.TimeoutPerDevice = 30 * time.Second
	}
	if dial == nil {
		dial = DefaultDialer
	}
	c := &Crawler{
		cfg:         cfg,
		engine:      engine,
		dial:        dial,
		onEvent:     onEvent,
		pendingAddr: map[string]bool{},
		visited:     map[string]bool{},
		failed:      map[string]bool{},
		unreachable: map[string]bool{},
		networkMap:  map[string]*Device{},
	}
	if cfg.CaptureDebug {
		c.debugRecords = map[string]DebugRecord{}
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// DebugRecords returns the captured per-device command output, keyed by
// hostname. Empty unless the run's Config.CaptureDebug was set.
func (c *Crawler) DebugRecords() map[string]DebugRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]DebugRecord, len(c.debugRecords))
	for k, v := range c.debugRecords {
		out[k] = v
	}
	return out
}

// Run drives the crawl to quiescence, the max_devices bound, or
// cancellation, and returns the accumulated network map and final stats.
func (c *Crawler) Run(ctx context.Context) (map[string]*Device, Stats) {
	c.enqueue(PendingTarget{Address: c.cfg.SeedAddress, Credentials: c.cfg.Primary})

	// The worker pool's fixed size is the concurrency bound from §4.6;
	// errgroup.WithContext gives every worker a shared, cancellable
	// context and collapses the pool's completion into one Wait() call.
	g, gctx := errgroup.WithContext(ctx)

	stop := make(chan struct{})
	go func() {
		select {
		case <-gctx.Done():
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		case <-stop:
		}
	}()

	for i := 0; i < c.cfg.MaxWorkers; i++ {
		g.Go(func() error {
			c.workerLoop(gctx)
			return nil
		})
	}
	g.Wait()
	close(stop)

	c.mu.Lock()
	out := make(map[string]*Device, len(c.networkMap))
	for k, v := range c.networkMap {
		out[k] = v
	}
	ev := c.snapshotLocked("", StatusComplete)
	stats := c.stats
	c.mu.Unlock()
	c.deliver(ev)
	return out, stats
}

func (c *Crawler) workerLoop(ctx context.Context) {
	for {
		target, ok := c.nextTarget(ctx)
		if !ok {
			return
		}
		c.process(ctx, target)
	}
}

// nextTarget pops the next PendingTarget, or reports quiescence/cancellation.
func (c *Crawler) nextTarget(ctx context.Context) (PendingTarget, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return PendingTarget{}, false
		}
		if len(c.pending) > 0 {
			t := c.pending[0]
			c.pending = c.pending[1:]
			delete(c.pendingAddr, t.Address)
			c.visited[t.Address] = true
			c.active++
			c.stats.Queued--
			c.stats.Visited++
			return t, true
		}
		if c.active == 0 {
			c.cond.Broadcast()
			return PendingTarget{}, false
		}
		c.cond.Wait()
	}
}

func (c *Crawler) finishTarget() {
	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	c.cond.Broadcast()
}

// enqueue adds target to pending if its address is not already known
// under any of the four dedup sets, per §4.6's enqueue-dedup order, and
// if max_devices has not already been reached. The bound is a
// crawl-termination trigger on the discovered count, not a pre-reservation
// for an in-flight slot: it must never reject the seed (networkMap is
// still empty then), so max_devices=1 still yields exactly one device.
func (c *Crawler) enqueue(target PendingTarget) {
	c.mu.Lock()
	if c.cfg.MaxDevices > 0 && len(c.networkMap) >= c.cfg.MaxDevices {
		c.mu.Unlock()
		return
	}
	addr := target.Address
	if c.visited[addr] || c.failed[addr] || c.unreachable[addr] || c.pendingAddr[addr] {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, target)
	c.pendingAddr[addr] = true
	c.stats.Queued++
	ev := c.snapshotLocked(hostOf(addr), StatusProcessing)
	c.cond.Broadcast()
	c.mu.Unlock()
	c.deliver(ev)
}

func (c *Crawler) process(ctx context.Context, target PendingTarget) {
	defer c.finishTarget()

	c.emit(hostOf(target.Address), StatusProcessing)

	deviceCtx, cancel := context.WithTimeout(ctx, c.cfg.TimeoutPerDevice)
	defer cancel()

	device, claims, err := c.fingerprintAndCollect(deviceCtx, target)
	if err != nil {
		switch errKind(err) {
		case crawlerrors.KindCancelled:
			return
		case crawlerrors.KindUnreachable:
			// Already recorded in the unreachable set by fingerprintAndCollect.
		default:
			c.mu.Lock()
			c.failed[target.Address] = true
			c.stats.Failed++
			c.mu.Unlock()
		}
		util.Warnf("device %s failed fingerprinting: %v", target.Address, err)
		c.emit(hostOf(target.Address), StatusFailed)
		return
	}

	c.mu.Lock()
	_, exists := c.networkMap[device.Hostname]
	if !exists && c.cfg.MaxDevices > 0 && len(c.networkMap) >= c.cfg.MaxDevices {
		// Targets queued before the bound was reached still run, but a new
		// device past the bound is not added to the map.
		c.mu.Unlock()
		return
	}
	if !exists {
		c.stats.Discovered++
	}
	c.networkMap[device.Hostname] = device
	c.mu.Unlock()
	c.emit(hostOf(target.Address), StatusSuccess)

	c.enqueuePeers(claims)
}

func errKind(err error) crawlerrors.Kind {
	k, _ := crawlerrors.As(err)
	return k
}

// fingerprintAndCollect dials (with credential fallback), fingerprints,
// and collects neighbors for one target. On probe failure the address is
// recorded unreachable and a *crawlerrors.KindError is returned.
func (c *Crawler) fingerprintAndCollect(ctx context.Context, target PendingTarget) (*Device, *neighbor.Claims, error) {
	host, portStr, err := net.SplitHostPort(target.Address)
	if err != nil {
		host, portStr = target.Address, "22"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 22
	}

	if !sshsession.Probe(host, port, sshsession.DefaultProbeTimeout) {
		c.mu.Lock()
		c.unreachable[target.Address] = true
		c.stats.Unreachable++
		c.mu.Unlock()
		return nil, nil, crawlerrors.UnreachableError(target.Address, nil)
	}

	if ctx.Err() != nil {
		return nil, nil, crawlerrors.CancelledError(target.Address)
	}

	session, err := c.dialWithFallback(target)
	if err != nil {
		return nil, nil, err
	}
	defer session.Close()

	var captured map[string]CommandCapture
	if c.cfg.CaptureDebug {
		captured = map[string]CommandCapture{}
	}
	capture := func(command, output, matchedTemplate string, score int) {
		if captured != nil {
			captured[command] = CommandCapture{Output: output, Template: matchedTemplate, Score: score}
		}
	}

	fp := fingerprint.New(session, c.engine, c.cfg.Blacklist)
	fp.SetDebugHook(capture)
	result, err := fp.Run(target.Address)
	if err != nil {
		return nil, nil, err
	}

	if ctx.Err() != nil {
		return nil, nil, crawlerrors.CancelledError(target.Address)
	}

	coll := neighbor.New(session, c.engine, result.Platform)
	coll.SetDebugHook(capture)
	claims, err := coll.Collect(target.Address, result.Prompt)
	if err != nil {
		util.Warnf("device %s: neighbor collection error: %v", target.Address, err)
		claims = &neighbor.Claims{CDP: map[string]*neighbor.PeerRecord{}, LLDP: map[string]*neighbor.PeerRecord{}}
	}

	device := &Device{
		Hostname:    result.Version.Hostname,
		IP:          host,
		Platform:    result.Platform,
		Serial:      firstSerial(result.Version.Serials),
		Connections: buildConnections(claims),
	}

	if captured != nil {
		c.mu.Lock()
		c.debugRecords[device.Hostname] = DebugRecord{Commands: captured}
		c.mu.Unlock()
	}

	return device, claims, nil
}

func (c *Crawler) dialWithFallback(target PendingTarget) (sshsession.Session, error) {
	session, err := c.dial(target.Address, target.Credentials, c.cfg.TimeoutPerDevice)
	if err == nil {
		return session, nil
	}
	if !crawlerrors.IsAuthFailure(err) || c.cfg.Alternate == nil {
		return nil, err
	}
	return c.dial(target.Address, *c.cfg.Alternate, c.cfg.TimeoutPerDevice)
}

func firstSerial(serials []string) string {
	if len(serials) == 0 {
		return ""
	}
	return serials[0]
}

func buildConnections(claims *neighbor.Claims) map[string][]Connection {
	out := map[string][]Connection{}
	add := func(peers map[string]*neighbor.PeerRecord, protocol string) {
		for peer, rec := range peers {
			for _, conn := range rec.Connections {
				out[peer] = append(out[peer], Connection{
					LocalPort:    conn.Local,
					RemotePort:   conn.Remote,
					Protocol:     protocol,
					PeerIP:       rec.IP,
					PeerPlatform: rec.PlatformHint,
				})
			}
		}
	}
	add(claims.CDP, "cdp")
	add(claims.LLDP, "lldp")
	return out
}

// enqueuePeers walks every claimed peer and enqueues a PendingTarget
// unless the peer's identifier matches an exclusion substring or it has
// no usable IP.
func (c *Crawler) enqueuePeers(claims *neighbor.Claims) {
	seen := map[string]bool{}
	walk := func(peers map[string]*neighbor.PeerRecord) {
		for peerID, rec := range peers {
			if seen[peerID] {
				continue
			}
			seen[peerID] = true
			if c.excluded(peerID) {
				continue
			}
			if rec.IP == "" {
				continue
			}
			addr := net.JoinHostPort(rec.IP, "22")
			c.enqueue(PendingTarget{Address: addr, Credentials: c.cfg.Primary, PlatformHint: rec.PlatformHint})
		}
	}
	walk(claims.CDP)
	walk(claims.LLDP)
}

func (c *Crawler) excluded(peerID string) bool {
	lower := strings.ToLower(peerID)
	for _, sub := range c.cfg.ExcludeSubstrs {
		sub = strings.TrimSpace(strings.ToLower(sub))
		if sub != "" && strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (c *Crawler) emit(ip, status string) {
	c.mu.Lock()
	ev := c.snapshotLocked(ip, status)
	c.mu.Unlock()
	c.deliver(ev)
}

func (c *Crawler) snapshotLocked(ip, status string) ProgressEvent {
	return ProgressEvent{
		RunID:             c.cfg.RunID,
		IP:                ip,
		Status:            status,
		DevicesDiscovered: c.stats.Discovered,
		DevicesFailed:     c.stats.Failed,
		DevicesQueued:     c.stats.Queued,
		DevicesVisited:    c.stats.Visited,
		UnreachableHosts:  c.stats.Unreachable,
	}
}

func (c *Crawler) deliver(ev ProgressEvent) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(ev)
}
