// Package discovery is the public entry point (C8): it wires the
// template engine, the crawler, and the topology assembler into one
// Discover call per §4.
package discovery

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/topolens/topolens/pkg/config"
	"github.com/topolens/topolens/pkg/crawler"
	"github.com/topolens/topolens/pkg/fingerprint"
	"github.com/topolens/topolens/pkg/template"
	"github.com/topolens/topolens/pkg/topology"
	"github.com/topolens/topolens/pkg/util"
)

// Result is everything one Discover call produces.
type Result struct {
	RunID     string
	Topology  topology.TopologyMap
	Stats     crawler.Stats
	Assembly  topology.AssemblyStats
	StartedAt time.Time
	Duration  time.Duration
	// Debug holds per-device raw command output, keyed by hostname. Only
	// populated when cfg.SaveDebugInfo is set.
	Debug map[string]crawler.DebugRecord
}

// Options configures one run beyond what config.Config already carries:
// a progress callback, an optional custom template store (defaults to
// the embedded set), an optional dialer override for testing, and an
// optional log hook letting a caller observe log records. The hook is added
// to the package-wide logger and stays registered after Discover returns.
type Options struct {
	OnProgress    func(crawler.ProgressEvent)
	TemplateStore template.Store
	Dialer        crawler.Dialer
	Blacklist     fingerprint.BlacklistFunc
	LogHook       logrus.Hook
}

// Discover runs one full crawl-then-assemble pass against cfg.SeedIP.
func Discover(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	util.AddHook(opts.LogHook)

	runID := uuid.NewString()
	log := util.WithRun(runID)
	log.Info("starting discovery run")

	started := time.Now()

	store := opts.TemplateStore
	if store == nil {
		store = template.DefaultStore()
	}
	engine := template.NewEngine(store)

	var alt *crawler.Credentials
	if cfg.AlternateUsername != "" || cfg.AlternatePassword != "" {
		alt = &crawler.Credentials{Username: cfg.AlternateUsername, Password: cfg.AlternatePassword}
	}

	crawlerCfg := crawler.Config{
		RunID:            runID,
		SeedAddress:      seedAddress(cfg.SeedIP),
		Primary:          crawler.Credentials{Username: cfg.Username, Password: cfg.Password},
		Alternate:        alt,
		MaxDevices:       cfg.MaxDevices,
		TimeoutPerDevice: time.Duration(cfg.Timeout) * time.Second,
		ExcludeSubstrs:   cfg.ExcludeSubstrings(),
		MaxWorkers:       cfg.MaxWorkers,
		Blacklist:        opts.Blacklist,
		CaptureDebug:     cfg.SaveDebugInfo,
	}

	c := crawler.New(crawlerCfg, engine, opts.Dialer, opts.OnProgress)
	devices, stats := c.Run(ctx)

	log.WithField("devices_discovered", stats.Discovered).Info("crawl complete, assembling topology")

	topo, assembly := topology.Assemble(devices)

	if assembly.LinksDropped > 0 {
		log.WithField("links_dropped", assembly.LinksDropped).Warn("dropped unconfirmed links during assembly")
	}

	var debug map[string]crawler.DebugRecord
	if cfg.SaveDebugInfo {
		debug = c.DebugRecords()
	}

	return &Result{
		RunID:     runID,
		Topology:  topo,
		Stats:     stats,
		Assembly:  assembly,
		StartedAt: started,
		Duration:  time.Since(started),
		Debug:     debug,
	}, nil
}

// seedAddress appends the default SSH port if cfg.SeedIP didn't specify one.
func seedAddress(seed string) string {
	if _, _, err := net.SplitHostPort(seed); err == nil {
		return seed
	}
	return net.JoinHostPort(seed, "22")
}
