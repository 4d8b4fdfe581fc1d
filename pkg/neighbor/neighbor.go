// Package neighbor implements the per-device CDP/LLDP collection phase
// (C5): issuing the platform-appropriate detail commands, parsing them
// via pkg/template, and producing normalized NeighborClaims.
package neighbor

import (
	"strings"

	"github.com/topolens/topolens/pkg/crawlerrors"
	"github.com/topolens/topolens/pkg/iface"
	"github.com/topolens/topolens/pkg/sshsession"
	"github.com/topolens/topolens/pkg/template"
)

// Protocol identifies which neighbor discovery protocol produced a claim.
type Protocol string

const (
	ProtocolCDP  Protocol = "cdp"
	ProtocolLLDP Protocol = "lldp"
)

// Connection is one normalized local/remote interface pairing to a peer.
type Connection struct {
	Local  string
	Remote string
}

// PeerRecord is everything claimed about one neighbor across every record
// that named it, within a single protocol.
type PeerRecord struct {
	IP           string
	PlatformHint string
	Connections  []Connection
}

// Claims is the per-protocol output of collecting one device, keyed by
// peer identifier.
type Claims struct {
	CDP  map[string]*PeerRecord
	LLDP map[string]*PeerRecord
}

// commandSet names the commands and template names to run for a platform,
// in order, per §4.5.
type commandSet struct {
	protocol Protocol
	command  string
	template string
}

var platformCommands = map[string][]commandSet{
	"ios":      {{ProtocolCDP, "show cdp neighbors detail", "show_cdp_neighbors_detail"}, {ProtocolLLDP, "show lldp neighbors detail", "show_lldp_neighbors_detail"}},
	"nxos_ssh": {{ProtocolCDP, "show cdp neighbors detail", "show_cdp_neighbors_detail"}, {ProtocolLLDP, "show lldp neighbors detail", "show_lldp_neighbors_detail"}},
	"eos":      {{ProtocolLLDP, "show lldp neighbors detail", "arista_eos_show_lldp_neighbors_detail"}},
	"junos":    {{ProtocolLLDP, "show lldp neighbors detail", "juniper_junos_show_lldp_neighbors_detail"}},
	"procurve": {{ProtocolLLDP, "show lldp info remote-device detail", "hp_procurve_show_lldp_info_remote_detail"}},
}

var junkIdentifiers = map[string]bool{
	"show": true, "invalid": true, "total": true, "entry": true, "device": true, "system": true,
}

var punctuationOnly = strings.NewReplacer(
	".", "", ":", "", "-", "", "_", "", "/", "", "\\", "",
)

// DebugHook observes the raw output of a command issued against the
// device during neighbor collection, plus the template matched against
// it (empty if none) and that template's score.
type DebugHook func(command, output, matchedTemplate string, score int)

// Collector drives the neighbor collection phase for a single device.
type Collector struct {
	session   sshsession.Session
	engine    *template.Engine
	vendor    string
	platform  string
	debugHook DebugHook
}

// New builds a Collector for a device already past fingerprinting.
func New(session sshsession.Session, engine *template.Engine, platform string) *Collector {
	return &Collector{session: session, engine: engine, platform: platform}
}

// SetDebugHook registers a DebugHook invoked after every command read
// during collection. Passing nil disables capture.
func (c *Collector) SetDebugHook(hook DebugHook) {
	c.debugHook = hook
}

// Collect runs every command for the device's platform and returns the
// aggregated claims. addr annotates errors only; a platform with no known
// command set yields empty (not an error — unknown platforms simply are
// not probed for neighbors).
func (c *Collector) Collect(addr, prompt string) (*Claims, error) {
	claims := &Claims{CDP: map[string]*PeerRecord{}, LLDP: map[string]*PeerRecord{}}

	sets, ok := platformCommands[c.platform]
	if !ok {
		return claims, nil
	}

	for _, set := range sets {
		if err := c.session.SendLine(set.command); err != nil {
			return claims, crawlerrors.TransportError(addr, set.command, err)
		}
		out, err := c.session.ReadUntilIdle(prompt, sshsession.DefaultOverallTimeout, sshsession.DefaultIdleTimeout)
		if err != nil {
			return claims, crawlerrors.TransportError(addr, set.command, err)
		}

		matched, records, score := c.engine.FindBestTemplate(out, set.template)
		if c.debugHook != nil {
			c.debugHook(set.command, out, matched, score)
		}
		dest := claims.CDP
		if set.protocol == ProtocolLLDP {
			dest = claims.LLDP
		}
		for _, rec := range records {
			applyRecord(dest, rec, c.platform)
		}
	}

	return claims, nil
}

// applyRecord folds one parsed record into dest, keyed by peer identifier,
// applying §4.5's identifier precedence, drop rules, IP precedence, and
// platform hint.
func applyRecord(dest map[string]*PeerRecord, rec template.Record, localPlatform string) {
	peerID := peerIdentifier(rec)
	if peerID == "" || isJunk(peerID) {
		return
	}

	entry, ok := dest[peerID]
	if !ok {
		entry = &PeerRecord{PlatformHint: "unknown"}
		dest[peerID] = entry
	}

	if ip := peerIP(rec); ip != "" && entry.IP == "" {
		entry.IP = ip
	}
	if hint := platformHint(rec); hint != "unknown" {
		entry.PlatformHint = hint
	}

	local := stringField(rec, "LOCAL_INTERFACE")
	remote := firstNonEmpty(stringField(rec, "NEIGHBOR_PORT_ID"), stringField(rec, "NEIGHBOR_INTERFACE"), stringField(rec, "PORT_ID"), stringField(rec, "REMOTE_PORT"))
	if local == "" || remote == "" {
		return
	}

	remotePlatform := entry.PlatformHint
	if remotePlatform == "unknown" {
		remotePlatform = ""
	}
	normLocal, normRemote := iface.NormalizePair(local, remote, localPlatform, remotePlatform)

	for _, existing := range entry.Connections {
		if existing.Local == normLocal && existing.Remote == normRemote {
			return
		}
	}
	entry.Connections = append(entry.Connections, Connection{Local: normLocal, Remote: normRemote})
}

// peerIdentifier implements the NEIGHBOR_NAME/CHASSIS_ID precedence.
func peerIdentifier(rec template.Record) string {
	if name := stringField(rec, "NEIGHBOR_NAME"); name != "" {
		return strings.SplitN(name, ".", 2)[0]
	}
	chassis := stringField(rec, "CHASSIS_ID")
	chassis = strings.ToLower(punctuationOnly.Replace(chassis))
	return chassis
}

func isJunk(id string) bool {
	if len(id) <= 1 {
		return true
	}
	if junkIdentifiers[strings.ToLower(id)] {
		return true
	}
	if punctuationOnly.Replace(id) == "" {
		return true
	}
	return false
}

// peerIP implements the MGMT_ADDRESS → INTERFACE_IP → MANAGEMENT_IP
// precedence, excluding link-local IPv6 addresses.
func peerIP(rec template.Record) string {
	for _, field := range []string{"MGMT_ADDRESS", "INTERFACE_IP", "MANAGEMENT_IP"} {
		v := stringField(rec, field)
		if v == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(v), "fe80:") {
			continue
		}
		return v
	}
	return ""
}

// platformHintTable maps a case-insensitive substring of PLATFORM or
// NEIGHBOR_DESCRIPTION to the platform label, per §4.5.
var platformHintTable = []struct {
	substr string
	hint   string
}{
	{"arista", "eos"}, {"eos", "eos"},
	{"nx-os", "nxos_ssh"}, {"nexus", "nxos_ssh"},
	{"cisco", "ios"}, {"ios", "ios"},
	{"junos", "junos"}, {"juniper", "junos"},
	{"aruba", "procurve"}, {"hp", "procurve"}, {"procurve", "procurve"},
}

func platformHint(rec template.Record) string {
	combined := strings.ToLower(stringField(rec, "PLATFORM") + " " + stringField(rec, "NEIGHBOR_DESCRIPTION"))
	for _, e := range platformHintTable {
		if strings.Contains(combined, e.substr) {
			return e.hint
		}
	}
	return capabilityHint(rec)
}

// capabilityHint is the last-resort fallback when neither PLATFORM nor
// NEIGHBOR_DESCRIPTION named a recognizable vendor: it reads the CDP/LLDP
// CAPABILITIES field and, for anything advertising a router role, guesses
// a platform from whatever vendor token also appears there, defaulting to
// ios when a vendor can't be pinned down.
func capabilityHint(rec template.Record) string {
	capabilities := strings.ToLower(stringField(rec, "CAPABILITIES"))
	if !strings.Contains(capabilities, "router") {
		return "unknown"
	}
	for _, e := range platformHintTable {
		if strings.Contains(capabilities, e.substr) {
			return e.hint
		}
	}
	return "ios"
}

func stringField(rec template.Record, name string) string {
	v, ok := rec[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
