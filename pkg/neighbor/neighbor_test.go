package neighbor

import (
	"testing"

	"github.com/topolens/topolens/internal/testssh"
	"github.com/topolens/topolens/pkg/template"
)

func newEngine(t *testing.T) *template.Engine {
	t.Helper()
	return template.NewEngine(template.DefaultStore())
}

const cdpSample = `Device ID: switch02.example.com
  IP address: 10.0.0.2
Platform: cisco WS-C3850-24, Capabilities: Switch IGMP
Interface: GigabitEthernet0/1, Port ID (outgoing port): GigabitEthernet0/2
-------------------------
Device ID: switch03.example.com
  IP address: 10.0.0.3
Platform: cisco WS-C2960-24, Capabilities: Switch
Interface: GigabitEthernet0/2, Port ID (outgoing port): FastEthernet0/1
-------------------------
`

func TestCollectCDP(t *testing.T) {
	fake := testssh.New("switch01#", testssh.Script{
		"show cdp neighbors detail":  cdpSample,
		"show lldp neighbors detail": "",
	})
	c := New(fake, newEngine(t), "ios")
	claims, err := c.Collect("10.0.0.1:22", "switch01#")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims.CDP) != 2 {
		t.Fatalf("expected 2 CDP peers, got %d: %#v", len(claims.CDP), claims.CDP)
	}
	peer, ok := claims.CDP["switch02"]
	if !ok {
		t.Fatalf("expected peer switch02, got %#v", claims.CDP)
	}
	if peer.IP != "10.0.0.2" {
		t.Errorf("expected peer IP 10.0.0.2, got %q", peer.IP)
	}
	if len(peer.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(peer.Connections))
	}
}

func TestCollectDebugHook(t *testing.T) {
	fake := testssh.New("switch01#", testssh.Script{
		"show cdp neighbors detail":  cdpSample,
		"show lldp neighbors detail": "",
	})
	c := New(fake, newEngine(t), "ios")

	var seen []string
	c.SetDebugHook(func(command, output, matchedTemplate string, score int) {
		seen = append(seen, command)
	})

	if _, err := c.Collect("10.0.0.1:22", "switch01#"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 captured commands, got %d: %v", len(seen), seen)
	}
}

func TestCollectUnknownPlatformIsEmpty(t *testing.T) {
	fake := testssh.New("switch01#", nil)
	c := New(fake, newEngine(t), "unknown")
	claims, err := c.Collect("10.0.0.1:22", "switch01#")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims.CDP) != 0 || len(claims.LLDP) != 0 {
		t.Errorf("expected no claims for unknown platform")
	}
}

func TestPeerIdentifierPrecedence(t *testing.T) {
	cases := []struct {
		rec  template.Record
		want string
	}{
		{template.Record{"NEIGHBOR_NAME": "core01.example.com"}, "core01"},
		{template.Record{"CHASSIS_ID": "AA:BB:CC:DD:EE:FF"}, "aabbccddeeff"},
		{template.Record{}, ""},
	}
	for _, c := range cases {
		if got := peerIdentifier(c.rec); got != c.want {
			t.Errorf("peerIdentifier(%#v) = %q, want %q", c.rec, got, c.want)
		}
	}
}

func TestIsJunk(t *testing.T) {
	junk := []string{"show", "invalid", "total", "entry", "device", "system", "a", "", "...", "--"}
	for _, j := range junk {
		if !isJunk(j) {
			t.Errorf("expected %q to be junk", j)
		}
	}
	if isJunk("switch02") {
		t.Error("expected switch02 not to be junk")
	}
}

func TestPeerIPExcludesLinkLocal(t *testing.T) {
	rec := template.Record{"MGMT_ADDRESS": "fe80::1", "INTERFACE_IP": "10.0.0.5"}
	if got := peerIP(rec); got != "10.0.0.5" {
		t.Errorf("expected fallback to INTERFACE_IP, got %q", got)
	}
}

func TestPlatformHint(t *testing.T) {
	cases := []struct {
		platform string
		want     string
	}{
		{"Arista Networks EOS", "eos"},
		{"Cisco NX-OS", "nxos_ssh"},
		{"Cisco IOS Software", "ios"},
		{"Juniper Networks, Inc. junos", "junos"},
		{"ProCurve J9728A", "procurve"},
		{"unrecognized thing", "unknown"},
	}
	for _, c := range cases {
		rec := template.Record{"PLATFORM": c.platform}
		if got := platformHint(rec); got != c.want {
			t.Errorf("platformHint(%q) = %q, want %q", c.platform, got, c.want)
		}
	}
}

func TestCapabilityHintFallback(t *testing.T) {
	cases := []struct {
		name         string
		capabilities string
		want         string
	}{
		{"router with vendor token", "Router, Cisco IOS capable", "ios"},
		{"router with arista token", "Router Arista", "eos"},
		{"bare router, no vendor", "Router", "ios"},
		{"switch only, no router role", "Switch IGMP", "unknown"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := template.Record{"CAPABILITIES": c.capabilities}
			if got := platformHint(rec); got != c.want {
				t.Errorf("platformHint with CAPABILITIES=%q = %q, want %q", c.capabilities, got, c.want)
			}
		})
	}
}
