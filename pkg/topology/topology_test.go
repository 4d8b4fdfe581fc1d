package topology

import (
	"testing"

	"github.com/topolens/topolens/pkg/crawler"
)

func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"Switch01.example.com": "switch01",
		"  Router1 ":            "router1",
		"CORE SW":               "core",
		"":                      "",
	}
	for in, want := range cases {
		if got := canonical(in); got != want {
			t.Errorf("canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssembleMergesAndConfirmsBidirectional(t *testing.T) {
	devices := map[string]*crawler.Device{
		"core01": {
			Hostname: "core01",
			IP:       "10.0.0.1",
			Platform: "ios",
			Connections: map[string][]crawler.Connection{
				"edge01": {{LocalPort: "Gi0/1", RemotePort: "Gi0/2", Protocol: "cdp", PeerIP: "10.0.0.2", PeerPlatform: "ios"}},
			},
		},
		"edge01": {
			Hostname: "edge01",
			IP:       "10.0.0.2",
			Platform: "ios",
			Connections: map[string][]crawler.Connection{
				"core01": {{LocalPort: "Gi0/2", RemotePort: "Gi0/1", Protocol: "cdp", PeerIP: "10.0.0.1", PeerPlatform: "ios"}},
			},
		},
	}

	topo, stats := Assemble(devices)
	if stats.LinksDropped != 0 {
		t.Errorf("expected no links dropped, got %d", stats.LinksDropped)
	}
	if len(topo) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(topo))
	}
	core, ok := topo["core01"]
	if !ok {
		t.Fatal("expected core01 node")
	}
	peer, ok := core.Peers["edge01"]
	if !ok {
		t.Fatal("expected edge01 peer under core01")
	}
	if len(peer.Connections) != 1 {
		t.Fatalf("expected 1 confirmed connection, got %d", len(peer.Connections))
	}
}

func TestAssembleDropsUnconfirmedLinkBetweenTwoDiscoveredNodes(t *testing.T) {
	devices := map[string]*crawler.Device{
		"core01": {
			Hostname: "core01",
			IP:       "10.0.0.1",
			Platform: "ios",
			Connections: map[string][]crawler.Connection{
				"edge01": {{LocalPort: "Gi0/1", RemotePort: "Gi0/2", Protocol: "cdp", PeerIP: "10.0.0.2"}},
			},
		},
		"edge01": {
			Hostname:    "edge01",
			IP:          "10.0.0.2",
			Platform:    "ios",
			Connections: map[string][]crawler.Connection{},
		},
	}

	topo, stats := Assemble(devices)
	if stats.LinksDropped != 1 {
		t.Errorf("expected 1 link dropped, got %d", stats.LinksDropped)
	}
	if len(topo["core01"].Peers["edge01"].Connections) != 0 {
		t.Errorf("expected the unconfirmed link to be dropped")
	}
}

func TestAssembleRetainsLeafLinkVerbatim(t *testing.T) {
	devices := map[string]*crawler.Device{
		"core01": {
			Hostname: "core01",
			IP:       "10.0.0.1",
			Platform: "ios",
			Connections: map[string][]crawler.Connection{
				"leafswitch": {{LocalPort: "Gi0/1", RemotePort: "Gi0/2", Protocol: "cdp", PeerIP: "10.0.0.9"}},
			},
		},
	}

	topo, stats := Assemble(devices)
	if stats.LinksDropped != 0 {
		t.Errorf("expected no links dropped for an undiscovered leaf, got %d", stats.LinksDropped)
	}
	if len(topo) != 2 {
		t.Fatalf("expected core01 plus synthesized leafswitch, got %d nodes: %#v", len(topo), topo)
	}
	if len(topo["core01"].Peers["leafswitch"].Connections) != 1 {
		t.Error("expected the leaf link to be retained verbatim")
	}
}

func TestEnrichPeersReplacesIOSAndEOSPlaceholderPlatforms(t *testing.T) {
	devices := map[string]*crawler.Device{
		"core01": {
			Hostname: "core01",
			IP:       "10.0.0.1",
			Platform: "nxos_ssh",
			Connections: map[string][]crawler.Connection{
				"edge01": {{LocalPort: "Gi0/1", RemotePort: "Gi0/2", Protocol: "cdp", PeerIP: "10.0.0.2", PeerPlatform: "ios"}},
			},
		},
		"edge01": {
			Hostname:    "edge01",
			IP:          "10.0.0.2",
			Platform:    "eos",
			Connections: map[string][]crawler.Connection{},
		},
	}

	topo, _ := Assemble(devices)
	peer := topo["core01"].Peers["edge01"]
	if peer.Platform != "eos" {
		t.Errorf("expected enrichment to adopt edge01's real platform eos, got %q", peer.Platform)
	}
}
