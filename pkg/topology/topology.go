// Package topology implements the Topology Assembler (C7): hostname
// canonicalization, cross-device merge, bidirectional link confirmation,
// and peer platform enrichment over the crawler's raw Device records.
package topology

import (
	"encoding/json"
	"strings"

	"github.com/topolens/topolens/pkg/crawler"
	"github.com/topolens/topolens/pkg/util"
)

// NodeDetails is the top-level entry for one discovered device.
type NodeDetails struct {
	IP       string `json:"ip"`
	Platform string `json:"platform"`
}

// PeerLink is one normalized [local, remote] interface pairing. It
// marshals as a two-element JSON array per §6's persisted output shape.
type PeerLink struct {
	Local  string
	Remote string
}

func (l PeerLink) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Local, l.Remote})
}

// Peer is one neighbor as recorded from a canonical node's perspective.
type Peer struct {
	IP          string     `json:"ip"`
	Platform    string     `json:"platform"`
	Connections []PeerLink `json:"connections"`
}

// Node is one canonical-hostname entry in the final TopologyMap.
type Node struct {
	NodeDetails NodeDetails      `json:"node_details"`
	Peers       map[string]*Peer `json:"peers"`
	// discovered is true once the crawler itself visited this hostname, as
	// opposed to it only ever appearing as someone else's peer reference.
	discovered bool
}

// TopologyMap is the final product of assembly, per §3.
type TopologyMap map[string]*Node

// AssemblyStats reports what Step 3 dropped, for observability.
type AssemblyStats struct {
	LinksDropped int
}

func canonical(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// Assemble runs Steps 1-5 of §4.7 over the crawler's accumulated devices.
func Assemble(devices map[string]*crawler.Device) (TopologyMap, AssemblyStats) {
	normalized := mergeDevices(devices)
	stats := confirmBidirectional(normalized)
	enrichPeers(normalized)
	return normalized, stats
}

// mergeDevices implements Steps 1-2: canonicalize every hostname and
// peer_id, then merge field-wise (prefer existing non-empty/non-unknown)
// with peer connections set-unioned.
func mergeDevices(devices map[string]*crawler.Device) TopologyMap {
	out := TopologyMap{}

	for _, dev := range devices {
		canon := canonical(dev.Hostname)
		if canon == "" {
			continue
		}
		node := out[canon]
		if node == nil {
			node = &Node{Peers: map[string]*Peer{}}
			out[canon] = node
		}
		if node.discovered {
			node.NodeDetails.IP = preferNonEmpty(node.NodeDetails.IP, dev.IP)
			node.NodeDetails.Platform = preferNonEmpty(node.NodeDetails.Platform, dev.Platform)
		} else {
			// A leaf synthesized earlier from another device's peer claim
			// holds only best-effort guesses; the device's own values win.
			node.NodeDetails.IP = preferNonEmpty(dev.IP, node.NodeDetails.IP)
			node.NodeDetails.Platform = preferNonEmpty(dev.Platform, node.NodeDetails.Platform)
		}
		node.discovered = true

		for peerID, conns := range dev.Connections {
			peerCanon := canonical(peerID)
			if peerCanon == "" {
				continue
			}
			peer := node.Peers[peerCanon]
			if peer == nil {
				peer = &Peer{}
				node.Peers[peerCanon] = peer
			}
			for _, c := range conns {
				peer.IP = preferNonEmpty(peer.IP, c.PeerIP)
				peer.Platform = preferNonEmpty(peer.Platform, c.PeerPlatform)
				addLinkUnique(peer, PeerLink{Local: c.LocalPort, Remote: c.RemotePort})
			}

			// Leaf synthesis: every referenced peer gets a top-level entry,
			// even if it was never itself crawled, per the invariant in §3.
			if _, ok := out[peerCanon]; !ok {
				out[peerCanon] = &Node{
					NodeDetails: NodeDetails{IP: peer.IP, Platform: peer.Platform},
					Peers:       map[string]*Peer{},
				}
			}
		}
	}

	return out
}

func addLinkUnique(peer *Peer, link PeerLink) {
	for _, existing := range peer.Connections {
		if existing == link {
			return
		}
	}
	peer.Connections = append(peer.Connections, link)
}

func preferNonEmpty(existing, incoming string) string {
	if existing != "" && existing != "unknown" {
		return existing
	}
	if incoming == "" {
		return existing
	}
	return incoming
}

// confirmBidirectional implements Step 3. A link A:Li<->B:Rj is retained
// if B is a leaf (not separately discovered), or if B's peers assert the
// reverse pairing back to A. Confirmed-but-undiscovered peers retain
// whatever was synthesized for them in mergeDevices.
func confirmBidirectional(m TopologyMap) AssemblyStats {
	var stats AssemblyStats

	for canonA, nodeA := range m {
		for canonB, peer := range nodeA.Peers {
			nodeB, ok := m[canonB]
			if !ok || !nodeB.discovered {
				// Leaf: B was never itself crawled, so A's unidirectional
				// claim is retained verbatim.
				continue
			}
			reverse, hasReverse := nodeB.Peers[canonA]
			if !hasReverse {
				dropLinks(peer, func(PeerLink) bool { return true }, &stats)
				continue
			}
			dropLinks(peer, func(l PeerLink) bool {
				return !hasReverseLink(reverse, l)
			}, &stats)
		}
	}

	return stats
}

func hasReverseLink(reverse *Peer, l PeerLink) bool {
	want := PeerLink{Local: l.Remote, Remote: l.Local}
	for _, rl := range reverse.Connections {
		if rl == want {
			return true
		}
	}
	return false
}

func dropLinks(peer *Peer, shouldDrop func(PeerLink) bool, stats *AssemblyStats) {
	kept := peer.Connections[:0]
	for _, l := range peer.Connections {
		if shouldDrop(l) {
			stats.LinksDropped++
			util.Debugf("dropping unconfirmed link %s<->%s", l.Local, l.Remote)
			continue
		}
		kept = append(kept, l)
	}
	peer.Connections = kept
}

// treatedAsMissing are peer platform labels §4.7 step 4 intentionally
// treats as "not a real vendor label" so enrichment overwrites them.
var treatedAsMissing = map[string]bool{"": true, "ios": true, "eos": true}

// enrichPeers implements Step 4: any peer whose platform is empty or in
// treatedAsMissing is replaced from the matching canonical node's own
// node_details (discovered or synthesized leaf), when that platform is
// non-empty.
func enrichPeers(m TopologyMap) {
	for _, node := range m {
		for canonPeer, peer := range node.Peers {
			if !treatedAsMissing[peer.Platform] {
				continue
			}
			if real, ok := m[canonPeer]; ok && real.NodeDetails.Platform != "" {
				peer.Platform = real.NodeDetails.Platform
			}
		}
	}
}
