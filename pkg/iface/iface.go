// Package iface canonicalizes vendor-specific interface names so that a
// connection reported on one device's "Gi0/1" and another's
// "GigabitEthernet0/1" compare equal after normalization.
package iface

import (
	"regexp"
	"strings"
)

// Vendor hints, matching the platform labels produced by pkg/fingerprint.
const (
	IOS   = "ios"
	NXOS  = "nxos_ssh"
	EOS   = "eos"
	Junos = "junos"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

type rawRule struct {
	pattern     string
	replacement string
}

func compile(raw []rawRule) []rule {
	out := make([]rule, len(raw))
	for i, r := range raw {
		out[i] = rule{pattern: regexp.MustCompile("(?i)" + r.pattern), replacement: r.replacement}
	}
	return out
}

// fullForms lists the canonical spellings; an interface already starting
// with one of these (exact case) is returned verbatim.
var fullForms = []string{
	"GigabitEthernet", "TenGigabitEthernet", "FortyGigabitEthernet", "HundredGigE",
	"FastEthernet", "Ethernet", "Port-channel", "port-channel", "Port-Channel",
	"Vlan", "Loopback", "loopback", "Management", "management",
}

var vendorRules = map[string][]rule{
	IOS: compile([]rawRule{
		{`^(?:Gi|GigabitEthernet)(\d+(?:/\d+)*)$`, "GigabitEthernet$1"},
		{`^(?:Te|TenGigabitEthernet)(\d+(?:/\d+)*)$`, "TenGigabitEthernet$1"},
		{`^(?:Fo|FortyGigabitEthernet)(\d+(?:/\d+)*)$`, "FortyGigabitEthernet$1"},
		{`^(?:Hu|HundredGigE)(\d+(?:/\d+)*)$`, "HundredGigE$1"},
		{`^(?:Fa|FastEthernet)(\d+(?:/\d+)*)$`, "FastEthernet$1"},
		{`^(?:Eth|Et|Ethernet)(\d+(?:/\d+)*)$`, "Ethernet$1"},
		{`^(?:Po|Port-channel)(\d+)$`, "Port-channel$1"},
		{`^(?:Vl|Vlan)(\d+)$`, "Vlan$1"},
		{`^(?:Lo|Loopback)(\d+)$`, "Loopback$1"},
		{`^(?:Mg|Management)(\d+)$`, "Management$1"},
	}),
	NXOS: compile([]rawRule{
		{`^(?:Eth|Ethernet)(\d+/\d+)$`, "Ethernet$1"},
		{`^(?:Po|port-channel)(\d+)$`, "port-channel$1"},
		{`^(?:Vl|Vlan)(\d+)$`, "Vlan$1"},
		{`^(?:Lo|loopback)(\d+)$`, "loopback$1"},
		{`^(?:Mg|mgmt)(\d+)$`, "mgmt$1"},
	}),
	EOS: compile([]rawRule{
		{`^(?:Et|Ethernet)(\d+(?:/\d+)*)$`, "Ethernet$1"},
		{`^(?:Po|Port-Channel)(\d+)$`, "Port-Channel$1"},
		{`^(?:Vl|Vlan)(\d+)$`, "Vlan$1"},
		{`^(?:Lo|Loopback)(\d+)$`, "Loopback$1"},
		{`^(?:Ma|Management)(\d+)$`, "Management$1"},
	}),
}

// genericOrder is the fallback scan order when no vendor hint is given or
// the hint doesn't match: ios, nxos_ssh, eos, in that order, matching the
// paging-disable vendor priority in pkg/fingerprint.
var genericOrder = []string{IOS, NXOS, EOS}

// juniperForm matches the prefixes spec.md §4.1 says Junos leaves
// unchanged: ge-, xe-, et-, ae, fxp, em, me, lo, irb[.N]. Case-sensitive:
// Junos interface names are always lowercase, and matching case-
// insensitively would swallow IOS/EOS's capitalized "Lo0"-style loopback
// abbreviation before the vendor rules below ever saw it.
var juniperForm = regexp.MustCompile(`^(?:ge-|xe-|et-|ae\d|fxp\d*|em\d*|me\d*|lo\d+|irb(?:\.\d+)?)`)

// Normalize canonicalizes a single interface name. vendorHint is one of the
// platform constants above, or empty to scan vendor rule sets in order.
func Normalize(raw, vendorHint string) string {
	if raw == "" || raw == "unknown" {
		return raw
	}
	name := strings.TrimSpace(raw)

	if vendorHint == Junos || juniperForm.MatchString(name) {
		return name
	}
	if alreadyFull(name) {
		return name
	}
	if rs, ok := vendorRules[vendorHint]; ok {
		if out, ok := applyRules(name, rs); ok {
			return out
		}
	}
	for _, v := range genericOrder {
		if out, ok := applyRules(name, vendorRules[v]); ok {
			return out
		}
	}
	return name
}

// NormalizePair normalizes both sides of a connection in one call, the
// shape the neighbor collector and topology assembler consume.
func NormalizePair(localIf, remoteIf, localVendor, remoteVendor string) (string, string) {
	return Normalize(localIf, localVendor), Normalize(remoteIf, remoteVendor)
}

func alreadyFull(name string) bool {
	for _, full := range fullForms {
		if strings.HasPrefix(name, full) {
			return true
		}
	}
	return false
}

func applyRules(name string, rules []rule) (string, bool) {
	for _, r := range rules {
		if r.pattern.MatchString(name) {
			return r.pattern.ReplaceAllString(name, r.replacement), true
		}
	}
	return name, false
}
