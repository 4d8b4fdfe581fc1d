package fingerprint

import "strings"

// pagingCommandSet is one vendor's sequence of commands to disable CLI
// output paging, sent one at a time.
type pagingCommandSet struct {
	vendor   string
	commands []string
}

// pagingSets is tried in this order per §4.4, unless the detected prompt
// contains a vendor token, in which case that vendor is tried first.
var pagingSets = []pagingCommandSet{
	{vendor: "cisco", commands: []string{"terminal length 0", "terminal width 511"}},
	{vendor: "arista", commands: []string{"terminal length 0", "terminal width 511"}},
	{vendor: "juniper", commands: []string{"set cli screen-length 0", "set cli screen-width 511"}},
	{vendor: "huawei", commands: []string{"screen-length 0 temporary"}},
	{vendor: "hp", commands: []string{"no page"}},
	{vendor: "paloalto", commands: []string{"set cli pager off"}},
	{vendor: "fortinet", commands: []string{"config system console", "set output standard", "end"}},
	{vendor: "asa", commands: []string{"terminal pager 0"}},
	{vendor: "dell", commands: []string{"terminal length 0"}},
}

// vendorToken maps a vendor key to the lowercase substring that, if found
// in the detected prompt, causes that vendor's command set to be tried
// first.
var vendorToken = map[string]string{
	"cisco":    "cisco",
	"arista":   "arista",
	"juniper":  "juniper",
	"huawei":   "huawei",
	"hp":       "hp",
	"paloalto": "paloalto",
	"fortinet": "fortinet",
	"asa":      "asa",
	"dell":     "dell",
}

// orderedPagingSets returns pagingSets reordered so that any set whose
// vendor token appears in prompt is tried first, preserving the relative
// order of the rest.
func orderedPagingSets(prompt string) []pagingCommandSet {
	lower := strings.ToLower(prompt)
	var first []pagingCommandSet
	var rest []pagingCommandSet
	for _, set := range pagingSets {
		if strings.Contains(lower, vendorToken[set.vendor]) {
			first = append(first, set)
		} else {
			rest = append(rest, set)
		}
	}
	return append(first, rest...)
}
