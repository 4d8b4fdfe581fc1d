// Package textfsmdata embeds the default TextFSM-style template sources
// used by the Template Engine when no operator-supplied template directory
// is configured.
package textfsmdata

import "embed"

//go:embed *.textfsm
var FS embed.FS
