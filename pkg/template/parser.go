package template

import (
	"fmt"
	"regexp"
	"strings"
)

// valueDef is one `Value` declaration from a template source:
//
//	Value Required HOSTNAME (\S+)
//	Value List SERIAL (\S+)
var valueLineRe = regexp.MustCompile(`^Value\s+(?:([A-Za-z]+(?:,[A-Za-z]+)*)\s+)?(\w+)\s+\((.*)\)\s*$`)

// placeholderRe finds ${NAME} references inside a rule line, the textfsm
// convention gravwell's regexextract.go formatter mirrors for ${field}
// template substitution.
var placeholderRe = regexp.MustCompile(`\$\{(\w+)\}`)

type valueDef struct {
	name     string
	regex    string
	required bool
	isList   bool
	fillDown bool
}

type ruleDef struct {
	re       *regexp.Regexp
	record   bool
	clearAll bool
}

// Template is a parsed TextFSM-style template: a set of named field
// patterns plus an ordered set of line-matching rules in the Start state.
type Template struct {
	Name   string
	Source string

	values []valueDef
	rules  []ruleDef
}

func hasOption(opts, want string) bool {
	for _, o := range strings.Split(opts, ",") {
		if strings.EqualFold(strings.TrimSpace(o), want) {
			return true
		}
	}
	return false
}

// Parse compiles TextFSM-style source text into a Template. Only the
// "Start" state is honored — every CDP/LLDP/show-version template in this
// store emits all its records from a single linear pass, so state
// transitions beyond Start are not needed.
func Parse(name, source string) (*Template, error) {
	t := &Template{Name: name, Source: source}
	valueRegex := map[string]string{}

	lines := strings.Split(source, "\n")
	inStart := false

	for lineNo, raw := range lines {
		line := strings.TrimRight(raw, "\r")

		if strings.HasPrefix(line, "Value ") {
			m := valueLineRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%s:%d: malformed Value line: %q", name, lineNo+1, line)
			}
			opts, vname, vregex := m[1], m[2], m[3]
			if _, err := regexp.Compile(vregex); err != nil {
				return nil, fmt.Errorf("%s:%d: bad regex for value %s: %w", name, lineNo+1, vname, err)
			}
			vd := valueDef{
				name:     vname,
				regex:    vregex,
				required: hasOption(opts, "Required"),
				isList:   hasOption(opts, "List"),
				fillDown: hasOption(opts, "Filldown"),
			}
			t.values = append(t.values, vd)
			valueRegex[vname] = vregex
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		// A state header is an unindented, non-Value line.
		if !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t") {
			inStart = strings.TrimSpace(line) == "Start"
			continue
		}

		if !inStart {
			continue
		}

		body := strings.TrimSpace(line)
		pattern := body
		action := ""
		if idx := strings.Index(body, "->"); idx >= 0 {
			pattern = strings.TrimSpace(body[:idx])
			action = strings.TrimSpace(body[idx+2:])
		}

		expanded := placeholderRe.ReplaceAllStringFunc(pattern, func(tok string) string {
			name := placeholderRe.FindStringSubmatch(tok)[1]
			vregex, ok := valueRegex[name]
			if !ok {
				return tok
			}
			return fmt.Sprintf("(?P<%s>%s)", name, vregex)
		})

		re, err := regexp.Compile(expanded)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad rule pattern %q: %w", name, lineNo+1, expanded, err)
		}

		rd := ruleDef{re: re}
		for _, tok := range strings.Split(action, ".") {
			switch strings.ToLower(strings.TrimSpace(tok)) {
			case "record":
				rd.record = true
			case "clearall":
				rd.clearAll = true
			}
		}
		t.rules = append(t.rules, rd)
	}

	if len(t.values) == 0 {
		return nil, fmt.Errorf("%s: no Value declarations found", name)
	}
	return t, nil
}

func (t *Template) listFields() map[string]bool {
	out := make(map[string]bool, len(t.values))
	for _, v := range t.values {
		out[v.name] = v.isList
	}
	return out
}
