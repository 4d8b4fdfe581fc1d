// Package template implements a TextFSM-style template auto-selection
// engine (C2): a read-only store of named templates, each scored against a
// block of raw CLI text, with the best-scoring template's parsed records
// returned to the caller.
package template

import (
	"sort"
	"strings"
	"sync"

	"github.com/topolens/topolens/pkg/util"
)

// Record is one parsed row: scalar fields map to a string, List fields map
// to []string.
type Record map[string]interface{}

// NonEmptyFieldCount returns the number of non-empty field occurrences in
// the record, the unit the Template Engine scores candidates by.
func (r Record) NonEmptyFieldCount() int {
	n := 0
	for _, v := range r {
		switch val := v.(type) {
		case string:
			if val != "" {
				n++
			}
		case []string:
			n += len(val)
		}
	}
	return n
}

// TrustedScoreThreshold is the default "trusted parse" cutoff from §4.2;
// callers may compare against a different threshold themselves.
const TrustedScoreThreshold = 10

// IsTrusted reports whether score meets the trusted-parse threshold.
func IsTrusted(score int) bool {
	return score >= TrustedScoreThreshold
}

// Store is a read-only source of template text keyed by name.
type Store interface {
	Names() []string
	Source(name string) (string, error)
}

// Run executes a single template against raw text and returns the parsed
// records plus the aggregate score (sum of NonEmptyFieldCount across every
// produced record).
func Run(t *Template, rawText string) ([]Record, int) {
	listFields := t.listFields()
	cur := map[string]string{}
	curList := map[string][]string{}

	reset := func(fillDownOnly bool) {
		for _, v := range t.values {
			if fillDownOnly && v.fillDown {
				continue
			}
			if v.isList {
				curList[v.name] = nil
			} else {
				cur[v.name] = ""
			}
		}
	}
	reset(false)

	var records []Record
	flush := func() {
		rec := Record{}
		valid := true
		for _, v := range t.values {
			if v.isList {
				lst := append([]string(nil), curList[v.name]...)
				rec[v.name] = lst
				if v.required && len(lst) == 0 {
					valid = false
				}
			} else {
				rec[v.name] = cur[v.name]
				if v.required && cur[v.name] == "" {
					valid = false
				}
			}
		}
		if valid && rec.NonEmptyFieldCount() > 0 {
			records = append(records, rec)
		}
		reset(true)
	}

	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, r := range t.rules {
			m := r.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			for i, name := range r.re.SubexpNames() {
				if i == 0 || name == "" || m[i] == "" {
					continue
				}
				if listFields[name] {
					curList[name] = append(curList[name], m[i])
				} else {
					cur[name] = m[i]
				}
			}
			if r.clearAll {
				reset(false)
			}
			if r.record {
				flush()
			}
			break
		}
	}
	flush()

	score := 0
	for _, rec := range records {
		score += rec.NonEmptyFieldCount()
	}
	return records, score
}

// Engine auto-selects the best-scoring template for a block of raw text.
// A template whose source fails to parse is disabled for the lifetime of
// the engine rather than retried on every call.
type Engine struct {
	store Store

	mu       sync.Mutex
	compiled map[string]*Template
	disabled map[string]bool
}

// NewEngine wraps a Store with parse-caching and failure isolation.
func NewEngine(store Store) *Engine {
	return &Engine{
		store:    store,
		compiled: map[string]*Template{},
		disabled: map[string]bool{},
	}
}

func (e *Engine) compile(name string) (*Template, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disabled[name] {
		return nil, false
	}
	if t, ok := e.compiled[name]; ok {
		return t, true
	}
	src, err := e.store.Source(name)
	if err != nil {
		util.WithField("template", name).Warnf("template source unavailable: %v", err)
		e.disabled[name] = true
		return nil, false
	}
	t, err := Parse(name, src)
	if err != nil {
		util.WithField("template", name).Warnf("malformed template, disabling: %v", err)
		e.disabled[name] = true
		return nil, false
	}
	e.compiled[name] = t
	return t, true
}

// FindBestTemplate implements the C2 contract: among every candidate
// template whose name contains filterSubstring (all templates if empty),
// pick the one that scores highest against rawText, breaking ties by
// record count then by lexicographic template name. Returns ("", nil, 0)
// if nothing scores.
func (e *Engine) FindBestTemplate(rawText, filterSubstring string) (string, []Record, int) {
	names := e.store.Names()
	sort.Strings(names)

	var bestName string
	var bestRecords []Record
	bestScore := 0

	for _, name := range names {
		if filterSubstring != "" && !strings.Contains(name, filterSubstring) {
			continue
		}
		t, ok := e.compile(name)
		if !ok {
			continue
		}
		records, score := Run(t, rawText)
		if score == 0 {
			continue
		}
		better := bestName == "" ||
			score > bestScore ||
			(score == bestScore && len(records) > len(bestRecords)) ||
			(score == bestScore && len(records) == len(bestRecords) && name < bestName)
		if better {
			bestName, bestRecords, bestScore = name, records, score
		}
	}

	return bestName, bestRecords, bestScore
}
