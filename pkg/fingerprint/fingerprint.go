// Package fingerprint implements the per-device probe sequence (C4):
// prompt detection, paging disable, and vendor/platform classification
// via show version, against any pkg/sshsession.Session implementation.
package fingerprint

import (
	"regexp"
	"strings"
	"time"

	"github.com/topolens/topolens/pkg/crawlerrors"
	"github.com/topolens/topolens/pkg/sshsession"
	"github.com/topolens/topolens/pkg/template"
)

// Platform labels per §4.4.
const (
	PlatformIOS     = "ios"
	PlatformNXOS    = "nxos_ssh"
	PlatformEOS     = "eos"
	PlatformJunos   = "junos"
	PlatformProcurve = "procurve"
	PlatformUnknown = "unknown"
)

// pagingSleep is the inter-command pacing from §5 ("sleep between paging
// commands, default 500 ms"). A variable so tests can shrink it.
var pagingSleep = 500 * time.Millisecond

var errorLineRe = regexp.MustCompile(`(?i)%\s?(error|invalid|bad|unknown|incomplete|unrecognized)`)

// Version is the normalized show-version shape from §4.4.
type Version struct {
	Hostname        string
	Image           string
	VersionString   string
	Model           string
	UptimeComponents string
	BootReason      string
	Serials         []string
	MACs            []string
	MemoryTotal     string
	MemoryFree      string
}

// Result is everything the fingerprinter established about a device.
type Result struct {
	Prompt   string
	Vendor   string
	Platform string
	Version  Version
}

// BlacklistFunc rejects a detected prompt matching an operator deny
// pattern, per §4.4's blacklist hook.
type BlacklistFunc func(prompt string) bool

// DebugHook observes the raw output of a command issued against the
// device, plus the template matched against it (empty if none), letting
// a caller capture it for later inspection without the fingerprinter
// itself knowing anything about storage or formatting.
type DebugHook func(command, output, matchedTemplate string, score int)

// Fingerprinter drives the INIT→PROMPT_DETECT→PAGING_DISABLE→VERSION_CLASSIFY
// state machine over a single open Session.
type Fingerprinter struct {
	session   sshsession.Session
	engine    *template.Engine
	blacklist BlacklistFunc
	debugHook DebugHook
}

// New builds a Fingerprinter. blacklist may be nil to accept every prompt.
func New(session sshsession.Session, engine *template.Engine, blacklist BlacklistFunc) *Fingerprinter {
	return &Fingerprinter{session: session, engine: engine, blacklist: blacklist}
}

// SetDebugHook registers a DebugHook invoked after every command read
// during fingerprinting. Passing nil disables capture.
func (f *Fingerprinter) SetDebugHook(hook DebugHook) {
	f.debugHook = hook
}

func (f *Fingerprinter) capture(command, output, matchedTemplate string, score int) {
	if f.debugHook != nil {
		f.debugHook(command, output, matchedTemplate, score)
	}
}

// Run drives the full state machine and returns the classified Result, or
// a *crawlerrors.KindError describing which phase failed. addr is used
// only to annotate errors.
func (f *Fingerprinter) Run(addr string) (*Result, error) {
	prompt, err := f.detectPrompt(addr)
	if err != nil {
		return nil, err
	}

	vendor, err := f.disablePaging(addr, prompt)
	if err != nil {
		return nil, err
	}

	ver, platform, err := f.classifyVersion(addr, prompt)
	if err != nil {
		return nil, err
	}

	return &Result{Prompt: prompt, Vendor: vendor, Platform: platform, Version: ver}, nil
}

// detectPrompt implements PROMPT_DETECT.
func (f *Fingerprinter) detectPrompt(addr string) (string, error) {
	if err := f.session.SendLine(""); err != nil {
		return "", crawlerrors.TransportError(addr, "prompt detect newline", err)
	}
	out, err := f.session.ReadUntilIdle("", sshsession.DefaultOverallTimeout, sshsession.DefaultIdleTimeout)
	if err != nil {
		return "", crawlerrors.TransportError(addr, "prompt detect read", err)
	}

	prompt := lastPromptToken(out)
	if prompt == "" {
		return "", crawlerrors.PromptUndetectedError(addr)
	}
	if f.blacklist != nil && f.blacklist(prompt) {
		return "", crawlerrors.BlacklistedError(addr, prompt)
	}
	return prompt, nil
}

// lastPromptToken scans lines in reverse for one ending in #, >, or $ and
// returns the full trailing whitespace-delimited token.
func lastPromptToken(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r\n \t")
		if line == "" {
			continue
		}
		last := line[len(line)-1]
		if last != '#' && last != '>' && last != '$' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return fields[len(fields)-1]
	}
	return ""
}

// disablePaging implements PAGING_DISABLE.
func (f *Fingerprinter) disablePaging(addr, prompt string) (string, error) {
	for _, set := range orderedPagingSets(prompt) {
		ok, err := f.trySet(addr, prompt, set)
		if err != nil {
			return "", err
		}
		if ok {
			return set.vendor, nil
		}
	}
	return "", crawlerrors.PagingFailedError(addr)
}

func (f *Fingerprinter) trySet(addr, prompt string, set pagingCommandSet) (bool, error) {
	for i, cmd := range set.commands {
		if err := f.session.SendLine(cmd); err != nil {
			return false, crawlerrors.TransportError(addr, "paging command", err)
		}
		out, err := f.session.ReadUntilIdle(prompt, sshsession.DefaultOverallTimeout, sshsession.DefaultIdleTimeout)
		if err != nil {
			return false, crawlerrors.TransportError(addr, "paging read", err)
		}
		f.capture(cmd, out, "", 0)
		if errorLineRe.MatchString(out) {
			return false, nil
		}
		if i < len(set.commands)-1 {
			time.Sleep(pagingSleep)
		}
	}
	return true, nil
}

// versionFilter maps a marker substring found in show-version output to
// the C2 template-name filter, per §4.4.
var versionFilter = []struct {
	marker []string
	filter string
}{
	{[]string{"eos", "arista"}, "arista_eos_show_version"},
	{[]string{"nexus", "nx-os"}, "cisco_nxos_show_version"},
	{[]string{"cisco ios"}, "cisco_ios_show_version"},
	{[]string{"junos"}, "juniper_junos_show_version"},
}

func filterFor(output string) string {
	lower := strings.ToLower(output)
	for _, vf := range versionFilter {
		for _, m := range vf.marker {
			if strings.Contains(lower, m) {
				return vf.filter
			}
		}
	}
	return ""
}

// filterToPlatform maps a resolved template filter to a platform label.
var filterToPlatform = map[string]string{
	"arista_eos_show_version":   PlatformEOS,
	"cisco_nxos_show_version":   PlatformNXOS,
	"cisco_ios_show_version":    PlatformIOS,
	"juniper_junos_show_version": PlatformJunos,
}

// classifyVersion implements VERSION_CLASSIFY, including the mandated
// single NX-OS retry when an IOS-classified record yields a literal
// Kernel/Unknown hostname (§4.4, §9 note 2).
func (f *Fingerprinter) classifyVersion(addr, prompt string) (Version, string, error) {
	ver, template, retryable, err := f.runShowVersion(addr, prompt)
	if err != nil {
		return Version{}, "", err
	}

	platform := filterToPlatform[template]
	if platform == "" {
		platform = PlatformUnknown
	}

	if platform == PlatformIOS && retryable && isKernelOrUnknown(ver.Hostname) {
		retryVer, retryTemplate, _, rerr := f.runShowVersionFiltered(addr, prompt, "cisco_nxos_show_version")
		if rerr == nil && retryTemplate != "" {
			return retryVer, PlatformNXOS, nil
		}
		return ver, PlatformUnknown, nil
	}

	return ver, platform, nil
}

func isKernelOrUnknown(hostname string) bool {
	return hostname == "Kernel" || hostname == "Unknown"
}

func (f *Fingerprinter) runShowVersion(addr, prompt string) (Version, string, bool, error) {
	if err := f.session.SendLine("show version"); err != nil {
		return Version{}, "", false, crawlerrors.TransportError(addr, "show version", err)
	}
	out, err := f.session.ReadUntilIdle(prompt, sshsession.DefaultOverallTimeout, sshsession.DefaultIdleTimeout)
	if err != nil {
		return Version{}, "", false, crawlerrors.TransportError(addr, "show version read", err)
	}

	filter := filterFor(out)
	name, records, score := f.engine.FindBestTemplate(out, filter)
	f.capture("show version", out, name, score)
	if name == "" {
		return Version{}, "", false, crawlerrors.VersionParseFailedError(addr)
	}
	return versionFromRecords(records), name, true, nil
}

func (f *Fingerprinter) runShowVersionFiltered(addr, prompt, filter string) (Version, string, bool, error) {
	if err := f.session.SendLine("show version"); err != nil {
		return Version{}, "", false, crawlerrors.TransportError(addr, "show version retry", err)
	}
	out, err := f.session.ReadUntilIdle(prompt, sshsession.DefaultOverallTimeout, sshsession.DefaultIdleTimeout)
	if err != nil {
		return Version{}, "", false, crawlerrors.TransportError(addr, "show version retry read", err)
	}
	name, records, score := f.engine.FindBestTemplate(out, filter)
	f.capture("show version", out, name, score)
	if name == "" {
		return Version{}, "", false, nil
	}
	return versionFromRecords(records), name, true, nil
}

func versionFromRecords(records []template.Record) Version {
	if len(records) == 0 {
		return Version{}
	}
	r := records[0]
	return Version{
		Hostname:         stringField(r, "HOSTNAME"),
		Image:            stringField(r, "IMAGE"),
		VersionString:    stringField(r, "VERSION"),
		Model:            stringField(r, "HARDWARE"),
		UptimeComponents: stringField(r, "UPTIME"),
		BootReason:       stringField(r, "RELOAD_REASON"),
		Serials:          sliceField(r, "SERIAL"),
		MACs:             sliceField(r, "MAC_ADDRESS"),
		MemoryTotal:      stringField(r, "MEMORY_TOTAL"),
		MemoryFree:       stringField(r, "MEMORY_FREE"),
	}
}

func stringField(r template.Record, name string) string {
	v, ok := r[name]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func sliceField(r template.Record, name string) []string {
	v, ok := r[name]
	if !ok {
		return nil
	}
	if s, ok := v.([]string); ok {
		return s
	}
	return nil
}
