// Package config loads the discovery run configuration from YAML, with
// environment-variable fallbacks for credentials, per §6.
package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Layout is the caller-forwarded visualization hint; the core never
// interprets it.
type Layout string

const (
	LayoutKK           Layout = "kk"
	LayoutRT           Layout = "rt"
	LayoutCircular     Layout = "circular"
	LayoutMultipartite Layout = "multipartite"
)

// Config is the YAML-shaped run configuration from §6.
type Config struct {
	SeedIP             string `yaml:"seed_ip"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	AlternateUsername  string `yaml:"alternate_username"`
	AlternatePassword  string `yaml:"alternate_password"`
	DomainName         string `yaml:"domain_name"`
	Exclude            string `yaml:"exclude"`
	OutputDir          string `yaml:"output_dir"`
	Timeout            int    `yaml:"timeout"`
	MaxDevices         int    `yaml:"max_devices"`
	MapName            string `yaml:"map_name"`
	Layout             Layout `yaml:"layout"`
	Verbose            bool   `yaml:"verbose"`
	SaveDebugInfo      bool   `yaml:"save_debug_info"`
	MaxWorkers         int    `yaml:"max_workers"`
}

const (
	DefaultTimeout    = 30
	DefaultMaxDevices = 100
	DefaultMapName    = "network_map"
	DefaultLayout     = LayoutKK
	DefaultMaxWorkers = 5
)

// Load reads a YAML config file, applies env-var credential fallbacks,
// and fills in §6's documented defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvFallbacks()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnvFallbacks() {
	if c.Username == "" {
		c.Username = os.Getenv("SC_USERNAME")
	}
	if c.Password == "" {
		c.Password = os.Getenv("SC_PASSWORD")
	}
	if c.AlternateUsername == "" {
		c.AlternateUsername = os.Getenv("SC_ALT_USERNAME")
	}
	if c.AlternatePassword == "" {
		c.AlternatePassword = os.Getenv("SC_ALT_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxDevices <= 0 {
		c.MaxDevices = DefaultMaxDevices
	}
	if c.MapName == "" {
		c.MapName = DefaultMapName
	}
	if c.Layout == "" {
		c.Layout = DefaultLayout
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
}

// ExcludeSubstrings splits the comma-separated Exclude field.
func (c *Config) ExcludeSubstrings() []string {
	if c.Exclude == "" {
		return nil
	}
	parts := strings.Split(c.Exclude, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports a configuration error (exit code 2 territory) for
// missing required fields.
func (c *Config) Validate() error {
	if c.SeedIP == "" {
		return fmt.Errorf("seed_ip is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required (set in config or SC_USERNAME)")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required (set in config or SC_PASSWORD)")
	}
	return nil
}

// PromptPassword reads a password from the terminal without echoing it,
// used when neither the config file nor SC_PASSWORD supplied one.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}
