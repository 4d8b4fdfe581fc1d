package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, `
seed_ip: 10.0.0.1
username: admin
password: secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %d, want %d", cfg.Timeout, DefaultTimeout)
	}
	if cfg.MaxDevices != DefaultMaxDevices {
		t.Errorf("MaxDevices = %d, want %d", cfg.MaxDevices, DefaultMaxDevices)
	}
	if cfg.MapName != DefaultMapName {
		t.Errorf("MapName = %q, want %q", cfg.MapName, DefaultMapName)
	}
	if cfg.Layout != DefaultLayout {
		t.Errorf("Layout = %q, want %q", cfg.Layout, DefaultLayout)
	}
	if cfg.MaxWorkers != DefaultMaxWorkers {
		t.Errorf("MaxWorkers = %d, want %d", cfg.MaxWorkers, DefaultMaxWorkers)
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeTemp(t, `
seed_ip: 10.0.0.1
username: admin
password: secret
timeout: 60
max_devices: 5
map_name: lab
layout: circular
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 60 || cfg.MaxDevices != 5 || cfg.MapName != "lab" || cfg.Layout != LayoutCircular {
		t.Errorf("unexpected cfg: %#v", cfg)
	}
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv("SC_USERNAME", "envuser")
	t.Setenv("SC_PASSWORD", "envpass")
	path := writeTemp(t, `seed_ip: 10.0.0.1`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Username != "envuser" || cfg.Password != "envpass" {
		t.Errorf("expected env fallback credentials, got %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error on empty config")
	}
	cfg.SeedIP = "10.0.0.1"
	cfg.Username = "admin"
	cfg.Password = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestExcludeSubstrings(t *testing.T) {
	cfg := &Config{Exclude: "foo, bar ,,baz"}
	got := cfg.ExcludeSubstrings()
	want := []string{"foo", "bar", "baz"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
