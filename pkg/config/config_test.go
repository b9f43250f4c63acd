package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultValidates ensures the shipped defaults pass validation.
func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

// TestLoadOverridesDefaults verifies YAML values override defaults and the
// rest stay intact.
func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostforge.yaml")

	doc := `
store:
  path: ":memory:"
server:
  hostname: cp1.example.net
  ip_address: 192.0.2.10
  name_servers: [ns1.example.net, ns2.example.net]
daemon:
  interval: 30s
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Path != ":memory:" {
		t.Errorf("store path = %q, want :memory:", cfg.Store.Path)
	}
	if cfg.Server.IPAddress != "192.0.2.10" {
		t.Errorf("ip_address = %q, want 192.0.2.10", cfg.Server.IPAddress)
	}
	if cfg.Daemon.Interval != 30*time.Second {
		t.Errorf("daemon interval = %v, want 30s", cfg.Daemon.Interval)
	}
	// untouched default
	if cfg.Services.MTA != "postfix" {
		t.Errorf("services.mta = %q, want default postfix", cfg.Services.MTA)
	}
}

// TestLoadRejectsInvalid verifies validation failures surface from Load.
func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	doc := `
server:
  ip_address: not-an-ip
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an invalid ip_address")
	}
}

// TestLoadMissingFile verifies a missing file is reported.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}
