package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "upstream:\n  base_url: http://store:8081\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Fatalf("http_addr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}
	if cfg.RefreshInterval() != 30*time.Second {
		t.Fatalf("refresh interval = %v", cfg.RefreshInterval())
	}
	if cfg.BackoffCap() != 5*time.Minute {
		t.Fatalf("backoff cap = %v", cfg.BackoffCap())
	}
	if cfg.UpstreamTimeout() != 10*time.Second {
		t.Fatalf("upstream timeout = %v", cfg.UpstreamTimeout())
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadReadsAllSections(t *testing.T) {
	path := writeFile(t, `
http_addr: ":9090"
log_level: debug
upstream:
  base_url: http://store:8081
  token: sekrit
  timeout_sec: 3
poll:
  interval_sec: 10
  backoff_cap_sec: 60
probe:
  snmp_community: lab
  dns_server: 10.0.0.53:53
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Upstream.Token != "sekrit" || cfg.UpstreamTimeout() != 3*time.Second {
		t.Fatalf("upstream = %+v", cfg.Upstream)
	}
	if cfg.RefreshInterval() != 10*time.Second || cfg.BackoffCap() != time.Minute {
		t.Fatalf("poll = %+v", cfg.Poll)
	}
	if cfg.Probe.SNMPCommunity != "lab" || cfg.Probe.DNSServer != "10.0.0.53:53" {
		t.Fatalf("probe = %+v", cfg.Probe)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "http_addr: \":9090\"\nupstream:\n  base_url: http://file:1\n")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("UPSTREAM_URL", "http://env:2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("http_addr = %q, env should win", cfg.HTTPAddr)
	}
	if cfg.Upstream.BaseURL != "http://env:2" {
		t.Fatalf("base_url = %q, env should win", cfg.Upstream.BaseURL)
	}
}

func TestValidateRequiresUpstream(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("missing upstream.base_url accepted")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "upstream: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}
