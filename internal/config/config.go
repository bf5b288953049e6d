// Package config loads engine settings from a YAML file with
// environment-variable overrides for the common deployment knobs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPAddr        = ":8082"
	DefaultLogLevel        = "info"
	DefaultRefreshSec      = 30
	DefaultBackoffCapSec   = 300
	DefaultUpstreamTimeout = 10 * time.Second
)

// Config holds the full engine configuration.
type Config struct {
	HTTPAddr string         `yaml:"http_addr"`
	LogLevel string         `yaml:"log_level"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Poll     PollConfig     `yaml:"poll"`
	Probe    ProbeConfig    `yaml:"probe"`
}

// UpstreamConfig points at the map store the engine fronts.
type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// PollConfig controls the map refresh loop.
type PollConfig struct {
	IntervalSec   int `yaml:"interval_sec"`
	BackoffCapSec int `yaml:"backoff_cap_sec"`
}

// ProbeConfig controls the SNMP/DNS suggestion probes.
type ProbeConfig struct {
	SNMPCommunity string `yaml:"snmp_community"`
	SNMPVersion   string `yaml:"snmp_version"`
	DNSServer     string `yaml:"dns_server"`
}

// Load reads a YAML config file, applies env overrides and defaults.
// An empty path yields an env-and-defaults-only configuration.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.Upstream.BaseURL = envOr("UPSTREAM_URL", cfg.Upstream.BaseURL)
	cfg.Upstream.Token = envOr("UPSTREAM_TOKEN", cfg.Upstream.Token)

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Validate checks required fields after defaults are applied.
func Validate(cfg Config) error {
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Upstream.TimeoutSec <= 0 {
		cfg.Upstream.TimeoutSec = int(DefaultUpstreamTimeout / time.Second)
	}
	if cfg.Poll.IntervalSec <= 0 {
		cfg.Poll.IntervalSec = DefaultRefreshSec
	}
	if cfg.Poll.BackoffCapSec <= 0 {
		cfg.Poll.BackoffCapSec = DefaultBackoffCapSec
	}
}

// RefreshInterval returns the poll interval as a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSec) * time.Second
}

// BackoffCap returns the maximum refresh backoff as a duration.
func (c Config) BackoffCap() time.Duration {
	return time.Duration(c.Poll.BackoffCapSec) * time.Second
}

// UpstreamTimeout returns the per-request upstream timeout.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSec) * time.Second
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
