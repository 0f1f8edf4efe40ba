package main

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, "--tls-key"},
		{"zero analysis timeout", func(c *Config) { c.analysisTimeout = 0 }, "must be positive"},
		{"negative session timeout", func(c *Config) { c.sessionTimeout = -time.Second }, "session-timeout"},
		{"no rate", func(c *Config) { c.rateLimit = 0 }, "rate-limit"},
		{"blank model", func(c *Config) { c.model = " " }, "--model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := testConfig()
	if cfg.scheme() != "http" {
		t.Fatal("expected http without certificates")
	}
	cfg.tlsCert, cfg.tlsKey = "c", "k"
	if cfg.scheme() != "https" {
		t.Fatal("expected https with certificates")
	}
}

func TestNewCmdDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	if cfg.port != 8080 || cfg.model != defaultModel || cfg.db != "meetingbingo.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestNewCmdReadsEnv(t *testing.T) {
	t.Setenv("MEETINGBINGO_PORT", "9090")
	t.Setenv("MEETINGBINGO_SESSION_TIMEOUT", "5m")
	t.Setenv("MEETINGBINGO_PROFILE", "true")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg := &Config{}
	newCmd(cfg)

	if cfg.port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.port)
	}
	if cfg.sessionTimeout != 5*time.Minute {
		t.Fatalf("expected 5m session timeout, got %s", cfg.sessionTimeout)
	}
	if !cfg.profile {
		t.Fatal("expected profile enabled")
	}
	if cfg.apiKey != "secret" {
		t.Fatal("expected api key from GEMINI_API_KEY")
	}
	if got := cfg.geminiConfig(); got.APIKey != "secret" || got.Model != defaultModel {
		t.Fatalf("unexpected gemini config %+v", got)
	}
}

func TestNewCmdPrefixedEnvWins(t *testing.T) {
	t.Setenv("MEETINGBINGO_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "plain")

	cfg := &Config{}
	newCmd(cfg)

	if cfg.apiKey != "prefixed" {
		t.Fatalf("expected prefixed env to win, got %q", cfg.apiKey)
	}
}

func TestSetupLoggingUnknownLevel(t *testing.T) {
	cfg := testConfig()
	cfg.logLevel = "loud"
	setupLogging(cfg) // must not panic
	cfg.logLevel = "debug"
	setupLogging(cfg)
}
