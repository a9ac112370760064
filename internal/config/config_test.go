package config

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "HOST", "MODE", "NODE_ENV", "CERT_FILE", "KEY_FILE",
		"SHUTDOWN_TIMEOUT", "MESSAGES_PER_SECOND", "MESSAGE_BURST",
		"STUN_URLS", "TURN_URLS", "TURN_USERNAME", "TURN_PASSWORD",
		"TURN_REST_SECRET", "TURN_REST_TTL_SECONDS", "TURN_REST_PREFIX",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("Mode = %q, want dev", cfg.Mode)
	}
	if cfg.MessagesPerSecond != DefaultMessagesPerSec || cfg.MessageBurst != DefaultMessageBurst {
		t.Fatalf("rate limit = %v/%d", cfg.MessagesPerSecond, cfg.MessageBurst)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if len(cfg.STUNURLs) != 2 {
		t.Fatalf("STUNURLs = %v, want the two default servers", cfg.STUNURLs)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8443")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("MODE", "production")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("MESSAGES_PER_SECOND", "10")
	t.Setenv("MESSAGE_BURST", "20")
	t.Setenv("STUN_URLS", "stun:stun.example.com:3478")
	t.Setenv("TURN_URLS", "turn:turn.example.com:3478, turns:turn.example.com:5349")
	t.Setenv("TURN_USERNAME", "user")
	t.Setenv("TURN_PASSWORD", "pass")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:8443" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.Mode != ModeProd {
		t.Fatalf("Mode = %q, want prod", cfg.Mode)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.MessagesPerSecond != rate.Limit(10) || cfg.MessageBurst != 20 {
		t.Fatalf("rate limit = %v/%d", cfg.MessagesPerSecond, cfg.MessageBurst)
	}
	if len(cfg.TURNURLs) != 2 || cfg.TURNURLs[1] != "turns:turn.example.com:5349" {
		t.Fatalf("TURNURLs = %v", cfg.TURNURLs)
	}
}

func TestLoadNodeEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeProd {
		t.Fatalf("Mode = %q, want prod via NODE_ENV", cfg.Mode)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad mode", "MODE", "staging"},
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
		{"bad message rate", "MESSAGES_PER_SECOND", "-1"},
		{"bad burst", "MESSAGE_BURST", "zero"},
		{"bad turn ttl", "TURN_REST_TTL_SECONDS", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestStaticICEServers(t *testing.T) {
	cfg := &Config{
		STUNURLs:     []string{"stun:stun.example.com:3478"},
		TURNURLs:     []string{"turn:turn.example.com:3478"},
		TURNUsername: "user",
		TURNPassword: "pass",
	}

	servers := cfg.StaticICEServers()
	if len(servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(servers))
	}
	if servers[0].Username != "" {
		t.Fatal("STUN entry must carry no credentials")
	}
	if servers[1].Username != "user" || servers[1].Credential != "pass" {
		t.Fatalf("TURN entry = %+v", servers[1])
	}

	cfg.TURNURLs = nil
	if servers := cfg.StaticICEServers(); len(servers) != 1 {
		t.Fatalf("without TURN urls got %d servers, want 1", len(servers))
	}
}
