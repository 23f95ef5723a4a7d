package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}

	if cfg.Collab.CursorStaleness != 5*time.Second {
		t.Errorf("cursor staleness default must be 5s, got %s", cfg.Collab.CursorStaleness)
	}
	if cfg.Collab.ReapInterval != 5*time.Minute {
		t.Errorf("reap interval default must be 5m, got %s", cfg.Collab.ReapInterval)
	}
	if cfg.Collab.RoomTTL != 30*time.Minute {
		t.Errorf("room TTL default must be 30m, got %s", cfg.Collab.RoomTTL)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil database", func(c *Config) { c.Database = nil }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero database timeout", func(c *Config) { c.Database.Timeout = 0 }},
		{"nil http", func(c *Config) { c.HTTP = nil }},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"nil websocket", func(c *Config) { c.WebSocket = nil }},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }},
		{"nil collab", func(c *Config) { c.Collab = nil }},
		{"zero staleness", func(c *Config) { c.Collab.CursorStaleness = 0 }},
		{"negative reap interval", func(c *Config) { c.Collab.ReapInterval = -time.Minute }},
		{"zero room ttl", func(c *Config) { c.Collab.RoomTTL = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TUMORBOARD_HTTP_PORT", "9999")
	t.Setenv("TUMORBOARD_HTTP_HOST", "127.0.0.1")
	t.Setenv("TUMORBOARD_DATABASE_PATH", "/tmp/cases.db")
	t.Setenv("TUMORBOARD_CURSOR_STALENESS", "2s")
	t.Setenv("TUMORBOARD_REAP_INTERVAL", "1m")
	t.Setenv("TUMORBOARD_ROOM_TTL", "10m")

	cfg := LoadFromEnv()
	if cfg.HTTP.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.Host != "127.0.0.1" {
		t.Errorf("expected host override, got %s", cfg.HTTP.Host)
	}
	if cfg.Database.Path != "/tmp/cases.db" {
		t.Errorf("expected database path override, got %s", cfg.Database.Path)
	}
	if cfg.Collab.CursorStaleness != 2*time.Second {
		t.Errorf("expected 2s staleness, got %s", cfg.Collab.CursorStaleness)
	}
	if cfg.Collab.ReapInterval != time.Minute {
		t.Errorf("expected 1m reap interval, got %s", cfg.Collab.ReapInterval)
	}
	if cfg.Collab.RoomTTL != 10*time.Minute {
		t.Errorf("expected 10m room TTL, got %s", cfg.Collab.RoomTTL)
	}
}

func TestLoadFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("TUMORBOARD_HTTP_PORT", "not-a-number")
	t.Setenv("TUMORBOARD_CURSOR_STALENESS", "soon")

	cfg := LoadFromEnv()
	if cfg.HTTP.Port != 8080 {
		t.Errorf("unparseable port must fall back to default, got %d", cfg.HTTP.Port)
	}
	if cfg.Collab.CursorStaleness != 5*time.Second {
		t.Errorf("unparseable staleness must fall back to default, got %s", cfg.Collab.CursorStaleness)
	}
}
