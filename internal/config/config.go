package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings
// coordinator - clean separation between configuration management and
// business logic
type Config struct {
	Database  *DatabaseConfig  `json:"database"`
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Collab    *CollabConfig    `json:"collab"`
}

// DatabaseConfig holds case registry storage settings.
type DatabaseConfig struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

// HTTPConfig balances performance and reliability for the API surface.
type HTTPConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Host         string        `json:"host"`
}

// WebSocketConfig tunes the live connection transport.
type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// CollabConfig tunes the collaboration core.
// FUNCTIONAL DISCOVERY: CursorStaleness is configurable but the 5s default
// must be preserved to match expected viewer UX - a cursor that stops moving
// disappears within 5 seconds
type CollabConfig struct {
	CursorStaleness time.Duration `json:"cursor_staleness"`
	ReapInterval    time.Duration `json:"reap_interval"`
	RoomTTL         time.Duration `json:"room_ttl"`
}

// DefaultConfig returns production-ready defaults for tumor board scale
// (a handful of specialists per case, tens of concurrent cases).
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./tumorboard.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Host:         "0.0.0.0",
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Collab: &CollabConfig{
			CursorStaleness: 5 * time.Second,
			ReapInterval:    5 * time.Minute,
			RoomTTL:         30 * time.Minute,
		},
	}
}

// Validate prevents invalid system configurations from reaching runtime.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= 0 {
		return fmt.Errorf("WebSocket read timeout must be positive")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}

	if c.Collab == nil {
		return fmt.Errorf("collab configuration is required")
	}
	if c.Collab.CursorStaleness <= 0 {
		return fmt.Errorf("cursor staleness window must be positive")
	}
	if c.Collab.ReapInterval <= 0 {
		return fmt.Errorf("reap interval must be positive")
	}
	if c.Collab.RoomTTL <= 0 {
		return fmt.Errorf("room TTL must be positive")
	}

	return nil
}

// LoadFromEnv returns defaults overridden by TUMORBOARD_* environment
// variables. Unparseable values fall back silently to the default.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if port := os.Getenv("TUMORBOARD_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if host := os.Getenv("TUMORBOARD_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if dbPath := os.Getenv("TUMORBOARD_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if v := os.Getenv("TUMORBOARD_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("TUMORBOARD_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.HTTP.WriteTimeout = d
		}
	}
	if v := os.Getenv("TUMORBOARD_WS_PING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WebSocket.PingInterval = d
		}
	}
	if v := os.Getenv("TUMORBOARD_CURSOR_STALENESS"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Collab.CursorStaleness = d
		}
	}
	if v := os.Getenv("TUMORBOARD_REAP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Collab.ReapInterval = d
		}
	}
	if v := os.Getenv("TUMORBOARD_ROOM_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Collab.RoomTTL = d
		}
	}

	return config
}
