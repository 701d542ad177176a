// Package config loads the server's configuration from a comment-tolerant
// JSON file and flag overrides into a single immutable Config value
// resolved once at startup, the way the teacher resolves its own
// globals-adjacent config in main.go via github.com/tinode/jsonco.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tinode/jsonco"
)

// Config is the fully resolved, immutable set of knobs the rest of the
// server is constructed from (spec §6 Configuration / §9 "Global mutable
// configuration" guidance: resolve once into an immutable value).
type Config struct {
	ListenAddr string `json:"listen_addr"`
	SQLiteDSN  string `json:"sqlite_dsn"`

	JWTSecret     string        `json:"jwt_secret"`
	AccessTTL     time.Duration `json:"access_ttl"`
	RefreshTTL    time.Duration `json:"refresh_ttl"`
	VerifyCodeTTL time.Duration `json:"verify_code_ttl"`

	RoomChannelCapacity   int           `json:"room_channel_capacity"`
	GlobalChannelCapacity int           `json:"global_channel_capacity"`
	HeartbeatInterval     time.Duration `json:"heartbeat_interval"`
	HeartbeatTimeout      time.Duration `json:"heartbeat_timeout"`

	RoomListMaxLimit int `json:"room_list_max_limit"`
}

// devJWTSecret is used only when no secret is configured, matching the
// spec's "a default is used only for development" allowance. Never use this
// in production.
const devJWTSecret = "dev-insecure-secret-change-me"

// Default returns the configuration's zero-config defaults.
func Default() Config {
	return Config{
		ListenAddr:            "127.0.0.1:8080",
		SQLiteDSN:             "./chat.db",
		JWTSecret:             devJWTSecret,
		AccessTTL:             15 * time.Minute,
		RefreshTTL:            7 * 24 * time.Hour,
		VerifyCodeTTL:         10 * time.Minute,
		RoomChannelCapacity:   1000,
		GlobalChannelCapacity: 1000,
		HeartbeatInterval:     30 * time.Second,
		HeartbeatTimeout:      90 * time.Second,
		RoomListMaxLimit:      100,
	}
}

// rawConfig mirrors Config but with Duration fields as human strings, the
// shape the JSON file is actually authored in (e.g. "15m", "7d" not
// supported by time.ParseDuration so TTL-in-days fields are read as plain
// duration strings like "168h").
type rawConfig struct {
	ListenAddr string `json:"listen_addr"`
	SQLiteDSN  string `json:"sqlite_dsn"`

	JWTSecret     string `json:"jwt_secret"`
	AccessTTL     string `json:"access_ttl"`
	RefreshTTL    string `json:"refresh_ttl"`
	VerifyCodeTTL string `json:"verify_code_ttl"`

	RoomChannelCapacity   int    `json:"room_channel_capacity"`
	GlobalChannelCapacity int    `json:"global_channel_capacity"`
	HeartbeatInterval     string `json:"heartbeat_interval"`
	HeartbeatTimeout      string `json:"heartbeat_timeout"`

	RoomListMaxLimit int `json:"room_list_max_limit"`
}

// Load reads a jsonco-filtered (// comments stripped) config file on top of
// Default(), leaving fields the file omits at their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if secret := os.Getenv("JWT_SECRET"); secret != "" {
			cfg.JWTSecret = secret
		}
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(jsonco.New(f))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var rc rawConfig
	if err := json.Unmarshal(raw, &rc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if rc.ListenAddr != "" {
		cfg.ListenAddr = rc.ListenAddr
	}
	if rc.SQLiteDSN != "" {
		cfg.SQLiteDSN = rc.SQLiteDSN
	}
	if rc.JWTSecret != "" {
		cfg.JWTSecret = rc.JWTSecret
	}
	if d, err := parseDuration(rc.AccessTTL); err == nil && d > 0 {
		cfg.AccessTTL = d
	}
	if d, err := parseDuration(rc.RefreshTTL); err == nil && d > 0 {
		cfg.RefreshTTL = d
	}
	if d, err := parseDuration(rc.VerifyCodeTTL); err == nil && d > 0 {
		cfg.VerifyCodeTTL = d
	}
	if d, err := parseDuration(rc.HeartbeatInterval); err == nil && d > 0 {
		cfg.HeartbeatInterval = d
	}
	if d, err := parseDuration(rc.HeartbeatTimeout); err == nil && d > 0 {
		cfg.HeartbeatTimeout = d
	}
	if rc.RoomChannelCapacity > 0 {
		cfg.RoomChannelCapacity = rc.RoomChannelCapacity
	}
	if rc.GlobalChannelCapacity > 0 {
		cfg.GlobalChannelCapacity = rc.GlobalChannelCapacity
	}
	if rc.RoomListMaxLimit > 0 {
		cfg.RoomListMaxLimit = rc.RoomListMaxLimit
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsDevSecret reports whether cfg is still using the built-in development
// JWT secret, so main can warn loudly instead of silently running insecure.
func (c Config) IsDevSecret() bool { return c.JWTSecret == devJWTSecret }
