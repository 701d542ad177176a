package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsDevSecret(t *testing.T) {
	if !Default().IsDevSecret() {
		t.Fatal("expected the zero-config default to flag itself as a dev secret")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		// a comment jsonco must tolerate
		"listen_addr": "0.0.0.0:9090",
		"jwt_secret": "production-secret",
		"access_ttl": "5m",
		"room_channel_capacity": 50
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9090" {
		t.Fatalf("ListenAddr = %q, want 0.0.0.0:9090", cfg.ListenAddr)
	}
	if cfg.JWTSecret != "production-secret" {
		t.Fatalf("JWTSecret = %q, want production-secret", cfg.JWTSecret)
	}
	if cfg.IsDevSecret() {
		t.Fatal("expected a configured secret to not be flagged as the dev secret")
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Fatalf("AccessTTL = %v, want 5m", cfg.AccessTTL)
	}
	if cfg.RoomChannelCapacity != 50 {
		t.Fatalf("RoomChannelCapacity = %d, want 50", cfg.RoomChannelCapacity)
	}
	// Fields the file omits keep their Default() value.
	if cfg.SQLiteDSN != Default().SQLiteDSN {
		t.Fatalf("SQLiteDSN = %q, want the default %q", cfg.SQLiteDSN, Default().SQLiteDSN)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, want Default()", cfg)
	}
}

func TestJWTSecretEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"jwt_secret": "from-file"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("JWTSecret = %q, want from-env to take precedence over the file", cfg.JWTSecret)
	}
}
