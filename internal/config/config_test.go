package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7860 {
		t.Fatalf("port = %d, want 7860", cfg.Port)
	}
	if cfg.EncodeTimeout != 300*time.Second {
		t.Fatalf("encode timeout = %s, want 300s", cfg.EncodeTimeout)
	}
	if cfg.StorageLimitBytes != 500*1024*1024 {
		t.Fatalf("storage limit = %d", cfg.StorageLimitBytes)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SCRIDEO_PORT", "9000")
	t.Setenv("SCRIDEO_DATA_DIR", "/tmp/scrideo-test")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.DataDir != "/tmp/scrideo-test" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:              7860,
		DataDir:           "data",
		JWTSecret:         "s",
		EncodeTimeout:     time.Second,
		StorageLimitBytes: 1,
	}
	if err := base.Validate(); err != nil {
		t.Fatal(err)
	}

	bad := base
	bad.Port = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}

	bad = base
	bad.JWTSecret = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for empty secret")
	}

	bad = base
	bad.EncodeTimeout = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestDirectoryLayout(t *testing.T) {
	cfg := Config{DataDir: t.TempDir()}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if cfg.UploadsDir() != filepath.Join(cfg.DataDir, "uploads") {
		t.Fatalf("uploads dir = %q", cfg.UploadsDir())
	}
	if cfg.DatabasePath() != filepath.Join(cfg.DataDir, "scrideo.db") {
		t.Fatalf("db path = %q", cfg.DatabasePath())
	}
}
