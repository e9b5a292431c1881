package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/intake_test")
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected default env to be development")
	}
	if cfg.SessionTTLMin != 480 {
		t.Errorf("expected default session TTL 480, got %d", cfg.SessionTTLMin)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DevSecretFallback(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("SESSION_SECRET")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SessionSecret == "" {
		t.Error("expected an insecure dev secret to be filled in")
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{Env: "production", SessionTTLMin: 60, MaxAttachmentMB: 20}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without SESSION_SECRET in production")
	}
	cfg.SessionSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for short SESSION_SECRET")
	}
	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BadTTL(t *testing.T) {
	cfg := &Config{Env: "development", SessionTTLMin: 0, MaxAttachmentMB: 20}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non-positive TTL")
	}
}
