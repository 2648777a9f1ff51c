package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
store: memory
http:
  port: "9090"
  read_timeout: 5s
auth:
  jwt_secret: file-jwt-secret-0123456789
ticket:
  signing_secret: file-signing-secret-0123
  public_base_url: https://tickets.example.com/
notify:
  workers: 2
`)
	t.Setenv("PORT", "7070")
	t.Setenv("NOTIFY_QUEUE_SIZE", "32")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Store != StoreMemory {
		t.Fatalf("expected store memory, got %q", cfg.Store)
	}
	if cfg.HTTP.Port != "7070" {
		t.Fatalf("expected env to override port, got %q", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 15*time.Second {
		t.Fatalf("expected default write timeout kept, got %v", cfg.HTTP.WriteTimeout)
	}
	if cfg.Notify.Workers != 2 || cfg.Notify.QueueSize != 32 {
		t.Fatalf("unexpected notify config: %+v", cfg.Notify)
	}
	if cfg.Ticket.PublicBaseURL != "https://tickets.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Ticket.PublicBaseURL)
	}
}

func TestLoad_RejectsShortSecrets(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: short
ticket:
  signing_secret: short
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"jwt_secret", "signing_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoad_InvalidIntEnv(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: file-jwt-secret-0123456789
ticket:
  signing_secret: file-signing-secret-0123
`)
	t.Setenv("NOTIFY_WORKERS", "many")

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "NOTIFY_WORKERS") {
		t.Fatalf("expected NOTIFY_WORKERS parse error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
