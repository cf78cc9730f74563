package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}

	if cfg.API.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Limits.DailyQueries != 10 {
		t.Errorf("daily_queries = %d, want 10", cfg.Limits.DailyQueries)
	}
	if cfg.Limits.Conversations != 3 {
		t.Errorf("conversations = %d, want 3", cfg.Limits.Conversations)
	}
	if cfg.Limits.Sources != 5 {
		t.Errorf("sources = %d, want 5", cfg.Limits.Sources)
	}
}

func TestLoadFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  base_url: https://lens.example.com
  verify_token: abc123
limits:
  daily_queries: 25
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}

	if cfg.API.BaseURL != "https://lens.example.com" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.VerifyToken != "abc123" {
		t.Errorf("verify_token = %q", cfg.API.VerifyToken)
	}
	if cfg.Limits.DailyQueries != 25 {
		t.Errorf("daily_queries = %d, want 25", cfg.Limits.DailyQueries)
	}
	// Untouched keys keep their defaults.
	if cfg.Limits.Conversations != 3 {
		t.Errorf("conversations = %d, want default 3", cfg.Limits.Conversations)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PODLENS_API_URL", "https://env.example.com")
	t.Setenv("PODLENS_DAILY_QUERIES", "50")
	t.Setenv("PODLENS_LOG_LEVEL", "debug")

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("base_url = %q, want env override", cfg.API.BaseURL)
	}
	if cfg.Limits.DailyQueries != 50 {
		t.Errorf("daily_queries = %d, want 50", cfg.Limits.DailyQueries)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := loadFrom(path); err == nil {
		t.Fatal("loadFrom succeeded on invalid YAML")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podlens", "config.yaml")

	cfg := defaults()
	cfg.API.BaseURL = "https://saved.example.com"
	cfg.Limits.Sources = 8

	if err := saveTo(path, cfg); err != nil {
		t.Fatalf("saveTo: %v", err)
	}

	loaded, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if loaded.API.BaseURL != "https://saved.example.com" {
		t.Errorf("base_url = %q", loaded.API.BaseURL)
	}
	if loaded.Limits.Sources != 8 {
		t.Errorf("sources = %d, want 8", loaded.Limits.Sources)
	}
}

func TestShowAll_MasksToken(t *testing.T) {
	cfg := defaults()
	cfg.API.VerifyToken = "supersecret"

	for _, kv := range ShowAll(cfg) {
		if kv.Key == "api.verify_token" && kv.Value == "supersecret" {
			t.Error("verification token shown in plaintext")
		}
	}
}
