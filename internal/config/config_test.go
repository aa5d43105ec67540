package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentfolio/axscore/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr %q, want :8080", cfg.Addr)
	}
	if cfg.DatabasePath != "axscore.db" {
		t.Fatalf("database path %q", cfg.DatabasePath)
	}
	if cfg.TokenDuration != time.Hour {
		t.Fatalf("token duration %v", cfg.TokenDuration)
	}
	if cfg.Workers != 2 {
		t.Fatalf("workers %d", cfg.Workers)
	}
	if cfg.Ollama.Enabled {
		t.Fatalf("ollama enabled by default")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("AX_ADDR", ":9999")
	t.Setenv("AX_OLLAMA_MODEL", "llama3.1")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr %q, want :9999", cfg.Addr)
	}
	if cfg.Ollama.Model != "llama3.1" {
		t.Fatalf("model %q, want llama3.1", cfg.Ollama.Model)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
addr: ":7070"
jwt_secret: "from-yaml"
workers: 4
scanner:
  probe_timeout: 3s
  user_agent: "axscore-test"
ollama:
  enabled: true
  model: "mistral"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.JWTSecret != "from-yaml" || cfg.Workers != 4 {
		t.Fatalf("yaml overlay not applied: %+v", cfg)
	}
	if cfg.Scanner.ProbeTimeout != 3*time.Second || cfg.Scanner.UserAgent != "axscore-test" {
		t.Fatalf("scanner overlay not applied: %+v", cfg.Scanner)
	}
	if !cfg.Ollama.Enabled || cfg.Ollama.Model != "mistral" {
		t.Fatalf("ollama overlay not applied: %+v", cfg.Ollama)
	}
	// values absent from the file keep their defaults
	if cfg.DatabasePath != "axscore.db" {
		t.Fatalf("database path %q, want default", cfg.DatabasePath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing config file accepted")
	}
}
