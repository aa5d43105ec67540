package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`
	Workers       int           `yaml:"workers"`
	Scanner       ScannerConfig `yaml:"scanner"`
	Ollama        OllamaConfig  `yaml:"ollama"`
}

type ScannerConfig struct {
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	BodyLimit    int64         `yaml:"body_limit"`
	UserAgent    string        `yaml:"user_agent"`
}

type OllamaConfig struct {
	Enabled                 bool          `yaml:"enabled"`
	BaseURL                 string        `yaml:"base_url"`
	Model                   string        `yaml:"model"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

// LoadConfig builds a config from env-backed defaults, then overlays the YAML
// file at path when given.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("AX_ADDR", ":8080"),
		JWTSecret:     getEnv("AX_JWT_SECRET", "supersecretkey"),
		APITimeout:    30 * time.Second,
		DatabasePath:  getEnv("AX_DATABASE_PATH", "axscore.db"),
		TokenDuration: 1 * time.Hour,
		Workers:       2,
		Ollama: OllamaConfig{
			BaseURL: getEnv("AX_OLLAMA_URL", "http://localhost:11434"),
			Model:   getEnv("AX_OLLAMA_MODEL", "llama3.2"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
