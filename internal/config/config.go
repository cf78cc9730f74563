// Package config loads podlens settings from an XDG-located YAML file,
// a local .env file, and PODLENS_* environment variables, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Limits  LimitsConfig  `yaml:"limits"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// VerifyToken, when set, is sent on every mutating request. Leave
	// empty for deployments without bot verification.
	VerifyToken string `yaml:"verify_token"`
}

type LimitsConfig struct {
	// DailyQueries seeds the remaining-queries display; the server's
	// echoed value replaces it after the first response.
	DailyQueries  int `yaml:"daily_queries"`
	Conversations int `yaml:"conversations"`
	Sources       int `yaml:"sources"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://127.0.0.1:8000",
			TimeoutSeconds: 30,
		},
		Limits: LimitsConfig{
			DailyQueries:  10,
			Conversations: 3,
			Sources:       5,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "podlens-data"
		}
	}
	return filepath.Join(dir, "podlens")
}

// Path returns the config file location.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "podlens", "config.yaml")
}

// Load reads the config file (if present), a .env file in the working
// directory (if present), and applies PODLENS_* environment overrides.
func Load() (Config, error) {
	godotenv.Load()
	return loadFrom(Path())
}

func loadFrom(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("missing required config: api.base_url (set PODLENS_API_URL or edit %s)", path)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PODLENS_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PODLENS_VERIFY_TOKEN"); v != "" {
		cfg.API.VerifyToken = v
	}
	if v := os.Getenv("PODLENS_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("PODLENS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v, err := strconv.Atoi(os.Getenv("PODLENS_DAILY_QUERIES")); err == nil && v > 0 {
		cfg.Limits.DailyQueries = v
	}
	if v, err := strconv.Atoi(os.Getenv("PODLENS_CONVERSATIONS")); err == nil && v > 0 {
		cfg.Limits.Conversations = v
	}
	if v, err := strconv.Atoi(os.Getenv("PODLENS_TIMEOUT_SECONDS")); err == nil && v > 0 {
		cfg.API.TimeoutSeconds = v
	}
}

// Save writes the config back to its file, creating the directory on
// first use.
func Save(cfg Config) error {
	return saveTo(Path(), cfg)
}

func saveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// KV is one displayable config entry.
type KV struct {
	Key   string
	Value string
}

// ShowAll flattens the config for `podlens config show`. The verification
// token is masked.
func ShowAll(cfg Config) []KV {
	token := cfg.API.VerifyToken
	if token != "" {
		token = "********"
	}
	return []KV{
		{"api.base_url", cfg.API.BaseURL},
		{"api.timeout_seconds", strconv.Itoa(cfg.API.TimeoutSeconds)},
		{"api.verify_token", token},
		{"limits.daily_queries", strconv.Itoa(cfg.Limits.DailyQueries)},
		{"limits.conversations", strconv.Itoa(cfg.Limits.Conversations)},
		{"limits.sources", strconv.Itoa(cfg.Limits.Sources)},
		{"storage.data_dir", cfg.Storage.DataDir},
		{"log.level", cfg.Log.Level},
	}
}

// SetKey updates one dotted key in the config file.
func SetKey(key, value string) error {
	cfg, err := loadFrom(Path())
	if err != nil {
		return err
	}

	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		return n, nil
	}

	switch key {
	case "api.base_url":
		cfg.API.BaseURL = value
	case "api.verify_token":
		cfg.API.VerifyToken = value
	case "api.timeout_seconds":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.API.TimeoutSeconds = n
	case "limits.daily_queries":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Limits.DailyQueries = n
	case "limits.conversations":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Limits.Conversations = n
	case "limits.sources":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Limits.Sources = n
	case "storage.data_dir":
		cfg.Storage.DataDir = value
	case "log.level":
		cfg.Log.Level = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Save(cfg)
}
