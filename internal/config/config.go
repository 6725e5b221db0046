package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Backend selects which integration path the stores are wired to.
const (
	BackendREST     = "rest"
	BackendSupabase = "supabase"
)

// Cache backend names.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	LogLevel string `yaml:"logLevel"`
	AppTitle string `yaml:"appTitle"`
	Backend  string `yaml:"backend"`

	APIBaseURL            string  `yaml:"apiBaseURL"`
	APITimeoutSeconds     int     `yaml:"apiTimeoutSeconds"`
	APIMaxRetries         int     `yaml:"apiMaxRetries"`
	APIRetryDelayMillis   int     `yaml:"apiRetryDelayMillis"`
	APIRateLimitPerSecond float64 `yaml:"apiRateLimitPerSecond"`

	SupabaseURL     string `yaml:"supabaseURL"`
	SupabaseAnonKey string `yaml:"supabaseAnonKey"`

	CacheBackend  string `yaml:"cacheBackend"`
	CacheDir      string `yaml:"cacheDir"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSupabase
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = CacheFile
	}
	if cfg.APITimeoutSeconds <= 0 {
		cfg.APITimeoutSeconds = 10
	}
	if cfg.APIMaxRetries <= 0 {
		cfg.APIMaxRetries = 3
	}
	if cfg.APIRetryDelayMillis <= 0 {
		cfg.APIRetryDelayMillis = 1000
	}
	if v := os.Getenv("SHICI_BACKEND"); v != "" {
		cfg.Backend = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHICI_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHICI_API_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.APITimeoutSeconds = n
		}
	}
	if v := os.Getenv("SHICI_API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.APIMaxRetries = n
		}
	}
	if v := os.Getenv("SHICI_API_RATE_LIMIT_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.APIRateLimitPerSecond = f
		}
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.SupabaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.SupabaseAnonKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHICI_CACHE_BACKEND"); v != "" {
		cfg.CacheBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHICI_CACHE_DIR"); v != "" {
		cfg.CacheDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	switch cfg.Backend {
	case BackendREST:
		if cfg.APIBaseURL == "" {
			return errors.New("config: apiBaseURL is required for the rest backend (set in config.yaml or SHICI_API_BASE_URL)")
		}
	case BackendSupabase:
		if cfg.SupabaseURL == "" {
			return errors.New("config: supabaseURL is required (set in config.yaml or SUPABASE_URL)")
		}
		if cfg.SupabaseAnonKey == "" {
			return errors.New("config: supabaseAnonKey is required (set in config.yaml or SUPABASE_ANON_KEY)")
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want %q or %q)", cfg.Backend, BackendREST, BackendSupabase)
	}
	switch cfg.CacheBackend {
	case CacheFile:
		if cfg.CacheDir == "" {
			return errors.New("config: cacheDir is required for the file cache")
		}
	case CacheRedis:
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the redis cache")
		}
	case CacheMemory:
	default:
		return fmt.Errorf("config: unknown cacheBackend %q", cfg.CacheBackend)
	}
	return nil
}

// APITimeout returns the transport timeout as a duration.
func (c FileConfig) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// APIRetryDelay returns the fixed delay between retry attempts.
func (c FileConfig) APIRetryDelay() time.Duration {
	return time.Duration(c.APIRetryDelayMillis) * time.Millisecond
}
