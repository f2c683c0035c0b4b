// Package config loads swrangler settings from the environment, .confluence
// dotenv files and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swrangler/pkg/analytics"
	"github.com/Sternrassler/swrangler/pkg/cache"
	"github.com/Sternrassler/swrangler/pkg/client"
	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// EnvFileName is the dotenv file holding Confluence credentials.
const EnvFileName = ".confluence"

// Environment keys beyond the credential variables in pkg/client.
const (
	EnvTimeout        = "SWRANGLER_TIMEOUT"
	EnvPageLimit      = "SWRANGLER_PAGE_LIMIT"
	EnvWorkers        = "SWRANGLER_WORKERS"
	EnvRedisURL       = "SWRANGLER_REDIS_URL"
	EnvCacheTTL       = "SWRANGLER_CACHE_TTL"
	EnvLedger         = "SWRANGLER_LEDGER"
	EnvPushgatewayURL = "SWRANGLER_PUSHGATEWAY_URL"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTELEnabled    = "OTEL_ENABLED"
)

// DefaultPageLimit is the listing page size.
const DefaultPageLimit = 100

// Config is the resolved configuration of one run.
type Config struct {
	// Credentials only come from the environment.
	Domain string `yaml:"-"`
	User   string `yaml:"-"`
	Token  string `yaml:"-"`

	Timeout   time.Duration         `yaml:"timeout"`
	PageLimit int                   `yaml:"page_limit"`
	Workers   int                   `yaml:"workers"`
	Retry     analytics.RetryPolicy `yaml:"retry"`

	Cache          CacheConfig   `yaml:"cache"`
	Ledger         string        `yaml:"ledger"`
	PushgatewayURL string        `yaml:"pushgateway_url"`
	Tracing        TracingConfig `yaml:"tracing"`
}

// CacheConfig enables the Redis listing cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
	Environment  string  `yaml:"environment"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Timeout:   75 * time.Second,
		PageLimit: DefaultPageLimit,
		Retry:     analytics.DefaultRetryPolicy(),
		Cache: CacheConfig{
			TTL: cache.DefaultTTL,
		},
		Ledger: DefaultLedgerPath(),
		Tracing: TracingConfig{
			SampleRate:  1.0,
			Environment: "production",
		},
	}
}

// DefaultLedgerPath returns ~/.swrangler/runs.db.
func DefaultLedgerPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".swrangler", "runs.db")
}

// LoadEnvFiles loads the first .confluence file found in dirs into the
// process environment without overriding variables already set. It returns
// the loaded path, or "" when no file exists.
func LoadEnvFiles(dirs ...string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, EnvFileName)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("load %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// DefaultEnvDirs returns the working directory and then the home directory.
func DefaultEnvDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}

// Load resolves the configuration: defaults, then the YAML file at path
// (skipped when empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	c.Domain = strings.TrimSpace(getenv(client.EnvDomain))
	c.User = strings.TrimSpace(getenv(client.EnvUser))
	c.Token = strings.TrimSpace(getenv(client.EnvToken))

	if v := getenv(EnvTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return envError(EnvTimeout, v, err)
		}
		c.Timeout = d
	}
	if v := getenv(EnvPageLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvPageLimit, v, err)
		}
		c.PageLimit = n
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvWorkers, v, err)
		}
		c.Workers = n
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
	}
	if v := getenv(EnvCacheTTL); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return envError(EnvCacheTTL, v, err)
		}
		c.Cache.TTL = d
	}
	if v := getenv(EnvLedger); v != "" {
		c.Ledger = v
	}
	if v := getenv(EnvPushgatewayURL); v != "" {
		c.PushgatewayURL = v
	}
	if v := getenv(EnvOTLPEndpoint); v != "" {
		c.Tracing.OTLPEndpoint = v
		c.Tracing.Enabled = true
	}
	if v := getenv(EnvOTELEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvOTELEnabled, v, err)
		}
		c.Tracing.Enabled = enabled
	}
	return nil
}

// Validate checks tuning values. Credentials are checked by client.New.
func (c Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return &client.ConfigurationError{Reason: fmt.Sprintf("timeout must be positive, got %s", c.Timeout)}
	case c.PageLimit < 1:
		return &client.ConfigurationError{Reason: fmt.Sprintf("page limit must be >= 1, got %d", c.PageLimit)}
	case c.Workers < 0:
		return &client.ConfigurationError{Reason: fmt.Sprintf("workers must be >= 0, got %d", c.Workers)}
	case c.Cache.TTL < 0:
		return &client.ConfigurationError{Reason: "cache ttl must not be negative"}
	}
	return c.Retry.Validate()
}

// ClientConfig returns the HTTP client settings.
func (c Config) ClientConfig() client.Config {
	cc := client.DefaultConfig(c.Domain, c.User, c.Token)
	cc.Timeout = c.Timeout
	return cc
}

// CollectorConfig returns the analytics collector settings.
func (c Config) CollectorConfig() analytics.Config {
	cc := analytics.DefaultConfig()
	if c.Workers > 0 {
		cc.Workers = c.Workers
	}
	cc.Retry = c.Retry
	return cc
}

// parseDuration accepts Go durations ("90s") and bare seconds ("90").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func envError(key, value string, err error) error {
	return &client.ConfigurationError{Reason: fmt.Sprintf("%s=%q: %v", key, value, err)}
}
