package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the zelastic server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig holds primary store settings.
type StorageConfig struct {
	Path         string `yaml:"path"`
	InMemory     bool   `yaml:"in_memory"`
	Sync         *bool  `yaml:"sync"` // fsync every write (default: true)
	BlockCacheMB int    `yaml:"block_cache_mb"`
}

// SearchConfig holds search engine connection and projection settings.
// Without addrs the server runs an embedded in-process engine.
type SearchConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Bulk             bool     `yaml:"bulk"`
	BulkSize         int      `yaml:"bulk_size"`
	PageSize         int      `yaml:"page_size"`
	MaxHits          int      `yaml:"max_hits"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Embedded reports whether no external engine is configured.
func (s SearchConfig) Embedded() bool { return len(s.Addrs) == 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.Sync == nil {
		sync := true
		c.Storage.Sync = &sync
	}
	if c.Storage.BlockCacheMB <= 0 {
		c.Storage.BlockCacheMB = 64
	}
	if c.Search.KeyPrefix == "" {
		c.Search.KeyPrefix = "zelastic:"
	}
	if c.Search.BulkSize <= 0 {
		c.Search.BulkSize = 400
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 1000
	}
	if c.Search.MaxHits <= 0 {
		c.Search.MaxHits = 10000
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if !keyPrefixRegex.MatchString(c.Search.KeyPrefix) {
		return fmt.Errorf("search.key_prefix must match %s, got %q", keyPrefixRegex, c.Search.KeyPrefix)
	}
	if c.Search.DB < 0 {
		return fmt.Errorf("search.db must be non-negative, got %d", c.Search.DB)
	}
	if c.Search.PageSize > c.Search.MaxHits {
		return fmt.Errorf("search.page_size (%d) must not exceed search.max_hits (%d)",
			c.Search.PageSize, c.Search.MaxHits)
	}
	return nil
}

var keyPrefixRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+:$`)

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
