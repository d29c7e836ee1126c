package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"thematic/internal/domain"
)

// Config holds all configuration for the coding tool.
type Config struct {
	Coding     CodingConfig     `yaml:"coding"`
	Retry      RetryConfig      `yaml:"retry"`
	Provider   ProviderConfig   `yaml:"provider"`
	Identities IdentitiesConfig `yaml:"identities"`
	Input      InputConfig      `yaml:"input"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CodingConfig holds fan-out and chunking configuration.
type CodingConfig struct {
	MaxParallelCalls int  `yaml:"max_parallel_calls"`
	ChunkMaxTokens   int  `yaml:"chunk_max_tokens"`
	Simulate         bool `yaml:"simulate"` // Skip the provider and return synthetic results
}

// RetryConfig holds retry configuration for provider calls.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout"`
}

// Policy converts the retry section into a domain.RetryPolicy.
func (r RetryConfig) Policy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:       r.MaxAttempts,
		BaseDelay:         r.BaseDelay,
		PerAttemptTimeout: r.PerAttemptTimeout,
	}
}

// ProviderConfig holds completion provider configuration.
type ProviderConfig struct {
	Name        string  `yaml:"name"`        // "openai", "deepseek", "ollama", "gemini"
	Model       string  `yaml:"model"`       // e.g., "gpt-4o"
	BaseURL     string  `yaml:"base_url"`    // Empty means the provider default
	APIKeyEnv   string  `yaml:"api_key_env"` // Environment variable for API key
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// CacheSize bounds the in-process cache of identical prompts. Zero
	// disables it.
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// IdentitiesConfig locates the identities file.
type IdentitiesConfig struct {
	Path string `yaml:"path"`
}

// InputConfig selects interaction files.
type InputConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// StoreConfig holds result checkpoint configuration.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Relative paths resolve against the root directory
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`        // "json" or "text"
	DebugContent bool   `yaml:"debug_content"` // Allow raw provider output in debug logs
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Coding: CodingConfig{
			MaxParallelCalls: 5,
			ChunkMaxTokens:   500,
			Simulate:         false,
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			BaseDelay:         time.Second,
			PerAttemptTimeout: 30 * time.Second,
		},
		Provider: ProviderConfig{
			Name:        "openai",
			Model:       "gpt-4o",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.7,
			MaxTokens:   1000,
			CacheTTL:    10 * time.Minute,
		},
		Identities: IdentitiesConfig{
			Path: "identities.yaml",
		},
		Input: InputConfig{
			Includes: []string{"**/*.txt", "**/*.md", "**/*.json", "**/*.jsonl"},
			Excludes: []string{"**/.git/**", "**/.thematic/**", "**/node_modules/**", "identities.yaml", "thematic.yaml"},
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(".thematic", "results.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	loadEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for thematic.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "thematic.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".thematic", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Defaults plus environment
	return Load("")
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the values the coding pipeline depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Coding.MaxParallelCalls < 1 {
		errs = append(errs, errors.New("coding.max_parallel_calls must be >= 1"))
	}
	if c.Coding.ChunkMaxTokens < 1 {
		errs = append(errs, errors.New("coding.chunk_max_tokens must be >= 1"))
	}
	if err := c.Retry.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Retry.PerAttemptTimeout <= 0 {
		errs = append(errs, errors.New("retry.per_attempt_timeout must be > 0"))
	}
	if c.Provider.CacheSize < 0 {
		errs = append(errs, errors.New("provider.cache_size must be >= 0"))
	}
	switch c.Provider.Name {
	case "openai", "deepseek", "ollama", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider.Name))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// StorePath returns the result store path resolved against dir.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// IdentitiesPath returns the identities file path resolved against dir.
func (c *Config) IdentitiesPath(dir string) string {
	if filepath.IsAbs(c.Identities.Path) {
		return c.Identities.Path
	}
	return filepath.Join(dir, c.Identities.Path)
}

// EnsureStoreDir ensures the parent directory of the result store exists.
func (c *Config) EnsureStoreDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}
