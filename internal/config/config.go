package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Cache backends
const (
	BackendJSON     = "json"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all configuration settings
type Config struct {
	// PokeAPI data source
	PokeAPI PokeAPIConfig `mapstructure:"pokeapi" yaml:"pokeapi"`

	// Persisted rank and variant caches
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Report output
	Report ReportConfig `mapstructure:"report" yaml:"report"`

	// Naming vocabulary override
	Vocabulary VocabularyConfig `mapstructure:"vocabulary" yaml:"vocabulary"`

	// Logging
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

type PokeAPIConfig struct {
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	RequestInterval  time.Duration `mapstructure:"request_interval" yaml:"request_interval"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	UserAgent        string        `mapstructure:"user_agent" yaml:"user_agent"`
	PayloadCacheSize int           `mapstructure:"payload_cache_size" yaml:"payload_cache_size"`
}

type CacheConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // "json", "bolt", "sqlite", "postgres"
	Directory   string `mapstructure:"directory" yaml:"directory"`
	RankFile    string `mapstructure:"rank_file" yaml:"rank_file"`
	VariantFile string `mapstructure:"variant_file" yaml:"variant_file"`
	BoltPath    string `mapstructure:"bolt_path" yaml:"bolt_path"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

type ReportConfig struct {
	Path         string `mapstructure:"path" yaml:"path"`
	FailuresPath string `mapstructure:"failures_path" yaml:"failures_path"` // empty disables
}

type VocabularyConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // empty uses the built-in vocabulary
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns default configuration. Caches live in the working
// directory, matching the file names earlier runs left behind.
func Default() *Config {
	return &Config{
		PokeAPI: PokeAPIConfig{
			BaseURL:          "https://pokeapi.co/api/v2/",
			RequestInterval:  200 * time.Millisecond,
			Timeout:          30 * time.Second,
			MaxRetries:       2,
			UserAgent:        "familydex",
			PayloadCacheSize: 256,
		},
		Cache: CacheConfig{
			Backend:     BackendJSON,
			Directory:   ".",
			RankFile:    "species_cache.json",
			VariantFile: "variant_cache.json",
			BoltPath:    filepath.Join(".familydex", "cache.db"),
			SQLitePath:  filepath.Join(".familydex", "cache.sqlite"),
		},
		Report: ReportConfig{
			Path: "pokedex_by_family.txt",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from file, .env files and the environment
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	for key, value := range cfg.settings() {
		v.SetDefault(key, value)
	}

	// FAMILYDEX_CACHE_BACKEND, FAMILYDEX_LOG_LEVEL, ...
	v.SetEnvPrefix("FAMILYDEX")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".familydex")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".familydex"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// settings flattens the config into viper keys
func (c *Config) settings() map[string]interface{} {
	return map[string]interface{}{
		"pokeapi.base_url":           c.PokeAPI.BaseURL,
		"pokeapi.request_interval":   c.PokeAPI.RequestInterval.String(),
		"pokeapi.timeout":            c.PokeAPI.Timeout.String(),
		"pokeapi.max_retries":        c.PokeAPI.MaxRetries,
		"pokeapi.user_agent":         c.PokeAPI.UserAgent,
		"pokeapi.payload_cache_size": c.PokeAPI.PayloadCacheSize,
		"cache.backend":              c.Cache.Backend,
		"cache.directory":            c.Cache.Directory,
		"cache.rank_file":            c.Cache.RankFile,
		"cache.variant_file":         c.Cache.VariantFile,
		"cache.bolt_path":            c.Cache.BoltPath,
		"cache.sqlite_path":          c.Cache.SQLitePath,
		"cache.postgres_dsn":         c.Cache.PostgresDSN,
		"report.path":                c.Report.Path,
		"report.failures_path":       c.Report.FailuresPath,
		"vocabulary.path":            c.Vocabulary.Path,
		"log.level":                  c.Log.Level,
		"log.file":                   c.Log.File,
		"log.json":                   c.Log.JSON,
		"log.max_size_mb":            c.Log.MaxSizeMB,
		"log.max_backups":            c.Log.MaxBackups,
	}
}

// Save saves configuration to a YAML file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range c.settings() {
		v.Set(key, value)
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
