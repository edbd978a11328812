package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/familydex/internal/errors"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	return sb.String()
}

// Err returns a Config error when validation failed, nil otherwise
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.TrimSpace(vr.Error()))
}

// Validate checks the configuration
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validatePokeAPI(result)
	c.validateCache(result)
	c.validateReport(result)
	c.validateLog(result)

	return result
}

func (c *Config) validatePokeAPI(result *ValidationResult) {
	u, err := url.Parse(c.PokeAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		result.AddError("pokeapi.base_url %q is not an absolute URL", c.PokeAPI.BaseURL)
	}
	if c.PokeAPI.RequestInterval < 0 {
		result.AddError("pokeapi.request_interval must not be negative")
	} else if c.PokeAPI.RequestInterval == 0 {
		result.AddWarning("pokeapi.request_interval is 0: requests are not rate limited")
	}
	if c.PokeAPI.Timeout <= 0 {
		result.AddError("pokeapi.timeout must be positive")
	}
	if c.PokeAPI.MaxRetries < 0 {
		result.AddError("pokeapi.max_retries must not be negative")
	}
	if c.PokeAPI.PayloadCacheSize <= 0 {
		result.AddError("pokeapi.payload_cache_size must be positive")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	switch c.Cache.Backend {
	case BackendJSON:
		if c.Cache.Directory == "" || c.Cache.RankFile == "" || c.Cache.VariantFile == "" {
			result.AddError("cache.directory, cache.rank_file and cache.variant_file are required for the json backend")
		}
	case BackendBolt:
		if c.Cache.BoltPath == "" {
			result.AddError("cache.bolt_path is required for the bolt backend")
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			result.AddError("cache.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Cache.PostgresDSN == "" {
			result.AddError("cache.postgres_dsn (or POSTGRES_DSN) is required for the postgres backend")
		}
	default:
		result.AddError("unknown cache.backend %q (want json, bolt, sqlite or postgres)", c.Cache.Backend)
	}
}

func (c *Config) validateReport(result *ValidationResult) {
	if c.Report.Path == "" {
		result.AddError("report.path is required")
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		result.AddError("log.level %q is not a valid level", c.Log.Level)
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		result.AddError("log.max_size_mb must be positive when log.file is set")
	}
	if c.Log.MaxBackups < 0 {
		result.AddError("log.max_backups must not be negative")
	}
}
