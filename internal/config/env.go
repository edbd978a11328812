package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides a variable that is already set, so earlier files win.
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".familydex", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the short-form environment variables on top of
// the file and FAMILYDEX_* settings
func applyEnvOverrides(cfg *Config) {
	// PokeAPI
	if url := os.Getenv("POKEAPI_BASE_URL"); url != "" {
		cfg.PokeAPI.BaseURL = url
	}
	if ms := os.Getenv("POKEAPI_REQUEST_INTERVAL_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil {
			cfg.PokeAPI.RequestInterval = time.Duration(n) * time.Millisecond
		}
	}
	if retries := os.Getenv("POKEAPI_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			cfg.PokeAPI.MaxRetries = n
		}
	}

	// Cache
	if dir := os.Getenv("FAMILYDEX_CACHE_DIR"); dir != "" {
		cfg.Cache.Directory = expandPath(dir)
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Cache.PostgresDSN = dsn
	}
	cfg.Cache.Directory = expandPath(cfg.Cache.Directory)
	cfg.Cache.BoltPath = expandPath(cfg.Cache.BoltPath)
	cfg.Cache.SQLitePath = expandPath(cfg.Cache.SQLitePath)

	// Vocabulary
	if path := os.Getenv("FAMILYDEX_VOCABULARY"); path != "" {
		cfg.Vocabulary.Path = expandPath(path)
	}

	// Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
