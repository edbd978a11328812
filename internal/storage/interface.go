// Package storage persists the rank table and variant cache between runs.
package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/familydex/internal/config"
	"github.com/rohankatakam/familydex/internal/errors"
)

// Store persists RankTable and VariantCache snapshots. Save merges entries
// into what is stored; Load returns an empty map when nothing is stored.
type Store interface {
	LoadRanks(ctx context.Context) (map[string]int, error)
	SaveRanks(ctx context.Context, ranks map[string]int) error

	LoadVariants(ctx context.Context) (map[string][]string, error)
	SaveVariants(ctx context.Context, variants map[string][]string) error

	// VocabularyVersion returns the vocabulary version the stored entries
	// were computed with, or "" when none was recorded
	VocabularyVersion(ctx context.Context) (string, error)
	SetVocabularyVersion(ctx context.Context, version string) error

	// Clear removes every persisted entry
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)

	// Close connection
	Close() error
}

// Stats describes what a store holds
type Stats struct {
	Backend  string `json:"backend" yaml:"backend"`
	Location string `json:"location" yaml:"location"`
	Ranks    int    `json:"ranks" yaml:"ranks"`
	Variants int    `json:"variants" yaml:"variants"`
	// Vocabulary is the recorded vocabulary version
	Vocabulary string `json:"vocabulary" yaml:"vocabulary"`
}

// Open returns the store selected by cfg.Backend
func Open(cfg config.CacheConfig, logger logrus.FieldLogger) (Store, error) {
	logger = logger.WithFields(logrus.Fields{
		"component": "storage",
		"backend":   cfg.Backend,
	})

	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewJSONStore(cfg.Directory, cfg.RankFile, cfg.VariantFile, logger)
	case config.BackendBolt:
		return NewBoltStore(cfg.BoltPath, logger)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case config.BackendPostgres:
		return NewPostgresStore(cfg.PostgresDSN, logger)
	default:
		return nil, errors.ConfigErrorf("unknown cache backend %q", cfg.Backend)
	}
}

func storageErr(err error, backend, op string) error {
	return errors.StorageErrorf(err, "%s: %s", backend, op).WithContext("backend", backend)
}
