package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const schema = `
	CREATE TABLE IF NOT EXISTS ranks (
		identity TEXT PRIMARY KEY,
		dex_rank INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS variants (
		base TEXT PRIMARY KEY,
		forms TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cache_meta (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

const vocabularyMeta = "vocabulary_version"

// Both SQLite (3.24+) and PostgreSQL accept this upsert form
const (
	upsertRankQuery = `
		INSERT INTO ranks (identity, dex_rank) VALUES (?, ?)
		ON CONFLICT (identity) DO UPDATE SET dex_rank = excluded.dex_rank
	`
	upsertVariantQuery = `
		INSERT INTO variants (base, forms) VALUES (?, ?)
		ON CONFLICT (base) DO UPDATE SET forms = excluded.forms
	`
	upsertMetaQuery = `
		INSERT INTO cache_meta (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`
)

type rankRow struct {
	Identity string `db:"identity"`
	Rank     int    `db:"dex_rank"`
}

type variantRow struct {
	Base  string `db:"base"`
	Forms string `db:"forms"` // JSON array
}

// SQLStore implements Store over any sqlx database sharing the schema above
type SQLStore struct {
	db       *sqlx.DB
	backend  string
	location string
	logger   logrus.FieldLogger
}

// NewSQLiteStore creates a SQLite-backed store (for local use)
func NewSQLiteStore(path string, logger logrus.FieldLogger) (*SQLStore, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, storageErr(err, "sqlite", "create database directory")
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, storageErr(err, "sqlite", "connect")
	}

	// WAL mode for better concurrency
	db.Exec("PRAGMA journal_mode = WAL")

	return newSQLStore(db, "sqlite", path, logger)
}

func newSQLStore(db *sqlx.DB, backend, location string, logger logrus.FieldLogger) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storageErr(err, backend, "init schema")
	}
	return &SQLStore{
		db:       db,
		backend:  backend,
		location: location,
		logger:   logger,
	}, nil
}

func (s *SQLStore) LoadRanks(ctx context.Context) (map[string]int, error) {
	var rows []rankRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT identity, dex_rank FROM ranks`); err != nil {
		return nil, storageErr(err, s.backend, "load ranks")
	}

	ranks := make(map[string]int, len(rows))
	for _, r := range rows {
		ranks[r.Identity] = r.Rank
	}
	return ranks, nil
}

func (s *SQLStore) SaveRanks(ctx context.Context, ranks map[string]int) error {
	if len(ranks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr(err, s.backend, "begin")
	}
	defer tx.Rollback()

	query := tx.Rebind(upsertRankQuery)
	for id, rank := range ranks {
		if _, err := tx.ExecContext(ctx, query, id, rank); err != nil {
			return storageErr(err, s.backend, "save rank "+id)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, s.backend, "commit ranks")
	}
	return nil
}

func (s *SQLStore) LoadVariants(ctx context.Context) (map[string][]string, error) {
	var rows []variantRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT base, forms FROM variants`); err != nil {
		return nil, storageErr(err, s.backend, "load variants")
	}

	variants := make(map[string][]string, len(rows))
	for _, r := range rows {
		var forms []string
		if err := json.Unmarshal([]byte(r.Forms), &forms); err != nil {
			s.logger.WithField("base", r.Base).Warn("Skipping undecodable variant row")
			continue
		}
		variants[r.Base] = forms
	}
	return variants, nil
}

func (s *SQLStore) SaveVariants(ctx context.Context, variants map[string][]string) error {
	if len(variants) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr(err, s.backend, "begin")
	}
	defer tx.Rollback()

	query := tx.Rebind(upsertVariantQuery)
	for base, forms := range variants {
		if forms == nil {
			forms = []string{}
		}
		data, err := json.Marshal(forms)
		if err != nil {
			return storageErr(err, s.backend, "encode variants of "+base)
		}
		if _, err := tx.ExecContext(ctx, query, base, string(data)); err != nil {
			return storageErr(err, s.backend, "save variants of "+base)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, s.backend, "commit variants")
	}
	return nil
}

func (s *SQLStore) VocabularyVersion(ctx context.Context) (string, error) {
	var values []string
	query := s.db.Rebind(`SELECT value FROM cache_meta WHERE name = ?`)
	if err := s.db.SelectContext(ctx, &values, query, vocabularyMeta); err != nil {
		return "", storageErr(err, s.backend, "read vocabulary version")
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

func (s *SQLStore) SetVocabularyVersion(ctx context.Context, version string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(upsertMetaQuery), vocabularyMeta, version); err != nil {
		return storageErr(err, s.backend, "save vocabulary version")
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr(err, s.backend, "begin")
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM ranks`, `DELETE FROM variants`, `DELETE FROM cache_meta`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return storageErr(err, s.backend, "clear")
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, s.backend, "commit clear")
	}
	return nil
}

func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: s.backend, Location: s.location}
	if err := s.db.GetContext(ctx, &stats.Ranks, `SELECT COUNT(*) FROM ranks`); err != nil {
		return Stats{}, storageErr(err, s.backend, "count ranks")
	}
	if err := s.db.GetContext(ctx, &stats.Variants, `SELECT COUNT(*) FROM variants`); err != nil {
		return Stats{}, storageErr(err, s.backend, "count variants")
	}
	version, err := s.VocabularyVersion(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.Vocabulary = version
	return stats, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
