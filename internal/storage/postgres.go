package storage

import (
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// NewPostgresStore creates a PostgreSQL-backed store sharing the SQLite schema
func NewPostgresStore(dsn string, logger logrus.FieldLogger) (*SQLStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, storageErr(err, "postgres", "connect")
	}

	// Configure connection pool
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, "postgres", redactDSN(dsn), logger)
}

// redactDSN drops credentials from a URL-style DSN
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "postgres"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
