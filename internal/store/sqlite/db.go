// Package sqlite is the durable store: review cache tier, reviews, posted
// comments, analyses and usage counters.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	_ "modernc.org/sqlite"
)

const defaultPath = "revline.db"

type Config struct {
	Path string `yaml:"path" env:"STORE_PATH"`
}

func (c *Config) PrepareAndValidate() error {
	c.Path = lang.Check(c.Path, defaultPath)
	return nil
}

// DB holds a single-connection writer and a small reader pool over one WAL database.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// Open opens the database and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		cfg.Path,
	)
	db, err := newDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	db.path = cfg.Path

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, errm.Wrap(err, "migrate", "path", cfg.Path)
	}
	return db, nil
}

func newDB(ctx context.Context, dsn string) (*DB, error) {
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errm.Wrap(err, "open writer")
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(ctx); err != nil {
		_ = writer.Close()
		return nil, errm.Wrap(err, "ping writer")
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, errm.Wrap(err, "open reader")
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(ctx); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, errm.Wrap(err, "ping reader")
	}

	return &DB{Writer: writer, Reader: reader, path: dsn}, nil
}

// Close closes both pools and returns the first error.
func (db *DB) Close() error {
	var firstErr error
	if err := db.Reader.Close(); err != nil {
		firstErr = errm.Wrap(err, "close reader")
	}
	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = errm.Wrap(err, "close writer")
	}
	return firstErr
}

type scanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
