// Package storage opens and manages the badger databases backing persistent indexes.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for one badger database.
type Config struct {
	// Path is the database directory, ignored when InMemory is set.
	Path string
	// InMemory keeps the database in memory only.
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// Logger receives badger's internal log output; nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used for index tables.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB is a badger database with idempotent close.
type DB struct {
	*badger.DB
	path      string
	inMemory  bool
	closeOnce sync.Once
	closeErr  error
}

// Open opens a badger database, creating its directory when needed.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	// index tables are small; keep the per-table footprint low since a store opens several
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(32 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(4 << 20)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database %s: %w", cfg.Path, err)
	}
	return &DB{DB: db, path: cfg.Path, inMemory: cfg.InMemory}, nil
}

// Path returns the database directory, empty for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// Sync flushes pending writes to disk.
func (d *DB) Sync() error {
	if d.inMemory {
		return nil
	}
	return d.DB.Sync()
}

// Close closes the database; subsequent calls return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.DB.Close()
	})
	return d.closeErr
}
