// Package store persists company profiles, signal events and caches in
// SQLite through gorm. Writes are serialized through a single writer lock
// and retried on transient lock contention.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ppiankov/leadmaster/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = eris.New("store: not found")

	// ErrInvalidTransition is returned when a status change breaks the sales state machine
	ErrInvalidTransition = eris.New("store: invalid status transition")
)

// storeSleepFunc is the sleep function used between write retries (injectable for tests)
var storeSleepFunc = time.Sleep

const baseBackoff = 50 * time.Millisecond

// Store wraps the database handle
type Store struct {
	db         *gorm.DB
	writeMu    sync.Mutex
	maxRetries int
}

// Open opens (creating if needed) the database at path and migrates the schema
func Open(path string, maxRetries int) (*Store, error) {
	if path == "" {
		return nil, eris.New("store: empty database path")
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "store: open %s", path)
	}

	if err := db.AutoMigrate(&model.Client{}, &model.Signal{}, &fetchRow{}, &keywordRow{}); err != nil {
		return nil, eris.Wrap(err, "store: migrate schema")
	}

	return &Store{db: db, maxRetries: maxRetries}, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return eris.Wrap(err, "store: get sql handle")
	}
	return sqlDB.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return eris.Wrap(err, "store: get sql handle")
	}
	return eris.Wrap(sqlDB.PingContext(ctx), "store: ping")
}

// write runs fn in a transaction under the writer lock, retrying transient
// lock errors with exponential backoff
func (s *Store) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << uint(attempt-1)
			zap.L().Warn("store: retrying write",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			storeSleepFunc(backoff)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return eris.Wrapf(ctxErr, "store: %s", op)
		}

		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTransient(err) {
			break
		}
	}

	if err != nil {
		return eris.Wrapf(err, "store: %s", op)
	}
	return nil
}

// isTransient reports whether err is SQLite lock contention
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "busy")
}
