package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fetchRow is one cached fetch result (table "fetch_cache")
type fetchRow struct {
	Key       string `gorm:"primaryKey"`
	Data      []byte
	FetchedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (fetchRow) TableName() string { return "fetch_cache" }

// SQLCache is a cache backend on the fetch_cache table. Expiry is checked on
// read; writes go through the store's writer lock.
type SQLCache struct {
	store *Store
	now   func() time.Time
}

// NewSQLCache returns a cache backend sharing the store's database
func NewSQLCache(s *Store) *SQLCache {
	return &SQLCache{store: s, now: time.Now}
}

// Get returns the cached bytes for key
func (c *SQLCache) Get(key string) ([]byte, bool) {
	var row fetchRow
	err := c.store.db.Where("`key` = ?", key).Take(&row).Error
	if err != nil {
		if !eris.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("sql cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if !row.ExpiresAt.IsZero() && c.now().After(row.ExpiresAt) {
		return nil, false
	}
	return row.Data, true
}

// Set stores value under key; ttl <= 0 never expires
func (c *SQLCache) Set(key string, value []byte, ttl time.Duration) error {
	row := fetchRow{Key: key, Data: value, FetchedAt: c.now().UTC()}
	if ttl > 0 {
		row.ExpiresAt = row.FetchedAt.Add(ttl)
	}
	return c.store.write(context.Background(), "cache set", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "fetched_at", "expires_at"}),
		}).Create(&row).Error
	})
}

// Delete removes key
func (c *SQLCache) Delete(key string) error {
	return c.store.write(context.Background(), "cache delete", func(tx *gorm.DB) error {
		return tx.Where("`key` = ?", key).Delete(&fetchRow{}).Error
	})
}

// Clear removes every cached entry
func (c *SQLCache) Clear() error {
	return c.store.write(context.Background(), "cache clear", func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&fetchRow{}).Error
	})
}

// Purge deletes expired entries and returns how many were removed
func (c *SQLCache) Purge(ctx context.Context) (int64, error) {
	var n int64
	err := c.store.write(ctx, "cache purge", func(tx *gorm.DB) error {
		res := tx.Where("expires_at > ? AND expires_at < ?", time.Time{}, c.now().UTC()).Delete(&fetchRow{})
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}
