package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// keywordRow holds the single expanded keyword list (table "kw_cache")
type keywordRow struct {
	ID        uint `gorm:"primaryKey"`
	Keywords  datatypes.JSONSlice[string]
	UpdatedAt time.Time
}

func (keywordRow) TableName() string { return "kw_cache" }

const keywordRowID = 1

// GetKeywords returns the stored keyword list and when it was written
func (s *Store) GetKeywords(ctx context.Context) ([]string, time.Time, error) {
	var row keywordRow
	err := s.db.WithContext(ctx).Where("id = ?", keywordRowID).Take(&row).Error
	if eris.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, eris.Wrap(err, "store: get keywords")
	}
	return []string(row.Keywords), row.UpdatedAt, nil
}

// PutKeywords replaces the stored keyword list
func (s *Store) PutKeywords(ctx context.Context, keywords []string) error {
	return s.write(ctx, "put keywords", func(tx *gorm.DB) error {
		row := keywordRow{ID: keywordRowID, Keywords: datatypes.JSONSlice[string](keywords)}
		return tx.Save(&row).Error
	})
}
