package store

import (
	"context"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/ppiankov/leadmaster/internal/model"
)

// SignalFilter narrows ListSignals. Dates are YYYYMMDD and inclusive.
type SignalFilter struct {
	Company    string
	From       string
	To         string
	UnreadOnly bool
	Limit      int
}

// ListSignals returns signals newest first
func (s *Store) ListSignals(ctx context.Context, f SignalFilter) ([]model.Signal, error) {
	q := s.db.WithContext(ctx).Order("date DESC").Order("id DESC")
	if f.Company != "" {
		q = q.Where("company = ?", f.Company)
	}
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	if f.UnreadOnly {
		q = q.Where("read_flag = ?", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var signals []model.Signal
	if err := q.Find(&signals).Error; err != nil {
		return nil, eris.Wrap(err, "store: list signals")
	}
	return signals, nil
}

// CountSignals returns the total number of signal rows
func (s *Store) CountSignals(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Signal{}).Count(&n).Error; err != nil {
		return 0, eris.Wrap(err, "store: count signals")
	}
	return n, nil
}

// MarkRead flags one signal as read
func (s *Store) MarkRead(ctx context.Context, id uint) error {
	return s.write(ctx, "mark read", func(tx *gorm.DB) error {
		res := tx.Model(&model.Signal{}).Where("id = ?", id).Update("read_flag", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
