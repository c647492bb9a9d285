package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"plate-service/internal/model"
)

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// ReplaceAll swaps the persisted hot sheet snapshot in a single
// transaction. The authoritative list has no stable per-entry identity, so
// refreshes are always a wholesale replace, never a merge.
func (r *WatchlistRepository) ReplaceAll(ctx context.Context, entries []model.WatchlistEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM hot_sheet").Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("replace hot sheet: %w", err)
	}
	return nil
}

func (r *WatchlistRepository) List(ctx context.Context) ([]model.WatchlistEntry, error) {
	var entries []model.WatchlistEntry
	err := r.db.WithContext(ctx).Find(&entries).Error
	return entries, err
}
