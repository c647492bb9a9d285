package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"plate-service/internal/model"
	"plate-service/internal/utils"
)

type PlateRepository struct {
	db *gorm.DB
}

func NewPlateRepository(db *gorm.DB) *PlateRepository {
	return &PlateRepository{db: db}
}

func (r *PlateRepository) Create(ctx context.Context, record *model.PlateRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create plate record: %w", err)
	}
	return nil
}

func (r *PlateRepository) GetByID(ctx context.Context, id int64) (*model.PlateRecord, error) {
	var record model.PlateRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *PlateRepository) GetAll(ctx context.Context) ([]model.PlateRecord, error) {
	var records []model.PlateRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// GetByPlateText returns the most recent record whose plate text matches
// after normalization, so the formatting space never affects lookups.
func (r *PlateRepository) GetByPlateText(ctx context.Context, plateText string) (*model.PlateRecord, error) {
	normalized := utils.NormalizePlate(plateText)
	if normalized == "" {
		return nil, nil
	}

	var record model.PlateRecord
	err := r.db.WithContext(ctx).
		Where("normalize_plate_text(plate_text) = ?", normalized).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *PlateRepository) ListBySendState(ctx context.Context, state model.SendState) ([]model.PlateRecord, error) {
	var records []model.PlateRecord
	err := r.db.WithContext(ctx).
		Where("send_state = ?", state).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// Update applies a partial column update; fields absent from the map keep
// their stored values.
func (r *PlateRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.PlateRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("update plate record: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *PlateRepository) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PlateRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete plate record: %w", result.Error)
	}
	return result.RowsAffected, nil
}
