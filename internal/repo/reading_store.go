package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kaska/internal/models"
)

type ReadingStore struct{ db *gorm.DB }

func NewReadingStore(db *gorm.DB) *ReadingStore { return &ReadingStore{db: db} }

// Create сохраняет показание одной записью: либо целиком, либо никак.
func (s *ReadingStore) Create(ctx context.Context, r *models.SensorReading) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// LatestBattery — последний отчитанный заряд батареи устройства (может не быть).
func (s *ReadingStore) LatestBattery(ctx context.Context, deviceID uint) (*int, error) {
	var r models.SensorReading
	err := s.db.WithContext(ctx).
		Where("device_id = ? AND battery_level IS NOT NULL", deviceID).
		Order("received_at DESC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.BatteryLevel, nil
}

// LatestForHelmet — последнее показание по шлему (для /api/data/live).
func (s *ReadingStore) LatestForHelmet(ctx context.Context, helmetID string) (*models.SensorReading, error) {
	var r models.SensorReading
	err := s.db.WithContext(ctx).
		Where("helmet_id = ?", helmetID).
		Order("received_at DESC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
