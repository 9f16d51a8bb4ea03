package repo

import (
	"context"

	"gorm.io/gorm"

	"kaska/internal/models"
)

type TripStore struct{ db *gorm.DB }

func NewTripStore(db *gorm.DB) *TripStore { return &TripStore{db: db} }

func (s *TripStore) ListForHelmets(ctx context.Context, helmetIDs []string, limit int) ([]models.TripData, error) {
	if len(helmetIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	var out []models.TripData
	err := s.db.WithContext(ctx).
		Where("helmet_id IN ?", helmetIDs).
		Order("start_time DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
