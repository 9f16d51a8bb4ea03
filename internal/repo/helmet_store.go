package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kaska/internal/models"
)

type HelmetStore struct{ db *gorm.DB }

func NewHelmetStore(db *gorm.DB) *HelmetStore { return &HelmetStore{db: db} }

func (s *HelmetStore) Create(ctx context.Context, h *models.Helmet) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Create(h).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (s *HelmetStore) GetByID(ctx context.Context, id string) (*models.Helmet, error) {
	var h models.Helmet
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// FirstForUser — первый шлем пользователя (nil, nil — если шлемов нет).
func (s *HelmetStore) FirstForUser(ctx context.Context, userID string) (*models.Helmet, error) {
	var h models.Helmet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// IDsForUser — идентификаторы всех шлемов пользователя.
func (s *HelmetStore) IDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Helmet{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
	return ids, err
}
