package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"kaska/internal/models"
)

type AccidentStore struct{ db *gorm.DB }

func NewAccidentStore(db *gorm.DB) *AccidentStore { return &AccidentStore{db: db} }

// AccidentFilter — nil/пустые поля не фильтруют.
// HelmetIDs == nil — без ограничения по шлемам (админ); пустой срез — ничего.
type AccidentFilter struct {
	HelmetIDs []string
	Start     *time.Time
	End       *time.Time
	Status    string
	Limit     int
}

func (s *AccidentStore) List(ctx context.Context, f AccidentFilter) ([]models.AccidentEvent, error) {
	q := s.db.WithContext(ctx).Model(&models.AccidentEvent{}).Order("timestamp DESC")
	if f.HelmetIDs != nil {
		if len(f.HelmetIDs) == 0 {
			return nil, nil
		}
		q = q.Where("helmet_id IN ?", f.HelmetIDs)
	}
	if f.Start != nil {
		q = q.Where("timestamp >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("timestamp <= ?", *f.End)
	}
	if f.Status != "" {
		q = q.Where("alert_status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	var out []models.AccidentEvent
	err := q.Limit(limit).Find(&out).Error
	return out, err
}

func (s *AccidentStore) GetByID(ctx context.Context, id string) (*models.AccidentEvent, error) {
	var a models.AccidentEvent
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AccidentStore) SetAlertStatus(ctx context.Context, id, status string) (*models.AccidentEvent, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(a).Update("alert_status", status).Error; err != nil {
		return nil, err
	}
	a.AlertStatus = status
	return a, nil
}

// Stats — агрегаты для аналитических карточек.
type AccidentStats struct {
	Total     int64
	AvgGForce float64
	MaxGForce float64
}

func (s *AccidentStore) Stats(ctx context.Context) (*AccidentStats, error) {
	var st AccidentStats
	if err := s.db.WithContext(ctx).Model(&models.AccidentEvent{}).Count(&st.Total).Error; err != nil {
		return nil, err
	}
	row := s.db.WithContext(ctx).Model(&models.AccidentEvent{}).
		Select("COALESCE(AVG(g_force_reading), 0), COALESCE(MAX(g_force_reading), 0)").Row()
	if err := row.Scan(&st.AvgGForce, &st.MaxGForce); err != nil {
		return nil, err
	}
	return &st, nil
}
