package repo

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"kaska/internal/models"
)

// Минимальная длина предъявляемого токена. Всё короче отбрасывается
// до похода в БД — мусорные токены не стоят нам запроса.
const MinTokenLen = 32

// 32 байта энтропии, в hex — 64 символа.
const tokenBytes = 32

type DeviceStore struct{ db *gorm.DB }

func NewDeviceStore(db *gorm.DB) *DeviceStore { return &DeviceStore{db: db} }

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

type RegisterInput struct {
	DeviceID       string
	HelmetID       string
	ConnectionType string // уже нормализованный enum
	UserID         string // владелец, от имени которого идёт регистрация
	Metadata       datatypes.JSON
}

// Register создаёт устройство и выдаёт токен. Токен выдаётся один раз,
// повторно не восстанавливается (храним только хэш); отзыв = деактивация.
// Ошибки: ErrNotFound — шлема нет; ErrForbidden — шлем чужой;
// ErrConflict — device_id уже занят.
func (s *DeviceStore) Register(ctx context.Context, in RegisterInput) (*models.Device, string, error) {
	var helmet models.Helmet
	err := s.db.WithContext(ctx).Where("id = ?", in.HelmetID).First(&helmet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if helmet.UserID == nil || *helmet.UserID != in.UserID {
		return nil, "", ErrForbidden
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	token := hex.EncodeToString(raw)

	d := models.Device{
		DeviceID:       in.DeviceID,
		HelmetID:       helmet.ID,
		TokenHash:      hashToken(token),
		Active:         true,
		ConnectionType: in.ConnectionType,
		Metadata:       in.Metadata,
	}
	// Дубликат device_id ловим по уникальному индексу, а не предварительным
	// SELECT'ом — две конкурентные регистрации разрулит БД.
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrConflict
		}
		return nil, "", err
	}
	return &d, token, nil
}

// ResolveByToken находит устройство по предъявленному токену.
// Неизвестный токен и слишком короткий токен неразличимы для клиента.
func (s *DeviceStore) ResolveByToken(ctx context.Context, token string) (*models.Device, error) {
	if len(token) < MinTokenLen {
		return nil, ErrUnauthenticated
	}
	var d models.Device
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, ErrForbidden
	}
	return &d, nil
}

// MarkConnected фиксирует факт связи: last_connected_at устройства и
// last_seen шлема. Вызывается отдельно от ResolveByToken, чтобы отбитые
// лимитером запросы не трогали таймстемпы.
func (s *DeviceStore) MarkConnected(ctx context.Context, d *models.Device) error {
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("id = ?", d.ID).
		Update("last_connected_at", now).Error; err != nil {
		return err
	}
	d.LastConnectedAt = &now
	return s.db.WithContext(ctx).Model(&models.Helmet{}).
		Where("id = ?", d.HelmetID).
		Update("last_seen", now).Error
}

// ConfigPatch — частичное обновление конфигурации: nil-поля не трогаем.
type ConfigPatch struct {
	TransmissionIntervalMS *int
	SensitivityThreshold   *float64
	ReportBattery          *bool
}

// UpdateConfig применяет патч целиком или не применяет вовсе.
func (s *DeviceStore) UpdateConfig(ctx context.Context, deviceID uint, p ConfigPatch) (*models.Device, error) {
	var bad []string
	if p.TransmissionIntervalMS != nil {
		if v := *p.TransmissionIntervalMS; v < models.MinTransmissionIntervalMS || v > models.MaxTransmissionIntervalMS {
			bad = append(bad, "transmission_interval")
		}
	}
	if p.SensitivityThreshold != nil {
		if v := *p.SensitivityThreshold; v < models.MinSensitivity || v > models.MaxSensitivity {
			bad = append(bad, "sensitivity_threshold")
		}
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s out of range", ErrValidation, strings.Join(bad, ", "))
	}

	updates := map[string]any{}
	if p.TransmissionIntervalMS != nil {
		updates["transmission_interval_ms"] = *p.TransmissionIntervalMS
	}
	if p.SensitivityThreshold != nil {
		updates["sensitivity_threshold"] = *p.SensitivityThreshold
	}
	if p.ReportBattery != nil {
		updates["report_battery"] = *p.ReportBattery
	}

	var d models.Device
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Device{}).
			Where("id = ?", deviceID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Where("id = ?", deviceID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// SetActive включает/выключает устройство (отзыв токена = деактивация).
func (s *DeviceStore) SetActive(ctx context.Context, deviceID string, active bool) (*models.Device, error) {
	var d models.Device
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if d.Active == active {
		return &d, nil
	}
	if err := s.db.WithContext(ctx).Model(&d).Update("active", active).Error; err != nil {
		return nil, err
	}
	d.Active = active
	return &d, nil
}

// GetByDeviceID — поиск по строковому идентификатору устройства.
func (s *DeviceStore) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	var d models.Device
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
