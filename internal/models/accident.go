package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы оповещения об аварии.
const (
	AlertPending   = "PENDING"
	AlertConfirmed = "CONFIRMED"
	AlertResolved  = "RESOLVED"
)

func ValidAlertStatus(s string) bool {
	switch s {
	case AlertPending, AlertConfirmed, AlertResolved:
		return true
	}
	return false
}

// AccidentEvent — зафиксированное событие удара/падения.
type AccidentEvent struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	HelmetID      string    `gorm:"index;size:36;not null" json:"helmet_id"`
	Timestamp     time.Time `gorm:"index;not null" json:"timestamp"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	GForceReading *float64  `gorm:"column:g_force_reading" json:"gforce_reading,omitempty"`
	AlertStatus   string    `gorm:"size:16;default:PENDING" json:"alert_status"`
}

// TripData — сводка по поездке.
type TripData struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	HelmetID     string     `gorm:"index;size:36;not null" json:"helmet_id"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	DistanceKM   *float64   `json:"distance_km,omitempty"`
	MaxSpeed     *float64   `json:"max_speed,omitempty"`
	AverageSpeed *float64   `json:"average_speed,omitempty"`
	TripType     string     `gorm:"size:16;default:NORMAL" json:"trip_type"` // NORMAL | ACCIDENT
}
