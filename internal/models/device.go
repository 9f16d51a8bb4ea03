package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Способ подключения модуля к бэкенду.
const (
	ConnWiFi      = "WIFI"
	ConnBluetooth = "BLUETOOTH"
	ConnOther     = "OTHER"
)

// Границы конфигурации прошивки.
const (
	MinTransmissionIntervalMS = 1000
	MaxTransmissionIntervalMS = 3600000
	MinSensitivity            = 0.1
	MaxSensitivity            = 10.0
)

// Device — ESP32-модуль, привязанный к шлему.
// Токен не храним в открытом виде — только sha256-хэш (поиск по хэш-индексу,
// время сравнения не зависит от совпавшего префикса).
type Device struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DeviceID  string `gorm:"uniqueIndex;size:64;not null" json:"device_id"`
	HelmetID  string `gorm:"index;size:36;not null" json:"helmet_id"`
	TokenHash []byte `gorm:"uniqueIndex;size:32;not null" json:"-"`

	Active          bool       `gorm:"default:true" json:"active"`
	ConnectionType  string     `gorm:"size:16;default:WIFI" json:"connection_type"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`

	// Конфигурация, отдаваемая прошивке.
	TransmissionIntervalMS int     `gorm:"default:60000" json:"transmission_interval_ms"`
	SensitivityThreshold   float64 `gorm:"default:1" json:"sensitivity_threshold"`
	ReportBattery          bool    `gorm:"default:true" json:"report_battery"`

	// Произвольные метаданные регистрации (версия прошивки и т.п.)
	Metadata datatypes.JSON `json:"metadata,omitempty"`
}

// NormalizeConnectionType приводит значение к enum; пустое → WIFI.
func NormalizeConnectionType(s string) (string, bool) {
	switch s {
	case "":
		return ConnWiFi, true
	case ConnWiFi, ConnBluetooth, ConnOther:
		return s, true
	}
	return "", false
}
