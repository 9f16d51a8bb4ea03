package models

import "time"

// Типы датчиков. ACCELEROMETER/GYROSCOPE — векторные (x,y,z),
// TEMPERATURE/OTHER — скалярные (raw_value).
const (
	SensorAccelerometer = "ACCELEROMETER"
	SensorGyroscope     = "GYROSCOPE"
	SensorTemperature   = "TEMPERATURE"
	SensorOther         = "OTHER"
)

// SensorReading — одно принятое показание. Запись неизменяемая,
// timestamp назначает сервер в момент приёма.
type SensorReading struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	DeviceID uint   `gorm:"index;not null" json:"device_id"`
	// денормализованная ссылка на шлем — быстрый выбор без join
	HelmetID string `gorm:"index;size:36;not null" json:"helmet_id"`

	SensorType string    `gorm:"size:32;not null" json:"sensor_type"`
	ReceivedAt time.Time `gorm:"index;not null" json:"received_at"`

	XValue   *float64 `json:"x_value,omitempty"`
	YValue   *float64 `json:"y_value,omitempty"`
	ZValue   *float64 `json:"z_value,omitempty"`
	RawValue *float64 `json:"raw_value,omitempty"`

	BatteryLevel   *int `json:"battery_level,omitempty"`
	SignalStrength *int `json:"signal_strength,omitempty"`
}
