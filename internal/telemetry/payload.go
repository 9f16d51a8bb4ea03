package telemetry

import (
	"fmt"
	"strings"
)

// Payload — сырой JSON от прошивки. Поля-указатели: отсутствие поля и
// ноль — разные вещи, валидатор обязан их различать.
type Payload struct {
	SensorType     string   `json:"sensor_type"`
	XValue         *float64 `json:"x_value"`
	YValue         *float64 `json:"y_value"`
	ZValue         *float64 `json:"z_value"`
	RawValue       *float64 `json:"raw_value"`
	BatteryLevel   *int     `json:"battery_level"`
	SignalStrength *int     `json:"signal_strength"`
}

// Vector3 — показание трёхосевого датчика (акселерометр, гироскоп).
type Vector3 struct{ X, Y, Z float64 }

// Scalar — показание одноканального датчика (температура и пр.).
type Scalar struct{ Raw float64 }

// Reading — провалидированное показание. Ровно одно из Vector/Scalar
// не nil — выбирается тегом SensorType, без дефолтов-нулей.
type Reading struct {
	SensorType     string
	Vector         *Vector3
	Scalar         *Scalar
	BatteryLevel   *int
	SignalStrength *int
}

// FieldError — одно нарушение в payload.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError агрегирует все нарушения разом, а не первое попавшееся —
// прошивке чинить их за один заход.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
