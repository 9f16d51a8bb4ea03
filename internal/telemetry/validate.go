package telemetry

import (
	"strings"

	"kaska/internal/models"
)

// Validate — чистая функция: payload → Reading либо ValidationError.
// Тип датчика нормализуется к верхнему регистру; векторным нужны все три
// оси, скалярным — raw_value. Недостающая ось — это ошибка, а не ноль.
func Validate(p Payload) (*Reading, error) {
	var verr ValidationError

	kind := strings.ToUpper(strings.TrimSpace(p.SensorType))

	vector := false
	switch kind {
	case models.SensorAccelerometer, models.SensorGyroscope:
		vector = true
	case models.SensorTemperature, models.SensorOther:
	default:
		verr.Fields = append(verr.Fields, FieldError{
			Field:  "sensor_type",
			Reason: "must be one of ACCELEROMETER, GYROSCOPE, TEMPERATURE, OTHER",
		})
	}

	r := Reading{SensorType: kind}

	if kind != "" && len(verr.Fields) == 0 {
		if vector {
			if p.XValue == nil {
				verr.Fields = append(verr.Fields, FieldError{Field: "x_value", Reason: "required for 3-axis sensor"})
			}
			if p.YValue == nil {
				verr.Fields = append(verr.Fields, FieldError{Field: "y_value", Reason: "required for 3-axis sensor"})
			}
			if p.ZValue == nil {
				verr.Fields = append(verr.Fields, FieldError{Field: "z_value", Reason: "required for 3-axis sensor"})
			}
			if p.XValue != nil && p.YValue != nil && p.ZValue != nil {
				r.Vector = &Vector3{X: *p.XValue, Y: *p.YValue, Z: *p.ZValue}
			}
		} else {
			if p.RawValue == nil {
				verr.Fields = append(verr.Fields, FieldError{Field: "raw_value", Reason: "required for scalar sensor"})
			} else {
				r.Scalar = &Scalar{Raw: *p.RawValue}
			}
		}
	}

	if p.BatteryLevel != nil {
		if v := *p.BatteryLevel; v < 0 || v > 100 {
			verr.Fields = append(verr.Fields, FieldError{Field: "battery_level", Reason: "must be between 0 and 100"})
		} else {
			r.BatteryLevel = p.BatteryLevel
		}
	}
	// signal_strength — dBm, бывает отрицательным; не ограничиваем
	r.SignalStrength = p.SignalStrength

	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return &r, nil
}
