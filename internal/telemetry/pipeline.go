package telemetry

import (
	"context"
	"errors"
	"time"

	"kaska/internal/logs"
	"kaska/internal/models"
	"kaska/internal/ratelimit"
)

// ErrRateLimited — окно запросов устройства исчерпано.
var ErrRateLimited = errors.New("rate limited")

// deviceResolver — то, что пайплайну нужно от стора устройств.
type deviceResolver interface {
	ResolveByToken(ctx context.Context, token string) (*models.Device, error)
	MarkConnected(ctx context.Context, d *models.Device) error
}

// readingSink — приёмник провалидированных показаний.
type readingSink interface {
	Create(ctx context.Context, r *models.SensorReading) error
}

// Ack — подтверждение приёма показания.
type Ack struct {
	DataID     string
	ReceivedAt time.Time
}

// Pipeline прогоняет каждое показание через строгую цепочку фаз:
// аутентификация → лимитер → валидация → запись. Порядок жёсткий:
// лимитер привязан к аутентифицированному устройству, а ошибки валидации
// не раскрываются неаутентифицированным клиентам (сначала 401, потом 422).
type Pipeline struct {
	devices      deviceResolver
	limiter      ratelimit.Limiter
	readings     readingSink
	storeTimeout time.Duration
}

func NewPipeline(devices deviceResolver, limiter ratelimit.Limiter, readings readingSink, storeTimeout time.Duration) *Pipeline {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Pipeline{devices: devices, limiter: limiter, readings: readings, storeTimeout: storeTimeout}
}

// Submit — одна попытка сдать показание. Ошибки терминальны, ретраев нет.
func (p *Pipeline) Submit(ctx context.Context, token string, payload Payload) (*Ack, error) {
	// 1) аутентификация устройства
	dev, err := p.devices.ResolveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	// 2) лимитер — по стабильному device_id, не по токену:
	// ротация токена не должна сбрасывать окно
	if !p.limiter.Admit(dev.DeviceID) {
		return nil, ErrRateLimited
	}

	// 3) факт связи фиксируем независимо от судьбы payload —
	// устройство на связи, даже если прислало мусор
	if err := p.devices.MarkConnected(ctx, dev); err != nil {
		logs.Logger.Warnf("mark connected device=%s: %v", dev.DeviceID, err)
	}

	// 4) валидация
	reading, err := Validate(payload)
	if err != nil {
		return nil, err
	}

	// 5) запись — с таймаутом; строка либо целиком, либо никак
	rec := buildRecord(dev, reading)
	sctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	if err := p.readings.Create(sctx, rec); err != nil {
		return nil, err
	}

	return &Ack{DataID: rec.ID, ReceivedAt: rec.ReceivedAt}, nil
}

// buildRecord переносит tagged union в строку БД. Timestamp серверный:
// порядок приёма, а не порядок генерации на устройстве.
func buildRecord(dev *models.Device, r *Reading) *models.SensorReading {
	rec := &models.SensorReading{
		DeviceID:       dev.ID,
		HelmetID:       dev.HelmetID,
		SensorType:     r.SensorType,
		ReceivedAt:     time.Now().UTC(),
		BatteryLevel:   r.BatteryLevel,
		SignalStrength: r.SignalStrength,
	}
	switch {
	case r.Vector != nil:
		x, y, z := r.Vector.X, r.Vector.Y, r.Vector.Z
		rec.XValue, rec.YValue, rec.ZValue = &x, &y, &z
	case r.Scalar != nil:
		raw := r.Scalar.Raw
		rec.RawValue = &raw
	}
	return rec
}
