package telemetry

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"kaska/internal/logs"
	"kaska/internal/models"
	"kaska/internal/ratelimit"
	"kaska/internal/repo"
)

func TestMain(m *testing.M) {
	logs.Init(logs.Options{Level: "error"})
	os.Exit(m.Run())
}

type fakeResolver struct {
	dev    *models.Device
	err    error
	marked int
}

func (f *fakeResolver) ResolveByToken(_ context.Context, _ string) (*models.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dev, nil
}

func (f *fakeResolver) MarkConnected(_ context.Context, _ *models.Device) error {
	f.marked++
	return nil
}

type fakeSink struct {
	created []*models.SensorReading
	err     error
}

func (f *fakeSink) Create(_ context.Context, r *models.SensorReading) error {
	if f.err != nil {
		return f.err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	f.created = append(f.created, r)
	return nil
}

type countingLimiter struct {
	allow bool
	calls int
}

func (l *countingLimiter) Admit(string) bool { l.calls++; return l.allow }

func testDevice() *models.Device {
	return &models.Device{ID: 1, DeviceID: "esp32-test", HelmetID: uuid.NewString(), Active: true}
}

func validPayload() Payload {
	x, y, z := 0.12, -0.45, 9.81
	b, sig := 85, -55
	return Payload{
		SensorType: "ACCELEROMETER",
		XValue:     &x, YValue: &y, ZValue: &z,
		BatteryLevel: &b, SignalStrength: &sig,
	}
}

func TestSubmitPersistsReading(t *testing.T) {
	res := &fakeResolver{dev: testDevice()}
	sink := &fakeSink{}
	pipe := NewPipeline(res, ratelimit.NewSlidingWindow(60, time.Minute), sink, time.Second)

	ack, err := pipe.Submit(context.Background(), "token", validPayload())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.DataID == "" {
		t.Fatal("empty data_id")
	}
	if ack.ReceivedAt.IsZero() {
		t.Fatal("zero received_at")
	}
	if len(sink.created) != 1 {
		t.Fatalf("created = %d", len(sink.created))
	}
	rec := sink.created[0]
	if rec.SensorType != "ACCELEROMETER" || rec.XValue == nil || *rec.ZValue != 9.81 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.RawValue != nil {
		t.Fatal("raw_value set for vector sensor")
	}
	if rec.HelmetID != res.dev.HelmetID {
		t.Fatal("helmet reference not denormalized")
	}
	if res.marked != 1 {
		t.Fatalf("marked = %d", res.marked)
	}
}

func TestSubmitAuthPrecedesEverything(t *testing.T) {
	res := &fakeResolver{err: repo.ErrUnauthenticated}
	lim := &countingLimiter{allow: true}
	sink := &fakeSink{}
	pipe := NewPipeline(res, lim, sink, time.Second)

	// даже с мусорным payload неаутентифицированный клиент получает
	// только отказ в аутентификации
	_, err := pipe.Submit(context.Background(), "short", Payload{SensorType: "BOGUS"})
	if !errors.Is(err, repo.ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
	if lim.calls != 0 {
		t.Fatal("limiter consulted before auth")
	}
	if len(sink.created) != 0 {
		t.Fatal("reading persisted for unauthenticated caller")
	}
}

func TestSubmitInactiveDevice(t *testing.T) {
	res := &fakeResolver{err: repo.ErrForbidden}
	sink := &fakeSink{}
	pipe := NewPipeline(res, &countingLimiter{allow: true}, sink, time.Second)

	_, err := pipe.Submit(context.Background(), "token", validPayload())
	if !errors.Is(err, repo.ErrForbidden) {
		t.Fatalf("err = %v", err)
	}
	if len(sink.created) != 0 {
		t.Fatal("reading persisted for inactive device")
	}
}

func TestSubmitRateLimited(t *testing.T) {
	res := &fakeResolver{dev: testDevice()}
	sink := &fakeSink{}
	pipe := NewPipeline(res, &countingLimiter{allow: false}, sink, time.Second)

	_, err := pipe.Submit(context.Background(), "token", validPayload())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
	// отбитый запрос не фиксирует связь и ничего не пишет
	if res.marked != 0 {
		t.Fatal("last_connected touched on denial")
	}
	if len(sink.created) != 0 {
		t.Fatal("reading persisted on denial")
	}
}

func TestSubmitValidationStopsPersist(t *testing.T) {
	res := &fakeResolver{dev: testDevice()}
	sink := &fakeSink{}
	pipe := NewPipeline(res, &countingLimiter{allow: true}, sink, time.Second)

	_, err := pipe.Submit(context.Background(), "token", Payload{SensorType: "ACCELEROMETER"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v", err)
	}
	if len(sink.created) != 0 {
		t.Fatal("invalid reading persisted")
	}
	// но факт связи зафиксирован: устройство на связи, payload — нет
	if res.marked != 1 {
		t.Fatalf("marked = %d", res.marked)
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	res := &fakeResolver{dev: testDevice()}
	sink := &fakeSink{err: errors.New("connection reset")}
	pipe := NewPipeline(res, &countingLimiter{allow: true}, sink, time.Second)

	_, err := pipe.Submit(context.Background(), "token", validPayload())
	if err == nil {
		t.Fatal("want storage error")
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, repo.ErrUnauthenticated) {
		t.Fatalf("storage failure mapped to wrong category: %v", err)
	}
}

func TestSubmitNoDedup(t *testing.T) {
	res := &fakeResolver{dev: testDevice()}
	sink := &fakeSink{}
	pipe := NewPipeline(res, ratelimit.NewSlidingWindow(60, time.Minute), sink, time.Second)

	a1, err := pipe.Submit(context.Background(), "token", validPayload())
	if err != nil {
		t.Fatal(err)
	}
	a2, err := pipe.Submit(context.Background(), "token", validPayload())
	if err != nil {
		t.Fatal(err)
	}
	if a1.DataID == a2.DataID {
		t.Fatal("identical submissions must produce distinct readings")
	}
}
