package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"kaska/config"
	"kaska/internal/models"
)

// Полный стек против sqlite in-memory: роутер, middleware, сторы — всё настоящее.
func newTestApp(t *testing.T, rateLimit int) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.HTTPPort = "0"
	cfg.Auth.JWTSecret = "e2e-test-secret"
	cfg.Auth.TokenTTLMin = 60
	cfg.Telemetry.RateLimit = rateLimit
	cfg.Telemetry.RateWindowSec = 60
	cfg.Telemetry.StoreTimeoutSec = 5
	cfg.Logging.Level = "error"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	app := &App{}
	app.Initialize(cfg)
	return app
}

func doJSON(t *testing.T, app *App, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)

	out := map[string]any{}
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &out)
	}
	return rr, out
}

// регистрирует пользователя, шлем и устройство; возвращает токен устройства
func provisionDevice(t *testing.T, app *App, deviceID string) (userJWT, deviceToken string) {
	t.Helper()

	rr, out := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    uuid.NewString() + "@example.com",
		"password": "password123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("user register: %d %s", rr.Code, rr.Body)
	}
	userJWT = out["access_token"].(string)

	rr, out = doJSON(t, app, http.MethodPost, "/api/helmets", userJWT, map[string]any{
		"serial_number": "SN-" + uuid.NewString(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("helmet create: %d %s", rr.Code, rr.Body)
	}
	helmetID := out["id"].(string)

	rr, out = doJSON(t, app, http.MethodPost, "/api/devices/register", userJWT, map[string]any{
		"device_id": deviceID,
		"helmet_id": helmetID,
		"metadata":  map[string]any{"firmware": "1.0.3"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("device register: %d %s", rr.Code, rr.Body)
	}
	return userJWT, out["auth_token"].(string)
}

func TestIngestRoundTrip(t *testing.T) {
	app := newTestApp(t, 60)
	_, token := provisionDevice(t, app, "ESP32-E2E-1")

	rr, out := doJSON(t, app, http.MethodPost, "/api/esp32/data", token, map[string]any{
		"sensor_type":     "accelerometer",
		"x_value":         0.12,
		"y_value":         -0.3,
		"z_value":         9.81,
		"battery_level":   85,
		"signal_strength": -67,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("data: %d %s", rr.Code, rr.Body)
	}
	if out["status"] != "success" {
		t.Fatalf("bad ack: %v", out)
	}
	if id, _ := out["data_id"].(string); id == "" {
		t.Fatalf("ack without data_id: %v", out)
	}
	if ts, _ := out["received_at"].(string); ts == "" {
		t.Fatalf("ack without received_at: %v", out)
	}

	var count int64
	if err := app.db.Model(&models.SensorReading{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("persisted readings = %d, want 1", count)
	}

	rr, out = doJSON(t, app, http.MethodGet, "/api/esp32/status", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rr.Code, rr.Body)
	}
	if out["status"] != "active" || out["connected_via"] != models.ConnWiFi {
		t.Fatalf("bad status body: %v", out)
	}
	if out["battery_level"] != float64(85) {
		t.Fatalf("battery_level = %v, want 85", out["battery_level"])
	}
	if out["last_seen"] == nil {
		t.Fatal("last_seen not set after contact")
	}
}

func TestDuplicatePayloadsGetDistinctIDs(t *testing.T) {
	app := newTestApp(t, 60)
	_, token := provisionDevice(t, app, "ESP32-E2E-2")

	payload := map[string]any{"sensor_type": "TEMPERATURE", "raw_value": 36.6}
	_, first := doJSON(t, app, http.MethodPost, "/api/esp32/data", token, payload)
	_, second := doJSON(t, app, http.MethodPost, "/api/esp32/data", token, payload)
	if first["data_id"] == second["data_id"] {
		t.Fatalf("identical payloads must produce distinct readings, got %v twice", first["data_id"])
	}
}

func TestInvalidPayloadRejectedAndNotPersisted(t *testing.T) {
	app := newTestApp(t, 60)
	_, token := provisionDevice(t, app, "ESP32-E2E-3")

	rr, out := doJSON(t, app, http.MethodPost, "/api/esp32/data", token, map[string]any{
		"sensor_type":   "ACCELEROMETER",
		"x_value":       0.1,
		"y_value":       0.2, // нет z_value
		"battery_level": 150,
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422 (%s)", rr.Code, rr.Body)
	}
	extra, _ := out["extra"].(map[string]any)
	if extra == nil || extra["fields"] == nil {
		t.Fatalf("422 body must carry per-field errors: %v", out)
	}

	var count int64
	app.db.Model(&models.SensorReading{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid payload persisted %d readings", count)
	}
}

func TestDeviceAuthRejections(t *testing.T) {
	app := newTestApp(t, 60)
	userJWT, token := provisionDevice(t, app, "ESP32-E2E-4")
	payload := map[string]any{"sensor_type": "OTHER", "raw_value": 1.0}

	rr, _ := doJSON(t, app, http.MethodPost, "/api/esp32/data", "", payload)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d, want 401", rr.Code)
	}
	rr, _ = doJSON(t, app, http.MethodPost, "/api/esp32/data", "tooshort", payload)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("short token: %d, want 401", rr.Code)
	}
	// пользовательский JWT не подходит для устройства
	rr, _ = doJSON(t, app, http.MethodPost, "/api/esp32/data", userJWT, payload)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("user jwt as device token: %d, want 401", rr.Code)
	}

	rr, _ = doJSON(t, app, http.MethodPut, "/api/devices/ESP32-E2E-4/active", userJWT, map[string]any{"active": false})
	if rr.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rr.Code, rr.Body)
	}
	rr, _ = doJSON(t, app, http.MethodPost, "/api/esp32/data", token, payload)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("deactivated device: %d, want 403", rr.Code)
	}
	var count int64
	app.db.Model(&models.SensorReading{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected submissions persisted %d readings", count)
	}
}

func TestRateLimitOverHTTP(t *testing.T) {
	app := newTestApp(t, 2)
	_, token := provisionDevice(t, app, "ESP32-E2E-5")
	payload := map[string]any{"sensor_type": "GYROSCOPE", "x_value": 0.1, "y_value": 0.2, "z_value": 0.3}

	for i := 0; i < 2; i++ {
		if rr, _ := doJSON(t, app, http.MethodPost, "/api/esp32/data", token, payload); rr.Code != http.StatusOK {
			t.Fatalf("request %d: %d %s", i+1, rr.Code, rr.Body)
		}
	}
	rr, _ := doJSON(t, app, http.MethodPost, "/api/esp32/data", token, payload)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: %d, want 429", rr.Code)
	}
}

func TestDeviceConfigUpdateOverHTTP(t *testing.T) {
	app := newTestApp(t, 60)
	_, token := provisionDevice(t, app, "ESP32-E2E-6")

	rr, out := doJSON(t, app, http.MethodPut, "/api/esp32/config", token, map[string]any{
		"transmission_interval": 5000,
		"report_battery":        false,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("config: %d %s", rr.Code, rr.Body)
	}
	if out["status"] != "updated" {
		t.Fatalf("bad config ack: %v", out)
	}

	rr, _ = doJSON(t, app, http.MethodPut, "/api/esp32/config", token, map[string]any{
		"sensitivity_threshold": 99.0,
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-range patch: %d, want 422", rr.Code)
	}
}
