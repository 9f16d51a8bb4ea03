package telemetry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"kaska/internal/logs"
	"kaska/internal/middleware"
	"kaska/internal/models"
	"kaska/internal/repo"
)

type Handler struct {
	devices  *repo.DeviceStore
	readings *repo.ReadingStore
	pipe     *Pipeline
}

func NewHandler(devices *repo.DeviceStore, readings *repo.ReadingStore, pipe *Pipeline) *Handler {
	return &Handler{devices: devices, readings: readings, pipe: pipe}
}

// Authorization: Bearer <token>; токен — непрозрачная случайная строка.
func bearerToken(r *http.Request) string {
	const p = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, p) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, p))
}

// Наружу — только грубая категория; почему именно отказано (нет устройства,
// выключено) видно лишь в логах, иначе токены можно перебирать по ответам.
func (h *Handler) writeDeviceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, repo.ErrUnauthenticated):
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid device credential", nil)
	case errors.Is(err, repo.ErrForbidden):
		models.WriteProblem(w, http.StatusForbidden, "Forbidden", "device not allowed", nil)
	case errors.Is(err, ErrRateLimited):
		models.WriteProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", nil)
	case errors.As(err, &verr):
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity",
			"payload failed validation", map[string]any{"fields": verr.Fields})
	case errors.Is(err, repo.ErrValidation):
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error(), nil)
	default:
		logs.Logger.Errorf("telemetry error reqid=%s: %v", middleware.GetRequestID(r), err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
	}
}

// POST /api/esp32/data
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "missing device credential", nil)
		return
	}

	var p Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
		return
	}

	ack, err := h.pipe.Submit(r.Context(), token, p)
	if err != nil {
		h.writeDeviceError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"received_at": ack.ReceivedAt.Format(time.RFC3339Nano),
		"data_id":     ack.DataID,
	})
}

// GET /api/esp32/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	dev, ok := h.authDevice(w, r)
	if !ok {
		return
	}
	if err := h.devices.MarkConnected(r.Context(), dev); err != nil {
		logs.Logger.Warnf("mark connected device=%s: %v", dev.DeviceID, err)
	}
	battery, err := h.readings.LatestBattery(r.Context(), dev.ID)
	if err != nil {
		h.writeDeviceError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "active",
		"last_seen":     dev.LastConnectedAt,
		"battery_level": battery,
		"connected_via": dev.ConnectionType,
	})
}

type configRequest struct {
	TransmissionInterval *int     `json:"transmission_interval"`
	SensitivityThreshold *float64 `json:"sensitivity_threshold"`
	ReportBattery        *bool    `json:"report_battery"`
}

// PUT /api/esp32/config — частичное обновление: отсутствующие поля не трогаем.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	dev, ok := h.authDevice(w, r)
	if !ok {
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
		return
	}

	_, err := h.devices.UpdateConfig(r.Context(), dev.ID, repo.ConfigPatch{
		TransmissionIntervalMS: req.TransmissionInterval,
		SensitivityThreshold:   req.SensitivityThreshold,
		ReportBattery:          req.ReportBattery,
	})
	if err != nil {
		h.writeDeviceError(w, r, err)
		return
	}
	if err := h.devices.MarkConnected(r.Context(), dev); err != nil {
		logs.Logger.Warnf("mark connected device=%s: %v", dev.DeviceID, err)
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "updated",
		"applied_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) authDevice(w http.ResponseWriter, r *http.Request) (*models.Device, bool) {
	token := bearerToken(r)
	if token == "" {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "missing device credential", nil)
		return nil, false
	}
	dev, err := h.devices.ResolveByToken(r.Context(), token)
	if err != nil {
		h.writeDeviceError(w, r, err)
		return nil, false
	}
	return dev, true
}
