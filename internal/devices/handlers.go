package devices

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/datatypes"

	"kaska/internal/auth"
	"kaska/internal/logs"
	"kaska/internal/middleware"
	"kaska/internal/models"
	"kaska/internal/repo"
)

type Handler struct {
	devices *repo.DeviceStore
	helmets *repo.HelmetStore
}

func NewHandler(devices *repo.DeviceStore, helmets *repo.HelmetStore) *Handler {
	return &Handler{devices: devices, helmets: helmets}
}

type registerRequest struct {
	DeviceID       string         `json:"device_id"`
	HelmetID       string         `json:"helmet_id"`
	ConnectionType string         `json:"connection_type"`
	Metadata       map[string]any `json:"metadata"`
}

// POST /api/devices/register (JWT пользователя).
// Токен устройства отдаётся один-единственный раз — в этом ответе.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
		return
	}
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" || req.HelmetID == "" {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity",
			"device_id and helmet_id are required", nil)
		return
	}
	conn, ok := models.NormalizeConnectionType(strings.ToUpper(strings.TrimSpace(req.ConnectionType)))
	if !ok {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity",
			"connection_type: must be one of WIFI, BLUETOOTH, OTHER", nil)
		return
	}

	var meta datatypes.JSON
	if req.Metadata != nil {
		meta, _ = json.Marshal(req.Metadata)
	}

	dev, token, err := h.devices.Register(r.Context(), repo.RegisterInput{
		DeviceID:       req.DeviceID,
		HelmetID:       req.HelmetID,
		ConnectionType: conn,
		UserID:         u.ID,
		Metadata:       meta,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{
		"device_id":  dev.DeviceID,
		"helmet_id":  dev.HelmetID,
		"auth_token": token,
	})
}

type activeRequest struct {
	Active *bool `json:"active"`
}

// PUT /api/devices/{device_id}/active — деактивация = отзыв токена.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	deviceID := muxVar(r, "device_id")

	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "active: required boolean", nil)
		return
	}

	dev, err := h.devices.GetByDeviceID(r.Context(), deviceID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.ownsDevice(w, r, dev) {
		return
	}

	dev, err = h.devices.SetActive(r.Context(), deviceID, *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.DeviceID,
		"active":    dev.Active,
	})
}

// ownsDevice: управлять устройством может владелец шлема или админ.
func (h *Handler) ownsDevice(w http.ResponseWriter, r *http.Request, dev *models.Device) bool {
	u := auth.CurrentUser(r)
	if u.IsAdmin {
		return true
	}
	helmet, err := h.helmets.GetByID(r.Context(), dev.HelmetID)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	if helmet.UserID == nil || *helmet.UserID != u.ID {
		models.WriteProblem(w, http.StatusForbidden, "Forbidden", "not allowed", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "referenced resource does not exist", nil)
	case errors.Is(err, repo.ErrForbidden):
		models.WriteProblem(w, http.StatusForbidden, "Forbidden", "not allowed", nil)
	case errors.Is(err, repo.ErrConflict):
		models.WriteProblem(w, http.StatusConflict, "Conflict", "device already registered", nil)
	default:
		logs.Logger.Errorf("devices error reqid=%s: %v", middleware.GetRequestID(r), err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
	}
}
