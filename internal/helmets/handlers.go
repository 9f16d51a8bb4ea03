package helmets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"kaska/internal/auth"
	"kaska/internal/logs"
	"kaska/internal/models"
	"kaska/internal/repo"
)

type Handler struct {
	helmets *repo.HelmetStore
}

func NewHandler(helmets *repo.HelmetStore) *Handler { return &Handler{helmets: helmets} }

// POST /api/helmets — завести шлем за текущим пользователем.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)

	var req struct {
		SerialNumber string `json:"serial_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
		return
	}
	req.SerialNumber = strings.TrimSpace(req.SerialNumber)
	if req.SerialNumber == "" {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "serial_number: required", nil)
		return
	}

	now := time.Now().UTC()
	helmet := models.Helmet{UserID: &u.ID, SerialNumber: req.SerialNumber, LastSeen: &now}
	if err := h.helmets.Create(r.Context(), &helmet); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			models.WriteProblem(w, http.StatusConflict, "Conflict", "serial already exists", nil)
			return
		}
		logs.Logger.Errorf("helmet create: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":            helmet.ID,
		"serial_number": helmet.SerialNumber,
	})
}

// GET /api/helmets/my — первый шлем пользователя; пустой объект, если шлемов нет.
func (h *Handler) My(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)
	helmet, err := h.helmets.FirstForUser(r.Context(), u.ID)
	if err != nil {
		logs.Logger.Errorf("helmet lookup: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	if helmet == nil {
		models.WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"id":            helmet.ID,
		"serial_number": helmet.SerialNumber,
		"last_seen":     helmet.LastSeen,
	})
}

func RegisterRoutes(r *mux.Router, h *Handler, userMW mux.MiddlewareFunc) {
	sub := r.PathPrefix("/api/helmets").Subrouter()
	sub.Use(userMW)
	sub.HandleFunc("", h.Create).Methods(http.MethodPost)
	sub.HandleFunc("/my", h.My).Methods(http.MethodGet)
}
