package accidents

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"kaska/internal/auth"
	"kaska/internal/logs"
	"kaska/internal/models"
	"kaska/internal/repo"
)

type Handler struct {
	accidents *repo.AccidentStore
	helmets   *repo.HelmetStore
}

func NewHandler(accidents *repo.AccidentStore, helmets *repo.HelmetStore) *Handler {
	return &Handler{accidents: accidents, helmets: helmets}
}

// GET /api/accidents?limit=&start=&end=&status=
// Админ видит всё, райдер — только события своих шлемов.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)
	q := r.URL.Query()

	f := repo.AccidentFilter{Limit: 20}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid limit", nil)
			return
		}
		f.Limit = n
	}
	if s := q.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid start date", nil)
			return
		}
		f.Start = &t
	}
	if s := q.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid end date", nil)
			return
		}
		f.End = &t
	}
	if s := q.Get("status"); s != "" {
		if !models.ValidAlertStatus(s) {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid status filter", nil)
			return
		}
		f.Status = s
	}

	if !u.IsAdmin {
		ids, err := h.helmets.IDsForUser(r.Context(), u.ID)
		if err != nil {
			logs.Logger.Errorf("helmet ids: %v", err)
			models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		f.HelmetIDs = ids
	}

	rows, err := h.accidents.List(r.Context(), f)
	if err != nil {
		logs.Logger.Errorf("accidents list: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, a := range rows {
		out = append(out, map[string]any{
			"id":             a.ID,
			"helmet_id":      a.HelmetID,
			"timestamp":      a.Timestamp,
			"latitude":       a.Latitude,
			"longitude":      a.Longitude,
			"gforce_reading": a.GForceReading,
			"alert_status":   a.AlertStatus,
		})
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// POST /api/accidents/{id}/confirm {confirm: bool}
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)
	id := mux.Vars(r)["id"]

	var body struct {
		Confirm *bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Confirm == nil {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "confirm: required boolean", nil)
		return
	}

	acc, err := h.accidents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not Found", "accident not found", nil)
			return
		}
		logs.Logger.Errorf("accident get: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}

	if !u.IsAdmin {
		helmet, err := h.helmets.GetByID(r.Context(), acc.HelmetID)
		if err != nil || helmet.UserID == nil || *helmet.UserID != u.ID {
			models.WriteProblem(w, http.StatusForbidden, "Forbidden", "not allowed", nil)
			return
		}
	}

	status := models.AlertResolved
	if *body.Confirm {
		status = models.AlertConfirmed
	}
	acc, err = h.accidents.SetAlertStatus(r.Context(), id, status)
	if err != nil {
		logs.Logger.Errorf("accident update: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"id":           acc.ID,
		"alert_status": acc.AlertStatus,
	})
}

func RegisterRoutes(r *mux.Router, h *Handler, userMW mux.MiddlewareFunc) {
	sub := r.PathPrefix("/api/accidents").Subrouter()
	sub.Use(userMW)
	sub.HandleFunc("", h.List).Methods(http.MethodGet)
	sub.HandleFunc("/{id}/confirm", h.Confirm).Methods(http.MethodPost)
}
