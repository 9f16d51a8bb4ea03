// Package analytics — дашбордные выборки. Большая часть значений пока
// заглушки под фронтенд; честные агрегаты только в Stats.
package analytics

import (
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"kaska/internal/auth"
	"kaska/internal/logs"
	"kaska/internal/models"
	"kaska/internal/repo"
)

type Handler struct {
	accidents *repo.AccidentStore
	readings  *repo.ReadingStore
	helmets   *repo.HelmetStore
	trips     *repo.TripStore
}

func NewHandler(accidents *repo.AccidentStore, readings *repo.ReadingStore, helmets *repo.HelmetStore, trips *repo.TripStore) *Handler {
	return &Handler{accidents: accidents, readings: readings, helmets: helmets, trips: trips}
}

// GET /api/analytics/stats — карточки: счётчик и g-force из БД,
// reliability/duration — заглушки.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.accidents.Stats(r.Context())
	if err != nil {
		logs.Logger.Errorf("accident stats: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	mean := st.AvgGForce
	if mean == 0 {
		mean = 1.2
	}
	maxSpike := st.MaxGForce
	if maxSpike == 0 {
		maxSpike = 4.5
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"total_accidents":   st.Total,
		"mean_gforce":       math.Round(mean*100) / 100,
		"max_spike":         math.Round(maxSpike*100) / 100,
		"reliability_score": 98,
		"duration_days":     7,
	})
}

// GET /api/analytics/time-series — линия для графика (заглушка).
func (h *Handler) TimeSeries(w http.ResponseWriter, _ *http.Request) {
	base := time.Now().Add(-20 * time.Minute)
	out := make([]map[string]any, 0, 20)
	for i := 0; i < 20; i++ {
		normal := math.Round((1.0+rand.Float64()*0.5)*100) / 100
		impact := normal
		if i == 12 {
			impact = 4.5
		}
		out = append(out, map[string]any{
			"time":   base.Add(time.Duration(i) * time.Minute).Format("15:04"),
			"normal": normal,
			"impact": impact,
		})
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// GET /api/analytics/spikes — бар-чарт по дням (заглушка).
func (h *Handler) Spikes(w http.ResponseWriter, _ *http.Request) {
	days := []string{"Mon", "Tue", "Wed", "Thu", "Fri"}
	out := make([]map[string]any, 0, len(days))
	for _, d := range days {
		out = append(out, map[string]any{"day": d, "spikes": 1 + rand.Intn(8)})
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// GET /api/analytics/distribution — пай-чарт (заглушка).
func (h *Handler) Distribution(w http.ResponseWriter, _ *http.Request) {
	models.WriteJSON(w, http.StatusOK, []map[string]any{
		{"name": "Normal Trips", "value": 85},
		{"name": "Hard Braking", "value": 10},
		{"name": "Accidents", "value": 5},
	})
}

// GET /api/data/live — снимок телеметрии: последнее принятое показание,
// а если устройство ещё ничего не прислало — симуляция. Потока нет:
// фронтенд опрашивает этот эндпоинт.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)

	helmet, err := h.helmets.FirstForUser(r.Context(), u.ID)
	if err != nil {
		logs.Logger.Errorf("helmet lookup: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}

	serial := r.URL.Query().Get("helmet_serial")
	if serial == "" && helmet != nil {
		serial = helmet.SerialNumber
	}
	if serial == "" {
		serial = "DEMO-LIVE"
	}

	if helmet != nil {
		reading, err := h.readings.LatestForHelmet(r.Context(), helmet.ID)
		if err == nil && reading != nil && reading.XValue != nil {
			models.WriteJSON(w, http.StatusOK, map[string]any{
				"serial_number": serial,
				"accel":         map[string]any{"x": *reading.XValue, "y": *reading.YValue, "z": *reading.ZValue},
				"gyro":          map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
				"battery":       reading.BatteryLevel,
				"last_seen":     reading.ReceivedAt,
			})
			return
		}
	}

	rnd := func(lo, hi float64) float64 { return math.Round((lo+rand.Float64()*(hi-lo))*100) / 100 }
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"serial_number": serial,
		"accel":         map[string]any{"x": rnd(-0.5, 0.5), "y": rnd(-0.5, 0.5), "z": rnd(9.0, 10.0)},
		"gyro":          map[string]any{"x": rnd(-2, 2), "y": rnd(-2, 2), "z": rnd(-2, 2)},
		"speed":         rand.Intn(60),
		"temp":          34,
		"last_seen":     time.Now().UTC(),
	})
}

// GET /api/data/trips — поездки по шлемам пользователя.
func (h *Handler) Trips(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r)
	ids, err := h.helmets.IDsForUser(r.Context(), u.ID)
	if err != nil {
		logs.Logger.Errorf("helmet ids: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	rows, err := h.trips.ListForHelmets(r.Context(), ids, 100)
	if err != nil {
		logs.Logger.Errorf("trips list: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, t := range rows {
		out = append(out, map[string]any{
			"id":            t.ID,
			"helmet_id":     t.HelmetID,
			"start_time":    t.StartTime,
			"end_time":      t.EndTime,
			"distance_km":   t.DistanceKM,
			"max_speed":     t.MaxSpeed,
			"average_speed": t.AverageSpeed,
			"trip_type":     t.TripType,
		})
	}
	models.WriteJSON(w, http.StatusOK, out)
}

func RegisterRoutes(r *mux.Router, h *Handler, userMW mux.MiddlewareFunc) {
	an := r.PathPrefix("/api/analytics").Subrouter()
	an.Use(userMW)
	an.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	an.HandleFunc("/time-series", h.TimeSeries).Methods(http.MethodGet)
	an.HandleFunc("/spikes", h.Spikes).Methods(http.MethodGet)
	an.HandleFunc("/distribution", h.Distribution).Methods(http.MethodGet)

	data := r.PathPrefix("/api/data").Subrouter()
	data.Use(userMW)
	data.HandleFunc("/live", h.Live).Methods(http.MethodGet)
	data.HandleFunc("/trips", h.Trips).Methods(http.MethodGet)
}
