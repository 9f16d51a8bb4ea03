package telemetry

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes — устройствоориентированная часть API (device token).
func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/api/esp32").Subrouter()
	sub.HandleFunc("/data", h.Data).Methods(http.MethodPost)
	sub.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	sub.HandleFunc("/config", h.Config).Methods(http.MethodPut)
}
