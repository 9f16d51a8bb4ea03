package devices

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes — операции над устройствами от имени пользователя.
func RegisterRoutes(r *mux.Router, h *Handler, userMW mux.MiddlewareFunc) {
	sub := r.PathPrefix("/api/devices").Subrouter()
	sub.Use(userMW)
	sub.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	sub.HandleFunc("/{device_id}/active", h.SetActive).Methods(http.MethodPut)
}

func muxVar(r *http.Request, name string) string { return mux.Vars(r)[name] }
