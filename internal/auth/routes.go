package auth

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler, userMW mux.MiddlewareFunc) {
	r.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)

	me := r.PathPrefix("/api/auth/me").Subrouter()
	me.Use(userMW)
	me.HandleFunc("", h.Me).Methods(http.MethodGet)
}
