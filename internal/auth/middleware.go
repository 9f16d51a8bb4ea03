package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"kaska/internal/models"
	"kaska/internal/repo"
)

type ctxKey string

const userKey ctxKey = "user"

// UserAuth — Bearer JWT → загруженный пользователь в контексте запроса.
// Ответ при любом сбое одинаковый: не подсказываем, токен это или пользователь.
func UserAuth(tokens *Tokens, users *repo.UserStore) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			raw := r.Header.Get("Authorization")
			if !strings.HasPrefix(raw, p) {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials", nil)
				return
			}
			userID, err := tokens.Parse(strings.TrimPrefix(raw, p))
			if err != nil {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials", nil)
				return
			}
			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials", nil)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser достаёт пользователя, положенного UserAuth.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}
