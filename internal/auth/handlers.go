package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"kaska/internal/logs"
	"kaska/internal/models"
	"kaska/internal/repo"
)

type Handler struct {
	users  *repo.UserStore
	tokens *Tokens
}

func NewHandler(users *repo.UserStore, tokens *Tokens) *Handler {
	return &Handler{users: users, tokens: tokens}
}

type registerRequest struct {
	Email                 string `json:"email"`
	Password              string `json:"password"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PhoneNumber           string `json:"phone_number"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "email: invalid", nil)
		return
	}
	if len(req.Password) < 8 {
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "password: minimum 8 characters", nil)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	u := models.User{
		Email:                 req.Email,
		PasswordHash:          hash,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		PhoneNumber:           req.PhoneNumber,
		EmergencyContactPhone: req.EmergencyContactPhone,
	}
	if err := h.users.Create(r.Context(), &u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			models.WriteProblem(w, http.StatusConflict, "Conflict", "email already registered", nil)
			return
		}
		logs.Logger.Errorf("user create: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	h.writeToken(w, u.ID)
}

// POST /api/auth/login — принимаем и JSON {email,password},
// и OAuth2-форму username/password (как делает прошлое поколение клиентов).
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad form", nil)
			return
		}
		email, password = r.FormValue("username"), r.FormValue("password")
	} else {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
			return
		}
		email, password = req.Email, req.Password
	}

	u, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil || !VerifyPassword(password, u.PasswordHash) {
		// одинаковый ответ на неизвестный email и неверный пароль
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials", nil)
		return
	}
	h.writeToken(w, u.ID)
}

// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u := CurrentUser(r)
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_admin":   u.IsAdmin,
	})
}

func (h *Handler) writeToken(w http.ResponseWriter, userID string) {
	tok, err := h.tokens.Issue(userID)
	if err != nil {
		logs.Logger.Errorf("issue token: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresIn:   int(h.tokens.TTL() / time.Second),
	})
}
