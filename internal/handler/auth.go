package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flatmate/internal/auth"
	"github.com/dukerupert/flatmate/internal/model"
	"github.com/dukerupert/flatmate/internal/store"
)

type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewAuthHandler(users *store.UserStore, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FlatCode string `json:"flat_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the user profile plus a freshly issued bearer token.
type authResponse struct {
	*model.User
	Token string `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" ||
		req.Password == "" || strings.TrimSpace(req.FlatCode) == "" {
		writeError(w, http.StatusBadRequest, "Please enter all fields")
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Email, req.Password, req.FlatCode)
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}
	if err != nil {
		h.logger.Error("register user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
	h.logger.Info("user registered", "user_id", user.ID, "flat_code", user.HouseholdCode)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if !h.users.VerifyPassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *model.User) {
	token, err := h.tokens.Issue(user.ID, user.HouseholdCode)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, status, authResponse{User: user, Token: token})
}
