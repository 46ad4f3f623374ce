// Package authHandler exposes account and session management over HTTP.
package authHandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"patrimonio-service/internal/service/authService"
	"patrimonio-service/pkg/logger"
	"patrimonio-service/pkg/middleware"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth *authService.AuthService
}

func New(auth *authService.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Register creates an account.
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	uid, err := h.auth.Register(r.Context(), req.FullName, req.Email, req.Password)
	switch {
	case errors.Is(err, authService.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, authService.ErrEmailTaken):
		http.Error(w, "email already registered", http.StatusConflict)
		return
	case err != nil:
		logger.GetLogger(r.Context()).Error("registration failed", zap.Error(err))
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": uid.String()})
}

// Login exchanges credentials for a token pair.
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	access, refresh, uid, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
		"user_id":       uid.String(),
	})
}

// Logout blacklists the current access token and drops the refresh token.
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.auth.Logout(r.Context(), uid, token); err != nil {
		logger.GetLogger(r.Context()).Error("logout failed", zap.Error(err))
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh rotates the refresh token and issues a new access token.
// POST /api/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string `json:"user_id"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	access, refresh, err := h.auth.RefreshToken(r.Context(), uid, req.RefreshToken)
	if err != nil {
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// UpdateMe changes the caller's email and/or password.
// PATCH /api/users/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" && req.Password == "" {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	uid := middleware.UserID(r.Context())
	err := h.auth.UpdateUser(r.Context(), uid, req.Email, req.Password)
	switch {
	case errors.Is(err, authService.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, authService.ErrEmailTaken):
		http.Error(w, "email already registered", http.StatusConflict)
		return
	case err != nil:
		logger.GetLogger(r.Context()).Error("user update failed", zap.Error(err))
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
