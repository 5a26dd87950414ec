package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/auth"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/middleware"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

// AuthHandler serves /api/v1/auth endpoints.
type AuthHandler struct {
	Auth   auth.Service
	Logger *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, h.Logger, "register", fmt.Errorf("%w: email, password and name", models.ErrMissingRequiredField))
		return
	}
	u, err := h.Auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.Logger, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, h.Logger, "login", fmt.Errorf("%w: email and password", models.ErrMissingRequiredField))
		return
	}
	token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeErrorCode(w, http.StatusUnauthorized, string(models.KindUnauthorized), "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, h.Logger, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.GetUser(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, h.Logger, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
