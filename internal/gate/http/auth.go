package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// AuthHandler serves the credential endpoints. Tokens are transported
// exclusively via cookies; response bodies only ever describe the token
// type and lifetime.
type AuthHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register serves POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	userID, err := h.AuthService.Register(r.Context(), req.Email, req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		case errors.Is(err, service.ErrConflict):
			httpx.WriteError(w, http.StatusConflict, "conflict", "email or username already taken")
		default:
			writeInternalError(w, r, "register failed", err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"userId": userID})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type tokenResponse struct {
	TokenType string `json:"tokenType"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// Login serves POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	triple, err := h.AuthService.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid identifier or password")
		case errors.Is(err, service.ErrAccountInactive):
			httpx.WriteError(w, http.StatusUnauthorized, "account_inactive", "account is not active")
		default:
			writeInternalError(w, r, "login failed", err)
		}
		return
	}

	setAuthCookies(w, r, triple, h.AuthService.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		TokenType: triple.TokenType,
		ExpiresIn: int(triple.ExpiresIn / time.Second),
	})
}

// Refresh serves POST /auth/refresh. The refresh token only ever
// travels in its cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(httpx.RefreshTokenCookie); err == nil {
		presented = c.Value
	}

	triple, err := h.AuthService.Refresh(r.Context(), presented)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			clearAuthCookies(w, r)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is invalid or expired")
			return
		}
		writeInternalError(w, r, "refresh failed", err)
		return
	}

	setAuthCookies(w, r, triple, h.AuthService.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		TokenType: triple.TokenType,
		ExpiresIn: int(triple.ExpiresIn / time.Second),
	})
}

// Logout serves POST /auth/logout. Requires a verified principal.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := httpx.PrincipalFromContext(r.Context())

	presented := ""
	if c, err := r.Cookie(httpx.RefreshTokenCookie); err == nil {
		presented = c.Value
	}

	if err := h.AuthService.Logout(r.Context(), p.Subject, presented); err != nil {
		writeInternalError(w, r, "logout failed", err)
		return
	}

	clearAuthCookies(w, r)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

type revokeRequest struct {
	Identifier string `json:"identifier"`
}

// Revoke serves POST /auth/revoke. Admin only.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "identifier is required")
		return
	}

	revoked, err := h.AuthService.RevokeByIdentifier(r.Context(), req.Identifier)
	if err != nil {
		writeInternalError(w, r, "revoke failed", err)
		return
	}
	if !revoked {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no active session for identifier")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// Sessions serves GET /auth/sessions. Admin only.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.AuthService.ListActiveSessions(r.Context())
	if err != nil {
		writeInternalError(w, r, "session listing failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slogx.FromContext(r.Context()).Error(msg, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}
