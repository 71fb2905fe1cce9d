package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/service"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

// UsersHandler serves the directory endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Active    bool      `json:"active"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile serves GET /users/profile for the authenticated caller.
func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p := httpx.PrincipalFromContext(r.Context())

	user, roles, err := h.UserService.Profile(r.Context(), p.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Valid token for an account that no longer exists.
			httpx.WriteError(w, http.StatusNotFound, "not_found", "account no longer exists")
			return
		}
		writeInternalError(w, r, "profile lookup failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Active:    user.Active,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
	})
}

// List serves GET /users. Admin only.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.List(r.Context())
	if err != nil {
		writeInternalError(w, r, "user listing failed", err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID:        u.ID,
			Email:     u.Email,
			Username:  u.Username,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// Delete serves DELETE /users/{id}. Admin only.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.UserService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "user does not exist")
			return
		}
		writeInternalError(w, r, "user deletion failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
