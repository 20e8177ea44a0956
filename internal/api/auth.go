package api

import (
	"net/http"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/identity"
	"github.com/ashureev/wooagent/internal/service"
)

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decode(w, r, &creds); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.backend.Login(r.Context(), creds)
	if err != nil {
		fail(w, err, "Login failed")
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Logout revokes the request's token and closes the streams opened with it.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := identity.TokenFromContext(r.Context())
	if err := h.backend.Logout(r.Context(), token); err != nil {
		fail(w, err, "Logout failed")
		return
	}
	h.conns.CloseSession(token)
	w.WriteHeader(http.StatusNoContent)
}

// GetMe returns the authenticated user.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.backend.CurrentUser(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, err, "Failed to fetch user")
		return
	}
	JSON(w, http.StatusOK, u)
}

// UpdateMe changes the user's name or email.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if err := decode(w, r, &patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.backend.UpdateUser(r.Context(), identity.UserIDFromContext(r.Context()), patch)
	if err != nil {
		fail(w, err, "Failed to update user")
		return
	}
	JSON(w, http.StatusOK, u)
}

// ChangePassword verifies the current password and stores the new one.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var change domain.PasswordChange
	if err := decode(w, r, &change); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.backend.ChangePassword(r.Context(), identity.UserIDFromContext(r.Context()), change)
	if err != nil {
		if service.StatusCode(err) == http.StatusUnauthorized {
			// Answering 401 would end the caller's session.
			Error(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		fail(w, err, "Failed to change password")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
