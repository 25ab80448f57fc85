package api

import (
	"net/http"

	"github.com/ashureev/cohub/internal/identity"
)

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      user.UserID,
		"display_name": user.DisplayName(),
		"email":        user.Email,
		"is_guest":     user.IsGuest,
		"session_id":   identity.SessionIDFromContext(r.Context()),
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"assistant_backend": h.assistant.BackendName(),
	}
	if h.cfg != nil {
		resp["currency_symbol"] = h.cfg.Money.Symbol
		resp["locale"] = h.cfg.Money.Locale
		resp["referral_base_url"] = h.cfg.ReferralBaseURL
	}
	JSON(w, http.StatusOK, resp)
}
