package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/cohub/internal/identity"
	"github.com/ashureev/cohub/internal/referral"
)

// GetReferral returns the user's referral code, creating it on first use.
func (h *Handler) GetReferral(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	info, err := h.referrals.GetOrCreate(r.Context(), user)
	switch {
	case errors.Is(err, referral.ErrGuest):
		Error(w, http.StatusForbidden, "sign in to get a referral code")
		return
	case err != nil:
		slog.Error("Failed to get referral", "error", err, "user_id", identity.UserIDFromContext(r.Context()))
		Error(w, http.StatusInternalServerError, "failed to get referral code")
		return
	}
	JSON(w, http.StatusOK, info)
}
