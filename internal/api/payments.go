package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/cohub/internal/payments"
)

type paymentStatsResponse struct {
	payments.Stats
	Received  string    `json:"received"`
	Sent      string    `json:"sent"`
	Net       string    `json:"net"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ListPayments returns cached payments as display rows, newest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	snap := h.cache.Snapshot()
	JSON(w, http.StatusOK, map[string]interface{}{
		"payments":   payments.Views(snap.Payments, h.format),
		"loaded":     snap.Loaded,
		"fetched_at": snap.FetchedAt,
	})
}

// PaymentStats returns totals over the cached payments.
func (h *Handler) PaymentStats(w http.ResponseWriter, r *http.Request) {
	snap := h.cache.Snapshot()
	stats := payments.ComputeStats(snap.Payments)
	JSON(w, http.StatusOK, paymentStatsResponse{
		Stats:     stats,
		Received:  h.format.Amount(stats.Received),
		Sent:      h.format.Amount(stats.Sent),
		Net:       h.format.Amount(stats.Net),
		FetchedAt: snap.FetchedAt,
	})
}

// RefreshPayments reloads the payment cache from the store.
func (h *Handler) RefreshPayments(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Refresh(r.Context()); err != nil {
		slog.Error("Payment refresh failed", "error", err)
		Error(w, http.StatusBadGateway, "failed to refresh payments")
		return
	}
	snap := h.cache.Snapshot()
	JSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(snap.Payments),
		"fetched_at": snap.FetchedAt,
	})
}
