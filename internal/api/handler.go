// Package api provides HTTP handlers for the CoHub API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/cohub/internal/assistant"
	"github.com/ashureev/cohub/internal/config"
	"github.com/ashureev/cohub/internal/payments"
	"github.com/ashureev/cohub/internal/referral"
	"github.com/ashureev/cohub/internal/store"
	"github.com/go-chi/chi/v5"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// SessionCloser disconnects live chat connections of a tab.
type SessionCloser interface {
	CloseSession(userID, sessionID, reason string) bool
}

// Deps bundles what the handlers need. ChatConns is optional.
type Deps struct {
	Repo      store.Repository
	Cache     *payments.Cache
	Format    *payments.Formatter
	Assistant *assistant.Service
	Referrals *referral.Service
	Config    *config.Config
	ChatConns SessionCloser
}

// Handler serves the JSON API.
type Handler struct {
	repo      store.Repository
	cache     *payments.Cache
	format    *payments.Formatter
	assistant *assistant.Service
	referrals *referral.Service
	cfg       *config.Config
	chatConns SessionCloser
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		repo:      deps.Repo,
		cache:     deps.Cache,
		format:    deps.Format,
		assistant: deps.Assistant,
		referrals: deps.Referrals,
		cfg:       deps.Config,
		chatConns: deps.ChatConns,
	}
}

// RegisterRoutes registers all API routes. chat is wrapped around the
// assistant chat endpoint, typically a rate limiter.
func (h *Handler) RegisterRoutes(r chi.Router, chat func(http.Handler) http.Handler) {
	if chat == nil {
		chat = func(next http.Handler) http.Handler { return next }
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/dashboard", h.GetDashboard)

		r.Get("/payments", h.ListPayments)
		r.Get("/payments/stats", h.PaymentStats)
		r.Post("/payments/refresh", h.RefreshPayments)

		r.With(chat).Post("/assistant/chat", h.Chat)
		r.Get("/assistant/transcript", h.Transcript)
		r.Delete("/assistant/transcript", h.DeleteTranscript)
		r.Post("/assistant/reset", h.ResetTranscript)

		r.Get("/referral", h.GetReferral)

		r.Get("/issues", h.ListIssues)
		r.Get("/residents", h.ListResidents)
		r.Post("/residents", h.AddResident)
		r.Get("/properties", h.ListProperties)
		r.Post("/properties", h.AddProperty)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a size-limited JSON body into v, writing the error
// response itself. It reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
