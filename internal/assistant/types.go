// Package assistant implements the dashboard chat assistant: intent
// resolution, payment-grounded answers, and the generative fallback.
package assistant

import (
	"github.com/ashureev/cohub/internal/domain"
)

// Greeting is the single message a fresh or reset transcript holds.
const Greeting = "Hello! I'm your AI assistant. How can I help you today?"

// Apology replaces any fallback backend failure.
const Apology = "Sorry, I'm having trouble connecting right now. Please try again later."

// Unprocessable replaces a fallback reply that arrived without text.
const Unprocessable = "Sorry, I couldn't process that request."

// IntentKind classifies how a message is handled.
type IntentKind string

const (
	IntentNavigation IntentKind = "navigation"
	IntentDataQuery  IntentKind = "data_query"
	IntentUnmatched  IntentKind = "unmatched"
)

// QueryKind names a payment question the assistant can answer locally.
type QueryKind string

const (
	QueryLatest QueryKind = "latest"
	QueryCount  QueryKind = "count"
	QueryTotal  QueryKind = "total"
	QueryStatus QueryKind = "status"
)

// Intent is the transient classification of one message.
type Intent struct {
	Kind  IntentKind
	Rule  string
	Route domain.Route // set for navigation
	Query QueryKind    // set for data queries
	Name  string       // customer name for QueryStatus
}

// ChatRequest is a message submitted to a session.
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"-"`
	SessionID string `json:"-"`
}

// Reply is the outcome of handling one message.
type Reply struct {
	Intent     IntentKind           `json:"intent"`
	Rule       string               `json:"rule,omitempty"`
	Response   string               `json:"response"`
	NavigateTo domain.Route         `json:"navigate_to,omitempty"`
	Message    *domain.ChatMessage  `json:"message,omitempty"`
	Transcript []domain.ChatMessage `json:"-"`
}

// Navigator moves the UI to a route. It must not block.
type Navigator func(domain.Route)
