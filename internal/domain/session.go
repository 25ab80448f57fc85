package domain

import (
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry of a chat transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Route is a navigation destination in the dashboard UI.
type Route string

const (
	RouteDashboard Route = "dashboard"
	RouteResidents Route = "residents"
	RoutePayments  Route = "payments"
)
