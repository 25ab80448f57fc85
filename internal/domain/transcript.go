package domain

import (
	"time"
)

// StoredTranscript is the persisted form of one chat session's transcript.
type StoredTranscript struct {
	UserID       string
	SessionID    string
	MessagesJSON string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
