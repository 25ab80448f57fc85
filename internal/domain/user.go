// Package domain contains core domain types for the CoHub application.
package domain

import (
	"time"
)

// User represents a dashboard user, either a registered owner/resident or a guest.
type User struct {
	UserID     string    `json:"user_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email,omitempty"`
	IsGuest    bool      `json:"is_guest"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns the name shown to the assistant and the UI.
func (u *User) DisplayName() string {
	if u == nil {
		return "Guest"
	}
	if u.FullName != "" {
		return u.FullName
	}
	if u.IsGuest {
		return "Guest"
	}
	return u.Email
}
