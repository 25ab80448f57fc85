package assistant

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/google/uuid"
)

// Session is one chat conversation: a user, an append-only transcript and
// an optional navigator. Messages are handled one at a time.
type Session struct {
	UserID    string
	SessionID string

	// turn serialises whole message exchanges; mu guards the fields below.
	turn      sync.Mutex
	mu        sync.Mutex
	user      *domain.User
	messages  []domain.ChatMessage
	navigator Navigator
	now       func() time.Time
	updatedAt time.Time
}

// NewSession creates a session whose transcript holds only the greeting.
func NewSession(user *domain.User, sessionID string) *Session {
	s := &Session{SessionID: sessionID, user: user, now: time.Now}
	if user != nil {
		s.UserID = user.UserID
	}
	s.messages = []domain.ChatMessage{s.newMessage(Greeting, domain.SenderAssistant)}
	s.updatedAt = s.messages[0].Timestamp
	return s
}

// User returns the session's user.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SetUser refreshes the identity attached to the session.
func (s *Session) SetUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SetNavigator installs or clears the navigation callback.
func (s *Session) SetNavigator(nav Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigator = nav
}

func (s *Session) currentNavigator() Navigator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigator
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// UpdatedAt reports when the transcript last changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Append adds a message and returns it. Timestamps never go backwards:
// a clock that moved back is clamped to the previous message's time.
func (s *Session) Append(content string, sender domain.Sender) domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.newMessage(content, sender)
	if n := len(s.messages); n > 0 && msg.Timestamp.Before(s.messages[n-1].Timestamp) {
		msg.Timestamp = s.messages[n-1].Timestamp
	}
	s.messages = append(s.messages, msg)
	s.updatedAt = msg.Timestamp
	return msg
}

// Reset replaces the transcript with a single greeting.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []domain.ChatMessage{s.newMessage(Greeting, domain.SenderAssistant)}
	s.updatedAt = s.messages[0].Timestamp
}

// Restore replaces the transcript with persisted messages. An empty list
// leaves the greeting in place.
func (s *Session) Restore(messages []domain.ChatMessage) {
	if len(messages) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = slices.Clone(messages)
	s.updatedAt = s.now()
}

func (s *Session) newMessage(content string, sender domain.Sender) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: s.now(),
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
