package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/store"
)

// TranscriptStore is the persistence the registry needs.
type TranscriptStore interface {
	GetTranscript(ctx context.Context, userID, sessionID string) (*domain.StoredTranscript, error)
	UpsertTranscript(ctx context.Context, t *domain.StoredTranscript) error
	DeleteTranscript(ctx context.Context, userID, sessionID string) error
}

var _ TranscriptStore = (store.Repository)(nil)

// SessionRegistry keeps live sessions keyed by user and tab session, and
// mirrors their transcripts to a store when one is configured.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    TranscriptStore
	logger   *slog.Logger
}

// NewSessionRegistry creates a registry. A nil store keeps transcripts in memory only.
func NewSessionRegistry(ts TranscriptStore, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		store:    ts,
		logger:   logger,
	}
}

// Get returns the live session for user/sessionID, restoring a persisted
// transcript or creating a fresh one.
func (r *SessionRegistry) Get(ctx context.Context, user *domain.User, sessionID string) *Session {
	key := sessionKey(user.UserID, sessionID)

	r.mu.Lock()
	if s, ok := r.sessions[key]; ok {
		r.mu.Unlock()
		s.SetUser(user)
		return s
	}
	s := NewSession(user, sessionID)
	s.turn.Lock()
	defer s.turn.Unlock()
	r.sessions[key] = s
	r.mu.Unlock()

	if r.store != nil {
		if msgs, err := r.load(ctx, user.UserID, sessionID); err != nil {
			r.logger.Warn("failed to restore transcript", "user_id", user.UserID, "session_id", sessionID, "error", err)
		} else {
			s.Restore(msgs)
		}
	}
	return s
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Save persists a session's transcript.
func (r *SessionRegistry) Save(ctx context.Context, s *Session) {
	if r.store == nil {
		return
	}
	data, err := json.Marshal(s.Messages())
	if err != nil {
		r.logger.Warn("failed to encode transcript", "user_id", s.UserID, "error", err)
		return
	}
	if err := r.store.UpsertTranscript(ctx, &domain.StoredTranscript{
		UserID:       s.UserID,
		SessionID:    s.SessionID,
		MessagesJSON: string(data),
	}); err != nil {
		r.logger.Warn("failed to persist transcript", "user_id", s.UserID, "session_id", s.SessionID, "error", err)
	}
}

// Forget drops a session from memory and storage.
func (r *SessionRegistry) Forget(ctx context.Context, userID, sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionKey(userID, sessionID))
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.DeleteTranscript(ctx, userID, sessionID); err != nil {
		r.logger.Warn("failed to delete transcript", "user_id", userID, "session_id", sessionID, "error", err)
	}
}

// EvictIdle drops in-memory sessions untouched for longer than ttl.
// Persisted transcripts are left for the store sweeper.
func (r *SessionRegistry) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, s := range r.sessions {
		if s.UpdatedAt().Before(cutoff) {
			delete(r.sessions, key)
			evicted++
		}
	}
	return evicted
}

func (r *SessionRegistry) load(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	stored, err := r.store.GetTranscript(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.MessagesJSON == "" {
		return nil, nil
	}
	var msgs []domain.ChatMessage
	if err := json.Unmarshal([]byte(stored.MessagesJSON), &msgs); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return msgs, nil
}
