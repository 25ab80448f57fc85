package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTranscripts struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemTranscripts() *memTranscripts {
	return &memTranscripts{data: make(map[string]string)}
}

func (m *memTranscripts) GetTranscript(_ context.Context, userID, sessionID string) (*domain.StoredTranscript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[sessionKey(userID, sessionID)]
	if !ok {
		return nil, nil
	}
	return &domain.StoredTranscript{UserID: userID, SessionID: sessionID, MessagesJSON: raw}, nil
}

func (m *memTranscripts) UpsertTranscript(_ context.Context, t *domain.StoredTranscript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionKey(t.UserID, t.SessionID)] = t.MessagesJSON
	return nil
}

func (m *memTranscripts) DeleteTranscript(_ context.Context, userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionKey(userID, sessionID))
	return nil
}

func TestRegistryRestoresPersistedTranscript(t *testing.T) {
	ctx := context.Background()
	store := newMemTranscripts()
	user := &domain.User{UserID: "u1", FullName: "Asha"}

	first := NewSessionRegistry(store, nil)
	sess := first.Get(ctx, user, "tab-1")
	sess.Append("hello", domain.SenderUser)
	first.Save(ctx, sess)

	second := NewSessionRegistry(store, nil)
	restored := second.Get(ctx, user, "tab-1")
	msgs := restored.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestRegistryReturnsSameSession(t *testing.T) {
	r := NewSessionRegistry(nil, nil)
	user := guestUser()
	a := r.Get(context.Background(), user, "tab")
	b := r.Get(context.Background(), user, "tab")
	c := r.Get(context.Background(), user, "other-tab")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryForget(t *testing.T) {
	ctx := context.Background()
	store := newMemTranscripts()
	r := NewSessionRegistry(store, nil)
	sess := r.Get(ctx, guestUser(), "tab")
	r.Save(ctx, sess)

	r.Forget(ctx, sess.UserID, "tab")
	assert.Equal(t, 0, r.Len())
	got, _ := store.GetTranscript(ctx, sess.UserID, "tab")
	assert.Nil(t, got)
}

func TestRegistryEvictIdle(t *testing.T) {
	r := NewSessionRegistry(nil, nil)
	sess := r.Get(context.Background(), guestUser(), "tab")
	sess.mu.Lock()
	sess.updatedAt = time.Now().Add(-2 * time.Hour)
	sess.mu.Unlock()

	assert.Equal(t, 1, r.EvictIdle(time.Hour))
	assert.Equal(t, 0, r.Len())
}
