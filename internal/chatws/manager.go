// Package chatws serves the assistant over WebSocket.
package chatws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

type tabKey struct {
	userID    string
	sessionID string
}

// ConnManager tracks the live chat connection of every user tab. A tab has
// at most one connection; a newer one replaces and closes the older.
type ConnManager struct {
	mu           sync.Mutex
	conns        map[tabKey]*websocket.Conn
	writeTimeout time.Duration
}

// NewConnManager creates an empty connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		conns:        make(map[tabKey]*websocket.Conn),
		writeTimeout: writeTimeout,
	}
}

// Count returns the number of registered connections.
func (m *ConnManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Register records conn as the tab's connection.
func (m *ConnManager) Register(userID, sessionID string, conn *websocket.Conn) {
	key := tabKey{userID, sessionID}

	m.mu.Lock()
	old := m.conns[key]
	m.conns[key] = conn
	m.mu.Unlock()

	if old != nil && old != conn {
		_ = old.Close(websocket.StatusPolicyViolation, "opened in another window")
	}
	slog.Info("Chat connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister forgets conn unless the tab has already moved to a newer one.
func (m *ConnManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	key := tabKey{userID, sessionID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[key] == conn {
		delete(m.conns, key)
		slog.Info("Chat connection unregistered", "user_id", userID, "session_id", sessionID)
	}
}

// CloseSession closes the tab's connection, if any. It reports whether a
// connection was open.
func (m *ConnManager) CloseSession(userID, sessionID, reason string) bool {
	key := tabKey{userID, sessionID}

	m.mu.Lock()
	conn, ok := m.conns[key]
	delete(m.conns, key)
	m.mu.Unlock()

	if !ok {
		return false
	}
	_ = conn.Close(websocket.StatusNormalClosure, reason)
	slog.Info("Chat connection closed", "user_id", userID, "session_id", sessionID, "reason", reason)
	return true
}

// Broadcast sends msg to every connection in parallel and returns once each
// write has finished or hit the write timeout. A timed-out connection is
// closed by the websocket library and cleaned up by its read loop.
func (m *ConnManager) Broadcast(ctx context.Context, msg ServerMessage) {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			if err := writeWithin(ctx, c, msg, m.writeTimeout); err != nil {
				slog.Debug("Chat broadcast write failed", "error", err)
			}
		}(c)
	}
	wg.Wait()
}
