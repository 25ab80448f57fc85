package chatws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair returns a server-side conn and its client peer.
func dialPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- c
		<-c.CloseRead(context.Background()).Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.CloseNow() })

	select {
	case c := <-serverConns:
		t.Cleanup(func() { _ = c.CloseNow() })
		return c, client
	case <-ctx.Done():
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestConnManagerRegisterAndUnregister(t *testing.T) {
	m := NewConnManager()
	conn, _ := dialPair(t)

	m.Register("user-1", "tab-1", conn)
	assert.Equal(t, 1, m.Count())

	m.Unregister("user-1", "tab-1", conn)
	assert.Equal(t, 0, m.Count())
}

func TestConnManagerReplacementKeepsNewerConn(t *testing.T) {
	m := NewConnManager()
	first, firstClient := dialPair(t)
	second, _ := dialPair(t)
	// The replaced conn is closed with a handshake the client must answer.
	firstClient.CloseRead(context.Background())

	m.Register("user-1", "tab-1", first)
	m.Register("user-1", "tab-1", second)
	assert.Equal(t, 1, m.Count())

	m.Unregister("user-1", "tab-1", first)
	assert.Equal(t, 1, m.Count(), "a stale conn must not unregister its replacement")

	m.Unregister("user-1", "tab-1", second)
	assert.Equal(t, 0, m.Count())
}

func TestConnManagerCloseSession(t *testing.T) {
	m := NewConnManager()
	a, aClient := dialPair(t)
	b, _ := dialPair(t)
	closed := aClient.CloseRead(context.Background())

	m.Register("user-1", "tab-1", a)
	m.Register("user-1", "tab-2", b)

	assert.True(t, m.CloseSession("user-1", "tab-1", "transcript deleted"))
	assert.Equal(t, 1, m.Count(), "other tabs stay open")
	assert.False(t, m.CloseSession("user-1", "tab-1", "again"))

	select {
	case <-closed.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client was not disconnected")
	}
}

func TestConnManagerBroadcast(t *testing.T) {
	m := NewConnManager()
	conn, client := dialPair(t)
	m.Register("user-1", "tab-1", conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Broadcast(ctx, ServerMessage{Type: TypePaymentsUpdated})

	_, data, err := client.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"payments_updated"}`, string(data))
}

func TestConnManagerBroadcastDoesNotHangOnStalledClient(t *testing.T) {
	m := NewConnManager()
	m.writeTimeout = 200 * time.Millisecond

	// The client never reads, so a large frame fills the socket buffers.
	stalled, _ := dialPair(t)
	m.Register("user-1", "tab-1", stalled)

	big := ServerMessage{Type: TypePaymentsUpdated, Error: strings.Repeat("x", 64<<20)}

	done := make(chan struct{})
	go func() {
		m.Broadcast(context.Background(), big)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("broadcast blocked on a client that stopped reading")
	}
}
