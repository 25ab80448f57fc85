package chatws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/cohub/internal/assistant"
	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// Message types exchanged with the client.
const (
	TypeMessage  = "message"
	TypeReset    = "reset"
	TypePing     = "ping"
	TypeHistory  = "history"
	TypeReply    = "reply"
	TypeNavigate = "navigate"
	TypePong     = "pong"
	TypeError    = "error"
	// TypePaymentsUpdated is pushed after the payment cache is refreshed.
	TypePaymentsUpdated = "payments_updated"
)

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServerMessage is a frame sent to the browser.
type ServerMessage struct {
	Type     string               `json:"type"`
	Reply    *assistant.Reply     `json:"reply,omitempty"`
	Route    domain.Route         `json:"route,omitempty"`
	Messages []domain.ChatMessage `json:"messages,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Handler upgrades requests to chat WebSockets.
type Handler struct {
	svc           *assistant.Service
	conns         *ConnManager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket chat handler.
func NewHandler(svc *assistant.Service, conns *ConnManager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{svc: svc, conns: conns, allowedOrigin: allowedOrigin, isDev: isDev}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	slog.Info("Chat WebSocket request", "user_id", user.UserID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", user.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", user.UserID)
		}
	}()

	h.conns.Register(user.UserID, sessionID, ws)
	defer h.conns.Unregister(user.UserID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.svc.Session(ctx, user, sessionID)
	if err := write(ctx, ws, ServerMessage{Type: TypeHistory, Messages: sess.Messages()}); err != nil {
		slog.Debug("Failed to send chat history", "error", err)
		return
	}

	h.readLoop(ctx, ws, sess)
	slog.Info("Chat session ended", "user_id", user.UserID, "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess *assistant.Session) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed by client", "user_id", sess.UserID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", sess.UserID)
			}
			return
		}

		var out ServerMessage
		switch msg.Type {
		case TypeMessage:
			reply, ok := h.svc.Send(ctx, sess, msg.Content, assistant.SendOptions{
				Channel: "chat_ws",
				Navigate: func(route domain.Route) {
					if err := write(ctx, ws, ServerMessage{Type: TypeNavigate, Route: route}); err != nil {
						slog.Debug("Failed to send navigation", "error", err)
					}
				},
			})
			if !ok {
				continue
			}
			out = ServerMessage{Type: TypeReply, Reply: &reply}
		case TypeReset:
			out = ServerMessage{Type: TypeHistory, Messages: h.svc.Reset(ctx, sess)}
		case TypePing:
			out = ServerMessage{Type: TypePong}
		default:
			out = ServerMessage{Type: TypeError, Error: "unknown message type"}
		}

		if err := write(ctx, ws, out); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", sess.UserID)
			return
		}
	}
}

func write(ctx context.Context, ws *websocket.Conn, msg ServerMessage) error {
	return writeWithin(ctx, ws, msg, writeTimeout)
}

func writeWithin(ctx context.Context, ws *websocket.Conn, msg ServerMessage, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}
