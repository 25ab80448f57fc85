package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/cohub/internal/domain"
)

// PaymentSource exposes the current payment snapshot.
type PaymentSource interface {
	Payments() []domain.Payment
}

// SendOptions adjusts how one message is handled.
type SendOptions struct {
	// Channel labels the transport in conversation logs.
	Channel string
	// Navigate overrides the session navigator for this message.
	Navigate Navigator
}

// Service runs chat turns: resolve, answer or forward, record.
type Service struct {
	resolver   *Resolver
	answerer   *Answerer
	dispatcher *Dispatcher
	payments   PaymentSource
	sessions   *SessionRegistry
	log        ConversationLogger
	logger     *slog.Logger
}

// ServiceDeps bundles the collaborators of a Service.
type ServiceDeps struct {
	Resolver   *Resolver
	Answerer   *Answerer
	Dispatcher *Dispatcher
	Payments   PaymentSource
	Sessions   *SessionRegistry
	Log        ConversationLogger
	Logger     *slog.Logger
}

// NewService creates a chat service. Resolver defaults to DefaultResolver,
// Sessions to an in-memory registry, and Log to a no-op logger.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Answerer == nil {
		return nil, fmt.Errorf("assistant: answerer is required")
	}
	if deps.Payments == nil {
		return nil, fmt.Errorf("assistant: payment source is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Resolver == nil {
		deps.Resolver = DefaultResolver()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = NewDispatcher(nil, false, deps.Logger)
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessionRegistry(nil, deps.Logger)
	}
	if deps.Log == nil {
		deps.Log = noopConversationLogger{}
	}
	return &Service{
		resolver:   deps.Resolver,
		answerer:   deps.Answerer,
		dispatcher: deps.Dispatcher,
		payments:   deps.Payments,
		sessions:   deps.Sessions,
		log:        deps.Log,
		logger:     deps.Logger,
	}, nil
}

// Sessions returns the session registry.
func (s *Service) Sessions() *SessionRegistry { return s.sessions }

// BackendName names the fallback backend.
func (s *Service) BackendName() string { return s.dispatcher.Backend() }

// Session returns the live session for a user's tab.
func (s *Service) Session(ctx context.Context, user *domain.User, sessionID string) *Session {
	return s.sessions.Get(ctx, user, sessionID)
}

// Send handles one user message on a session. Blank messages are a no-op and
// return ok=false. Otherwise the user message is appended, followed by at
// most one assistant reply.
func (s *Service) Send(ctx context.Context, sess *Session, text string, opts SendOptions) (reply Reply, ok bool) {
	if isBlank(text) {
		return Reply{}, false
	}
	text = strings.TrimSpace(text)

	sess.turn.Lock()
	defer sess.turn.Unlock()

	user := sess.User()
	channel := opts.Channel
	if channel == "" {
		channel = "chat_http"
	}

	sess.Append(text, domain.SenderUser)
	s.logEvent(sess, channel, "outbound", "chat_user_message", text, nil)

	intent := s.resolver.Resolve(text)
	reply = Reply{Intent: intent.Kind, Rule: intent.Rule}
	start := time.Now()

	var content string
	meta := map[string]any{
		"intent": string(intent.Kind),
		"rule":   intent.Rule,
	}
	switch intent.Kind {
	case IntentNavigation:
		reply.NavigateTo = intent.Route
		nav := opts.Navigate
		if nav == nil {
			nav = sess.currentNavigator()
		}
		if nav != nil {
			nav(intent.Route)
		} else {
			content = navigationConfirmation(intent.Route)
		}
	case IntentDataQuery:
		content = s.answerer.Answer(intent, s.payments.Payments())
	default:
		var ok bool
		content, ok = s.dispatcher.Dispatch(ctx, user, text)
		meta["backend"] = s.dispatcher.Backend()
		meta["fallback_ok"] = ok
	}

	if content != "" {
		msg := sess.Append(content, domain.SenderAssistant)
		reply.Message = &msg
		reply.Response = content
		meta["duration_ms"] = time.Since(start).Milliseconds()
		s.logEvent(sess, channel, "inbound", "chat_assistant_message", content, meta)
	}

	s.sessions.Save(ctx, sess)
	reply.Transcript = sess.Messages()

	s.logger.Info("Assistant turn",
		"user_id", sess.UserID,
		"session_id", sess.SessionID,
		"intent", intent.Kind,
		"rule", intent.Rule,
		"message_length", len(text),
	)
	return reply, true
}

// Reset clears a session back to the greeting and persists it.
func (s *Service) Reset(ctx context.Context, sess *Session) []domain.ChatMessage {
	sess.turn.Lock()
	defer sess.turn.Unlock()

	sess.Reset()
	s.sessions.Save(ctx, sess)
	s.logEvent(sess, "chat_http", "outbound", "chat_reset", "", nil)
	return sess.Messages()
}

// Forget discards a tab's session and its stored transcript. The next
// request for that tab starts again from the greeting.
func (s *Service) Forget(ctx context.Context, userID, sessionID string) {
	s.sessions.Forget(ctx, userID, sessionID)
	s.log.Log(ConversationLogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
		SessionID: sessionID,
		Channel:   "chat_http",
		Direction: "outbound",
		EventType: "chat_forget",
	})
}

// Close flushes the conversation log.
func (s *Service) Close() error {
	return s.log.Close()
}

func (s *Service) logEvent(sess *Session, channel, direction, eventType, content string, meta map[string]any) {
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     sess.UserID,
		SessionID:  sess.SessionID,
		Channel:    channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}

func navigationConfirmation(route domain.Route) string {
	return fmt.Sprintf("Opening %s.", route)
}
