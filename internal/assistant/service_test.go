package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPayments []domain.Payment

func (s staticPayments) Payments() []domain.Payment { return s }

type countingBackend struct {
	mu    sync.Mutex
	calls []string
	reply string
	err   error
}

func (b *countingBackend) Name() string { return "fake" }

func (b *countingBackend) Generate(_ context.Context, message string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, message)
	return b.reply, b.err
}

func (b *countingBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func guestUser() *domain.User {
	return &domain.User{UserID: "guest-1", IsGuest: true}
}

func newTestService(t *testing.T, backend Backend, records []domain.Payment) *Service {
	t.Helper()
	svc, err := NewService(ServiceDeps{
		Answerer:   NewAnswerer(payments.NewFormatter("₹", "en", time.UTC)),
		Dispatcher: NewDispatcher(backend, false, nil),
		Payments:   staticPayments(records),
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceDeps{})
	require.Error(t, err)
}

func TestSendBlankIsNoop(t *testing.T) {
	backend := &countingBackend{reply: "hi"}
	svc := newTestService(t, backend, nil)
	sess := svc.Session(context.Background(), guestUser(), "tab")

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, ok := svc.Send(context.Background(), sess, msg, SendOptions{})
		assert.False(t, ok)
	}
	assert.Len(t, sess.Messages(), 1)
	assert.Equal(t, 0, backend.callCount())
}

func TestSendNavigationCallsNavigatorOnce(t *testing.T) {
	backend := &countingBackend{reply: "hi"}
	svc := newTestService(t, backend, []domain.Payment{{ID: "p1", Amount: 100}})
	sess := svc.Session(context.Background(), guestUser(), "tab")

	var routes []domain.Route
	reply, ok := svc.Send(context.Background(), sess, "OPEN PAYMENTS", SendOptions{
		Navigate: func(r domain.Route) { routes = append(routes, r) },
	})
	require.True(t, ok)

	assert.Equal(t, []domain.Route{domain.RoutePayments}, routes)
	assert.Equal(t, domain.RoutePayments, reply.NavigateTo)
	assert.Empty(t, reply.Response)
	assert.Nil(t, reply.Message)
	assert.Equal(t, 0, backend.callCount())

	msgs := sess.Messages()
	require.Len(t, msgs, 2, "greeting + user message only")
	assert.Equal(t, domain.SenderUser, msgs[1].Sender)
}

func TestSendNavigationWithoutNavigatorConfirms(t *testing.T) {
	svc := newTestService(t, &countingBackend{}, nil)
	sess := svc.Session(context.Background(), guestUser(), "tab")

	reply, ok := svc.Send(context.Background(), sess, "go to residents", SendOptions{})
	require.True(t, ok)
	assert.Equal(t, "Opening residents.", reply.Response)
	assert.Len(t, sess.Messages(), 3)
}

func TestSendDataQueryDoesNotCallBackend(t *testing.T) {
	backend := &countingBackend{reply: "hi"}
	svc := newTestService(t, backend, []domain.Payment{{ID: "p1"}, {ID: "p2"}})
	sess := svc.Session(context.Background(), guestUser(), "tab")

	reply, ok := svc.Send(context.Background(), sess, "How many payments?", SendOptions{})
	require.True(t, ok)
	assert.Equal(t, IntentDataQuery, reply.Intent)
	assert.Equal(t, "You have 2 payments.", reply.Response)
	assert.Equal(t, 0, backend.callCount())
}

func TestSendUnmatchedGoesToFallback(t *testing.T) {
	backend := &countingBackend{reply: "I can help with that."}
	svc := newTestService(t, backend, nil)
	sess := svc.Session(context.Background(), guestUser(), "tab")

	reply, ok := svc.Send(context.Background(), sess, "  tell me a joke ", SendOptions{})
	require.True(t, ok)
	assert.Equal(t, IntentUnmatched, reply.Intent)
	assert.Equal(t, "I can help with that.", reply.Response)
	assert.Equal(t, []string{"tell me a joke"}, backend.calls)
}

func TestSendFallbackFailureAppendsOneApology(t *testing.T) {
	backend := &countingBackend{err: errors.New("HTTP 500")}
	svc := newTestService(t, backend, nil)
	sess := svc.Session(context.Background(), guestUser(), "tab")

	reply, ok := svc.Send(context.Background(), sess, "hello?", SendOptions{})
	require.True(t, ok)
	assert.Equal(t, Apology, reply.Response)

	msgs := sess.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Apology, msgs[2].Content)
	assert.Equal(t, domain.SenderAssistant, msgs[2].Sender)
	assert.Equal(t, 1, backend.callCount())
}

type recordingLog struct {
	mu     sync.Mutex
	events []ConversationLogEvent
}

func (r *recordingLog) Log(event ConversationLogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingLog) Close() error { return nil }

func TestSendRecordsFallbackOutcome(t *testing.T) {
	log := &recordingLog{}
	svc, err := NewService(ServiceDeps{
		Answerer:   NewAnswerer(payments.NewFormatter("₹", "en", time.UTC)),
		Dispatcher: NewDispatcher(&countingBackend{err: ErrBackendEmpty}, false, nil),
		Payments:   staticPayments(nil),
		Log:        log,
	})
	require.NoError(t, err)
	sess := svc.Session(context.Background(), guestUser(), "tab")

	reply, ok := svc.Send(context.Background(), sess, "hello?", SendOptions{})
	require.True(t, ok)
	assert.Equal(t, Unprocessable, reply.Response)

	require.Len(t, log.events, 2)
	meta := log.events[1].Meta
	assert.Equal(t, false, meta["fallback_ok"])
	assert.Equal(t, "fake", meta["backend"])
}

func TestResetLeavesSingleGreeting(t *testing.T) {
	svc := newTestService(t, &countingBackend{reply: "x"}, nil)
	sess := svc.Session(context.Background(), guestUser(), "tab")
	svc.Send(context.Background(), sess, "one", SendOptions{})
	svc.Send(context.Background(), sess, "two", SendOptions{})

	msgs := svc.Reset(context.Background(), sess)
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.Equal(t, domain.SenderAssistant, msgs[0].Sender)
}

func TestTranscriptTimestampsNonDecreasing(t *testing.T) {
	sess := NewSession(guestUser(), "tab")
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	sess.now = func() time.Time {
		ts := clock[i%len(clock)]
		i++
		return ts
	}

	for _, m := range []string{"a", "b", "c"} {
		sess.Append(m, domain.SenderUser)
	}
	msgs := sess.Messages()
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp), "message %d went back in time", i)
	}
}

func TestConcurrentSendsKeepTurnsPaired(t *testing.T) {
	svc := newTestService(t, &countingBackend{reply: "ok"}, nil)
	sess := svc.Session(context.Background(), guestUser(), "tab")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Send(context.Background(), sess, "ping", SendOptions{})
		}()
	}
	wg.Wait()

	msgs := sess.Messages()
	require.Len(t, msgs, 21)
	for i := 1; i < len(msgs); i += 2 {
		assert.Equal(t, domain.SenderUser, msgs[i].Sender)
		assert.Equal(t, domain.SenderAssistant, msgs[i+1].Sender)
	}
}
