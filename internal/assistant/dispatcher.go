package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/cohub/internal/domain"
)

const persona = "You are the CoHub assistant. You help property owners and residents " +
	"with their dashboard, residents, issues and payments. Keep answers short."

// Dispatcher forwards unmatched messages to a backend, exactly once each.
type Dispatcher struct {
	backend     Backend
	wrapContext bool
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil backend behaves like OfflineBackend.
func NewDispatcher(backend Backend, wrapContext bool, logger *slog.Logger) *Dispatcher {
	if backend == nil {
		backend = OfflineBackend{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{backend: backend, wrapContext: wrapContext, logger: logger}
}

// Backend returns the name of the configured backend.
func (d *Dispatcher) Backend() string {
	return d.backend.Name()
}

// Dispatch returns the backend's reply. A reply without text becomes
// Unprocessable and any other failure becomes Apology. The second return
// reports whether the backend succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, user *domain.User, message string) (string, bool) {
	outbound := message
	if d.wrapContext {
		outbound = WrapMessage(user, message)
	}

	reply, err := d.backend.Generate(ctx, outbound)
	if err != nil {
		d.logger.Error("Assistant fallback failed",
			"backend", d.backend.Name(),
			"user_id", userID(user),
			"error", err,
		)
		if errors.Is(err, ErrBackendEmpty) {
			return Unprocessable, false
		}
		return Apology, false
	}
	return reply, true
}

// WrapMessage prefixes a message with the persona and who is asking.
func WrapMessage(user *domain.User, message string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n")
	if user == nil || user.IsGuest {
		fmt.Fprintf(&b, "The user is browsing as a guest (%s).\n", user.DisplayName())
	} else {
		fmt.Fprintf(&b, "The user's name is %s.\n", user.DisplayName())
	}
	b.WriteString("\nUser message: ")
	b.WriteString(message)
	return b.String()
}

func userID(user *domain.User) string {
	if user == nil {
		return ""
	}
	return user.UserID
}
