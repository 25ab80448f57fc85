// Package identity resolves who is making a request: a registered user named
// by the auth gateway, or an anonymous guest tracked by cookie.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/google/uuid"
)

const (
	GuestCookieName       = "cohub_guest_id"
	UserHeaderName        = "X-CoHub-User"
	UserNameHeaderName    = "X-CoHub-User-Name"
	UserEmailHeaderName   = "X-CoHub-User-Email"
	SessionHeaderName     = "X-CoHub-Session-ID"
	DefaultSessionIDValue = "default"
	guestCookieMaxAge     = 30 * 24 * time.Hour
)

type contextKey int

const (
	userKey contextKey = iota
	sessionIDKey
)

var (
	guestIDPattern   = regexp.MustCompile(`^guest_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	userIDPattern    = regexp.MustCompile(`^[A-Za-z0-9._:@|-]{1,128}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserStore is the profile persistence identity needs.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpsertUser(ctx context.Context, user *domain.User) error
}

// UserFromContext returns the request's user, or nil outside the middleware.
func UserFromContext(ctx context.Context) *domain.User {
	if v, ok := ctx.Value(userKey).(*domain.User); ok {
		return v
	}
	return nil
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithUser returns a context carrying user and sessionID.
func WithUser(ctx context.Context, user *domain.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func generateGuestID() string {
	return "guest_" + uuid.NewString()
}

func isValidGuestID(id string) bool {
	return guestIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func setGuestCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(guestCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(guestCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateGuestID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	if c, err := r.Cookie(GuestCookieName); err == nil && isValidGuestID(c.Value) {
		setGuestCookie(w, c.Value, isDev)
		return c.Value
	}
	id := generateGuestID()
	setGuestCookie(w, id, isDev)
	return id
}

// resolveUser loads or creates the profile and records the visit.
func resolveUser(ctx context.Context, repo UserStore, candidate *domain.User) (*domain.User, error) {
	existing, err := repo.GetUser(ctx, candidate.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	now := time.Now()
	candidate.LastSeenAt = now
	candidate.UpdatedAt = now
	candidate.CreatedAt = now
	if existing != nil {
		candidate.CreatedAt = existing.CreatedAt
		if candidate.FullName == "" {
			candidate.FullName = existing.FullName
		}
		if candidate.Email == "" {
			candidate.Email = existing.Email
		}
	}

	if err := repo.UpsertUser(ctx, candidate); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return candidate, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware attaches the request's user and tab session to the context.
// A valid X-CoHub-User header names a registered user; anything else is
// treated as a guest identified by cookie.
func Middleware(repo UserStore, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var candidate *domain.User
			if uid := strings.TrimSpace(r.Header.Get(UserHeaderName)); uid != "" && userIDPattern.MatchString(uid) {
				candidate = &domain.User{
					UserID:   uid,
					FullName: strings.TrimSpace(r.Header.Get(UserNameHeaderName)),
					Email:    strings.TrimSpace(r.Header.Get(UserEmailHeaderName)),
				}
			} else {
				candidate = &domain.User{
					UserID:  getOrCreateGuestID(w, r, isDev),
					IsGuest: true,
				}
			}

			user, err := resolveUser(r.Context(), repo, candidate)
			if err != nil {
				slog.Error("Failed to resolve user", "user_id", candidate.UserID, "error", err)
				http.Error(w, `{"error":"failed to initialize user"}`, http.StatusInternalServerError)
				return
			}

			ctx := WithUser(r.Context(), user, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
