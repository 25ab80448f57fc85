package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ashureev/cohub/internal/domain"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]domain.User)}
}

func (f *fakeUsers) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = *user
	return nil
}

func captureUser(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*domain.User, string, *httptest.ResponseRecorder) {
	t.Helper()
	var user *domain.User
	var sessionID string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return user, sessionID, rec
}

func TestMiddlewareIssuesGuestCookie(t *testing.T) {
	repo := newFakeUsers()
	user, sid, rec := captureUser(t, Middleware(repo, true), httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if user == nil || !user.IsGuest {
		t.Fatalf("expected guest user, got %+v", user)
	}
	if !isValidGuestID(user.UserID) {
		t.Fatalf("unexpected guest id %q", user.UserID)
	}
	if sid != DefaultSessionIDValue {
		t.Fatalf("expected default session, got %q", sid)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != GuestCookieName || cookies[0].Value != user.UserID {
		t.Fatalf("expected guest cookie, got %+v", cookies)
	}
	if _, ok := repo.users[user.UserID]; !ok {
		t.Fatal("expected guest to be persisted")
	}
}

func TestMiddlewareReusesValidGuestCookie(t *testing.T) {
	repo := newFakeUsers()
	id := generateGuestID()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: id})
	user, _, _ := captureUser(t, Middleware(repo, true), req)

	if user.UserID != id {
		t.Fatalf("expected %q, got %q", id, user.UserID)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "forged"})
	user, _, _ = captureUser(t, Middleware(repo, true), req)
	if user.UserID == "forged" {
		t.Fatal("expected forged cookie to be replaced")
	}
}

func TestMiddlewareTrustedHeader(t *testing.T) {
	repo := newFakeUsers()
	req := httptest.NewRequest(http.MethodGet, "/?session_id=tab-7", nil)
	req.Header.Set(UserHeaderName, "user-42")
	req.Header.Set(UserNameHeaderName, "Asha Rao")
	req.Header.Set(UserEmailHeaderName, "asha@example.com")

	user, sid, rec := captureUser(t, Middleware(repo, false), req)
	if user.IsGuest || user.UserID != "user-42" || user.FullName != "Asha Rao" {
		t.Fatalf("unexpected user %+v", user)
	}
	if sid != "tab-7" {
		t.Fatalf("expected query session id, got %q", sid)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("registered users must not get a guest cookie")
	}

	// A later request without the name keeps the stored profile.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserHeaderName, "user-42")
	req.Header.Set(SessionHeaderName, "bad session id!")
	user, sid, _ = captureUser(t, Middleware(repo, false), req)
	if user.FullName != "Asha Rao" {
		t.Fatalf("expected stored name to be kept, got %q", user.FullName)
	}
	if sid != DefaultSessionIDValue {
		t.Fatalf("expected invalid session id to be replaced, got %q", sid)
	}
}

func TestMiddlewareStoreFailure(t *testing.T) {
	repo := newFakeUsers()
	repo.err = errors.New("disk full")

	_, _, rec := captureUser(t, Middleware(repo, true), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestContextHelpersOutsideMiddleware(t *testing.T) {
	ctx := context.Background()
	if UserFromContext(ctx) != nil || UserIDFromContext(ctx) != "" {
		t.Fatal("expected empty identity")
	}
	if SessionIDFromContext(ctx) != DefaultSessionIDValue {
		t.Fatal("expected default session id")
	}
}
