package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treatment-companion/internal/apperror"
)

// fakeSessionRepo is an in-memory repository.SessionRepository.
type fakeSessionRepo struct {
	mu   sync.Mutex
	rows map[string][]byte
	err  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[string][]byte)}
}

func (f *fakeSessionRepo) GetSession(_ context.Context, sid string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[sid]
	if !ok {
		return nil, apperror.NotFound("session", sid)
	}
	return p, nil
}

func (f *fakeSessionRepo) SaveSession(_ context.Context, sid string, payload []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[sid] = payload
	return nil
}

func (f *fakeSessionRepo) DeleteSession(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, sid)
	return nil
}

func (f *fakeSessionRepo) PruneExpiredSessions(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newTestSessionStore(t *testing.T) (*SessionStore, *fakeSessionRepo) {
	t.Helper()
	keys, err := DeriveKeys(testSecret)
	require.NoError(t, err)
	repo := newFakeSessionRepo()
	return NewSessionStore(repo, keys, time.Hour, false), repo
}

// loginCookie opens a session for userID and returns the cookie the
// browser would store.
func loginCookie(t *testing.T, store *SessionStore, userID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/callback", nil)
	require.NoError(t, store.Login(rec, req, userID))

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("Login() did not set the session cookie")
	return nil
}

func TestSessionStore_LoginThenUserID(t *testing.T) {
	store, repo := newTestSessionStore(t)

	cookie := loginCookie(t, store, "user-1")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 1, repo.count())

	req := httptest.NewRequest(http.MethodGet, "/api/symptoms", nil)
	req.AddCookie(cookie)

	userID, ok, err := store.UserID(req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestSessionStore_CookieHoldsNoUserID(t *testing.T) {
	store, _ := newTestSessionStore(t)

	cookie := loginCookie(t, store, "very-recognisable-user-id")
	assert.NotContains(t, cookie.Value, "very-recognisable-user-id")
}

func TestSessionStore_LoginRotatesSessionID(t *testing.T) {
	store, repo := newTestSessionStore(t)

	first := loginCookie(t, store, "user-1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/callback", nil)
	req.AddCookie(first)
	require.NoError(t, store.Login(rec, req, "user-1"))

	assert.Equal(t, 1, repo.count(), "old session row should be replaced")

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(first)
	_, ok, err := store.UserID(stale)
	require.NoError(t, err)
	assert.False(t, ok, "the pre-login session id must no longer authenticate")
}

func TestSessionStore_Logout(t *testing.T) {
	store, repo := newTestSessionStore(t)
	cookie := loginCookie(t, store, "user-1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/logout", nil)
	req.AddCookie(cookie)
	require.NoError(t, store.Logout(rec, req))

	assert.Equal(t, 0, repo.count())

	var expired *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			expired = c
		}
	}
	require.NotNil(t, expired)
	assert.Less(t, expired.MaxAge, 0)

	after := httptest.NewRequest(http.MethodGet, "/", nil)
	after.AddCookie(cookie)
	_, ok, err := store.UserID(after)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_TamperedCookie(t *testing.T) {
	store, _ := newTestSessionStore(t)
	cookie := loginCookie(t, store, "user-1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie.Value[:len(cookie.Value)-4] + "AAAA"})

	_, ok, err := store.UserID(req)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_CookieFromOtherSecret(t *testing.T) {
	store, _ := newTestSessionStore(t)

	otherKeys, err := DeriveKeys(testSecret + "-rotated")
	require.NoError(t, err)
	other := NewSessionStore(newFakeSessionRepo(), otherKeys, time.Hour, false)
	cookie := loginCookie(t, other, "user-1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, ok, err := store.UserID(req)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_StorageFailure(t *testing.T) {
	store, repo := newTestSessionStore(t)
	cookie := loginCookie(t, store, "user-1")
	repo.err = errors.New("database is locked")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, _, err := store.UserID(req)
	assert.Error(t, err)
}
