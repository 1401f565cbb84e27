package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/repository"
)

// SessionCookieName is the cookie that carries the signed session id.
const SessionCookieName = "companion_session"

const sessionUserKey = "user_id"

// SessionStore is a gorilla/sessions Store that keeps session values in the
// sessions table. The cookie only carries the session id, signed and
// encrypted with securecookie.
type SessionStore struct {
	repo    repository.SessionRepository
	codecs  []securecookie.Codec
	Options *sessions.Options
}

var _ sessions.Store = (*SessionStore)(nil)

// NewSessionStore creates a store whose sessions live for maxAge. secure
// controls the cookie's Secure attribute and should be true behind TLS.
func NewSessionStore(repo repository.SessionRepository, keys *Keys, maxAge time.Duration, secure bool) *SessionStore {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	codecs := securecookie.CodecsFromPairs(keys.CookieHash, keys.CookieBlock)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}

	return &SessionStore{repo: repo, codecs: codecs, Options: opts}
}

// Get returns the named session, cached per request by the sessions registry.
func (s *SessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie, or returns a fresh one.
//
// A cookie that fails to decode is reported as an error alongside a usable
// new session, matching the other gorilla stores. A cookie whose row is
// gone or expired silently yields a new session.
func (s *SessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var sid string
	if err := securecookie.DecodeMulti(name, c.Value, &sid, s.codecs...); err != nil {
		return session, fmt.Errorf("auth: decoding session cookie: %w", err)
	}

	payload, err := s.repo.GetSession(r.Context(), sid)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return session, nil
		}
		return session, err
	}

	values := map[string]any{}
	if err := json.Unmarshal(payload, &values); err != nil {
		return session, fmt.Errorf("auth: decoding session %s: %w", sid, err)
	}
	for k, v := range values {
		session.Values[k] = v
	}

	session.ID = sid
	session.IsNew = false
	return session, nil
}

// Save persists the session and writes its cookie. A negative MaxAge
// deletes the row and expires the cookie.
func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.repo.DeleteSession(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	values := make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		key, ok := k.(string)
		if !ok {
			return fmt.Errorf("auth: session key %v is not a string", k)
		}
		values[key] = v
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("auth: encoding session: %w", err)
	}

	expire := time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	if err := s.repo.SaveSession(r.Context(), session.ID, payload, expire); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("auth: encoding session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Login opens a session for userID and sets the cookie. Any previous
// session id is discarded so a fixated id cannot be reused.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	session, _ := s.Get(r, SessionCookieName)
	if session.ID != "" {
		if err := s.repo.DeleteSession(r.Context(), session.ID); err != nil {
			return err
		}
		session.ID = ""
	}
	session.Values[sessionUserKey] = userID
	return session.Save(r, w)
}

// Logout destroys the caller's session, if any, and expires the cookie.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.Get(r, SessionCookieName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserID returns the user bound to the request's session.
func (s *SessionStore) UserID(r *http.Request) (string, bool, error) {
	session, err := s.Get(r, SessionCookieName)
	if err != nil {
		var cookieErr securecookie.Error
		if errors.As(err, &cookieErr) {
			return "", false, nil
		}
		return "", false, err
	}
	id, ok := session.Values[sessionUserKey].(string)
	return id, ok && id != "", nil
}
