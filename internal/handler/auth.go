package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/auth"
	"github.com/sakif/treatment-companion/internal/metrics"
	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/service"
)

const stateCookieName = "oauth_state"

// IdentityProvider runs the OAuth2 authorization code flow.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

// SessionManager opens and closes browser sessions.
type SessionManager interface {
	Login(w http.ResponseWriter, r *http.Request, userID string) error
	Logout(w http.ResponseWriter, r *http.Request) error
}

// UserService is the part of service.AuthService the handler uses.
type UserService interface {
	Login(ctx context.Context, identity *auth.Identity) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, upd service.ProfileUpdate) (*model.User, error)
	IssueToken(ctx context.Context, userID string) (string, time.Time, error)
}

// AuthHandler serves the login flow and the caller's account.
type AuthHandler struct {
	provider      IdentityProvider
	sessions      SessionManager
	users         UserService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. provider may be nil when no
// identity provider is configured; the login routes then answer 503 and
// only bearer tokens minted elsewhere can reach the API.
func NewAuthHandler(provider IdentityProvider, sessions SessionManager, users UserService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		sessions:      sessions,
		users:         users,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleLogin handles GET /api/login: it stores a random state in a
// short-lived cookie and redirects to the identity provider.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "login_unavailable",
			Message: "No identity provider is configured",
		})
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/callback",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback handles GET /api/callback, the identity provider's
// redirect back. On success the user is upserted, a session is opened and
// the browser is sent to the app root.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "login_unavailable",
			Message: "No identity provider is configured",
		})
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		metrics.LoginsTotal.WithLabelValues("bad_state").Inc()
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(stateCookie.Value)) != 1 {
		h.logger.Warn("auth callback: state mismatch")
		metrics.LoginsTotal.WithLabelValues("bad_state").Inc()
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/api/callback",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		metrics.LoginsTotal.WithLabelValues("denied").Inc()
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	user, err := h.users.Login(r.Context(), identity)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		writeError(w, r, err)
		return
	}

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		writeError(w, r, err)
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout handles GET /api/logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe handles GET /api/auth/user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	FirstName  *string `json:"firstName" validate:"omitempty,max=100"`
	LastName   *string `json:"lastName" validate:"omitempty,max=100"`
	Age        *int    `json:"age" validate:"omitempty,min=0,max=130"`
	Gender     *string `json:"gender" validate:"omitempty,max=50"`
	CancerType *string `json:"cancerType" validate:"omitempty,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
}

// HandleUpdateProfile handles PATCH /api/auth/user.
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Age:        req.Age,
		Gender:     req.Gender,
		CancerType: req.CancerType,
		Phone:      req.Phone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// TokenResponse is the body of POST /api/auth/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleIssueToken handles POST /api/auth/token: it mints a bearer token
// for the signed-in caller.
func (h *AuthHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated())
		return
	}

	token, expiresAt, err := h.users.IssueToken(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}
