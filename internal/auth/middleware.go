package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is an unexported type so no other package can read or shadow
// the values stored here.
type contextKey string

const userIDKey contextKey = "userID"

const unauthorizedBody = `{"error":"unauthorized","message":"Unauthorized"}`

// Gate rejects requests that carry no verified identity and stores the
// caller's user id in the request context for everything downstream.
//
// Identity sources, in order:
//  1. the server-side session named by the session cookie
//  2. an "Authorization: Bearer <jwt>" header
//
// A rejected request gets 401 with a JSON body and never reaches the
// handler. A storage failure while loading the session is a 500.
func Gate(store *SessionStore, tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := identify(r, store, tokens)
			if err != nil {
				logger.Error("loading session failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"An internal error occurred"}`))
				return
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(unauthorizedBody))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func identify(r *http.Request, store *SessionStore, tokens *TokenService) (string, bool, error) {
	if store != nil {
		userID, ok, err := store.UserID(r)
		if err != nil {
			return "", false, err
		}
		if ok {
			return userID, true, nil
		}
	}

	if tokens != nil {
		if raw, ok := bearerToken(r); ok {
			if userID, err := tokens.Validate(raw); err == nil {
				return userID, true, nil
			}
		}
	}

	return "", false, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. It returns ("", false) outside a gated route.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
