package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treatment-companion/internal/auth"
	"github.com/sakif/treatment-companion/internal/model"
	sqliteRepo "github.com/sakif/treatment-companion/internal/repository/sqlite"
	"github.com/sakif/treatment-companion/internal/service"
)

// testUserHeader stands in for the auth gate in these tests: the router
// puts its value in the context as the verified user id.
const testUserHeader = "X-Test-User"

type testEnv struct {
	router http.Handler
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires the real services over an in-memory database, with
// users "alice" and "bob" already signed up.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, db.Users().Upsert(context.Background(), &model.User{
			ID:    id,
			Email: model.StringPtr(id + "@example.com"),
		}))
	}

	keys, err := auth.DeriveKeys("handler-test-secret-of-at-least-32-chars")
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(keys.Token, time.Hour)
	require.NoError(t, err)

	logger := discardLogger()
	symptoms := NewSymptomHandler(service.NewSymptomService(db.Symptoms(), logger), logger)
	appts := NewAppointmentHandler(service.NewAppointmentService(db.Appointments(), logger), logger)
	users := NewAuthHandler(nil, nil, service.NewAuthService(db.Users(), tokens, logger), false, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(testUserHeader); id != "" {
				r = r.WithContext(auth.WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/api/auth/user", users.HandleMe)
	r.Patch("/api/auth/user", users.HandleUpdateProfile)
	r.Post("/api/auth/token", users.HandleIssueToken)
	r.Get("/api/symptoms", symptoms.HandleList)
	r.Post("/api/symptoms", symptoms.HandleCreate)
	r.Get("/api/appointments", appts.HandleList)
	r.Post("/api/appointments", appts.HandleCreate)
	r.Patch("/api/appointments/{id}", appts.HandleUpdate)
	r.Delete("/api/appointments/{id}", appts.HandleDelete)

	return &testEnv{router: r, db: db, tokens: tokens}
}

// do sends a request as userID (anonymous when empty) and returns the
// recorder.
func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}
