package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/officehub-client/access"
	"github.com/jrsteele09/officehub-client/internal/config"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *app {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "a1",
			"refreshToken": "r1",
			"user":         map[string]any{"id": 1, "username": "alice", "role": "MANAGER"},
		})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"message":"Token is valid"}`))
	})
	mux.HandleFunc("GET /api/departments", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Setenv("API_BASE_URL", server.URL+"/api")
	t.Setenv("CREDENTIAL_STORE", "file")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("CREDENTIAL_PASSPHRASE", "test passphrase")

	a, err := newApp(config.New(t.TempDir() + "/.env"))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestDispatch_SessionSurvivesRestart(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()

	require.Equal(t, access.RedirectLogin, a.guard.Check())
	require.NoError(t, a.dispatch(ctx, "login", []string{"alice", "pw"}))
	require.True(t, a.session.IsManagerOrAdmin())
	require.NoError(t, a.dispatch(ctx, "get", []string{"/departments"}))
	require.NoError(t, a.dispatch(ctx, "validate", nil))
	require.NoError(t, a.dispatch(ctx, "check", []string{"ADMIN"}))
	require.Equal(t, access.RedirectUnauthorized, a.guard.Check(users.RoleAdmin))

	restarted, err := newApp(config.New(t.TempDir() + "/.env"))
	require.NoError(t, err)
	defer restarted.Close()
	require.True(t, restarted.session.IsAuthenticated())
	require.Equal(t, "alice", restarted.session.User().Username)

	require.NoError(t, restarted.dispatch(ctx, "logout", nil))
	require.False(t, restarted.session.IsAuthenticated())
}

func TestDispatch_Errors(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()

	require.Error(t, a.dispatch(ctx, "nope", nil))
	require.ErrorIs(t, a.dispatch(ctx, "login", []string{"alice"}), errors.ErrValidationFailed)
	require.ErrorIs(t, a.dispatch(ctx, "check", []string{"ROOT"}), errors.ErrValidationFailed)
	require.ErrorIs(t, a.dispatch(ctx, "whoami", nil), errors.ErrAuthorizationExpired)
	require.ErrorIs(t, a.dispatch(ctx, "validate", nil), errors.ErrAuthorizationExpired)
}
