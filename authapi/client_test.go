package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server *httptest.Server
	client *authapi.Client
	calls  atomic.Int32
	last   map[string]any
	path   string
}

func setupTestFixture(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *testFixture {
	t.Helper()

	f := &testFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.path = r.URL.Path
		f.last = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.last)
		require.Empty(t, r.Header.Get("Authorization"), "auth endpoints are called without credentials")
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	client, err := authapi.New(f.server.URL+"/api/", f.server.Client())
	require.NoError(t, err)
	f.client = client
	return f
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func tokenBody() map[string]any {
	return map[string]any{
		"accessToken":  "a1",
		"refreshToken": "r1",
		"tokenType":    "Bearer",
		"user": map[string]any{
			"id":        1,
			"username":  "alice",
			"firstName": "Alice",
			"lastName":  "Smith",
			"email":     "alice@example.com",
			"role":      "EMPLOYEE",
		},
	}
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, tokenBody())
		})

		resp, err := f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice", Password: "pw"})
		require.NoError(t, err)
		require.Equal(t, "/api/auth/login", f.path)
		require.Equal(t, map[string]any{"usernameOrEmail": "alice", "password": "pw"}, f.last)
		require.Equal(t, "a1", resp.AccessToken)
		require.Equal(t, "r1", resp.RefreshToken)
		require.Equal(t, users.RoleEmployee, resp.User.Role)
	})

	t.Run("rejected with server message", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password"})
		})

		_, err := f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice", Password: "bad"})
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
		require.Equal(t, "Invalid username or password", err.Error())
	})

	t.Run("rejected without message uses fallback", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice", Password: "bad"})
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
		require.Equal(t, authapi.LoginFailed, err.Error())
	})

	t.Run("blank fields never reach the server", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, tokenBody())
		})

		_, err := f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: " ", Password: "pw"})
		require.ErrorIs(t, err, errors.ErrValidationFailed)
		_, err = f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice"})
		require.ErrorIs(t, err, errors.ErrValidationFailed)
		require.Zero(t, f.calls.Load())
	})

	t.Run("response without tokens is malformed", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"user": tokenBody()["user"]})
		})

		_, err := f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice", Password: "pw"})
		require.ErrorIs(t, err, errors.ErrServerError)
	})

	t.Run("undecodable body", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		})

		_, err := f.client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice", Password: "pw"})
		require.ErrorIs(t, err, errors.ErrServerError)
	})
}

func TestLogin_NetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := authapi.New(url+"/api", nil)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), authapi.Credentials{UsernameOrEmail: "alice", Password: "pw"})
	require.ErrorIs(t, err, errors.ErrNetworkUnavailable)
	require.Equal(t, authapi.LoginFailed, errors.Message(err, ""))
}

func TestRegister(t *testing.T) {
	profile := authapi.Profile{
		Username:  "bob",
		Email:     "bob@example.com",
		Password:  "Secret123",
		FirstName: "Bob",
		LastName:  "Jones",
	}

	t.Run("success", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, tokenBody())
		})

		_, err := f.client.Register(context.Background(), profile)
		require.NoError(t, err)
		require.Equal(t, "/api/auth/register", f.path)
		require.Equal(t, "bob@example.com", f.last["email"])
		require.Equal(t, "Bob", f.last["firstName"])
	})

	t.Run("duplicate user", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username is already taken!"})
		})

		_, err := f.client.Register(context.Background(), profile)
		require.ErrorIs(t, err, errors.ErrValidationFailed)
		require.Equal(t, "Username is already taken!", err.Error())
	})

	t.Run("weak password", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, tokenBody())
		})

		weak := profile
		weak.Password = "short"
		_, err := f.client.Register(context.Background(), weak)
		require.ErrorIs(t, err, errors.ErrValidationFailed)
		require.Zero(t, f.calls.Load())
	})
}

func TestRefresh(t *testing.T) {
	t.Run("response may omit refresh token and user", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "a2"})
		})

		resp, err := f.client.Refresh(context.Background(), "r1")
		require.NoError(t, err)
		require.Equal(t, "/api/auth/refresh", f.path)
		require.Equal(t, map[string]any{"refreshToken": "r1"}, f.last)
		require.Equal(t, "a2", resp.AccessToken)
		require.Empty(t, resp.RefreshToken)
		require.Nil(t, resp.User)
	})

	t.Run("rejected", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Refresh token was expired"})
		})

		_, err := f.client.Refresh(context.Background(), "r1")
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
		require.Equal(t, "Refresh token was expired", err.Error())
	})

	t.Run("server error", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := f.client.Refresh(context.Background(), "r1")
		require.ErrorIs(t, err, errors.ErrServerError)
	})
}

func TestLogoutForgotReset(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/reset-password":
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid or expired token"})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		}
	})
	ctx := context.Background()

	require.NoError(t, f.client.Logout(ctx, "r1"))
	require.Equal(t, "/api/auth/logout", f.path)
	require.Equal(t, map[string]any{"refreshToken": "r1"}, f.last)

	require.NoError(t, f.client.ForgotPassword(ctx, "alice@example.com"))
	require.Equal(t, "/api/auth/forgot-password", f.path)
	require.Equal(t, map[string]any{"email": "alice@example.com"}, f.last)

	err := f.client.ResetPassword(ctx, "tok", "NewSecret1")
	require.ErrorIs(t, err, errors.ErrValidationFailed)
	require.Equal(t, "Invalid or expired token", err.Error())
	require.Equal(t, map[string]any{"token": "tok", "newPassword": "NewSecret1"}, f.last)

	calls := f.calls.Load()
	require.ErrorIs(t, f.client.ForgotPassword(ctx, ""), errors.ErrValidationFailed)
	require.ErrorIs(t, f.client.ResetPassword(ctx, "", "x"), errors.ErrValidationFailed)
	require.Equal(t, calls, f.calls.Load())
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := authapi.New("", nil)
	require.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	var method, path, header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, header = r.Method, r.URL.Path, r.Header.Get("Authorization")
		if header != "Bearer a1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Token is valid"})
	}))
	defer server.Close()

	client, err := authapi.New(server.URL+"/api", server.Client())
	require.NoError(t, err)

	require.NoError(t, client.ValidateToken(context.Background(), "a1"))
	require.Equal(t, http.MethodGet, method)
	require.Equal(t, "/api/auth/validate", path)
	require.Equal(t, "Bearer a1", header)

	err = client.ValidateToken(context.Background(), "stale")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	require.Equal(t, "Unauthorized", errors.Message(err, ""))

	err = client.ValidateToken(context.Background(), " ")
	require.ErrorIs(t, err, errors.ErrValidationFailed)
}

func TestValidateToken_NetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/api"
	server.Close()

	client, err := authapi.New(baseURL, nil)
	require.NoError(t, err)

	err = client.ValidateToken(context.Background(), "a1")
	require.ErrorIs(t, err, errors.ErrNetworkUnavailable)
	require.Equal(t, authapi.ValidateFailed, errors.Message(err, ""))
}
