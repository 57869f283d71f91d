package authapifake

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
)

// FakeAPI is an in-memory stand-in for the auth endpoints.
// Responses are configured with the Set* methods; every call is counted.
type FakeAPI struct {
	lock          sync.Mutex
	login         func(authapi.Credentials) (authapi.TokenResponse, error)
	register      func(authapi.Profile) (authapi.TokenResponse, error)
	refresh       func(ctx context.Context, refreshToken string) (authapi.TokenResponse, error)
	logoutErr     error
	forgotErr     error
	resetErr      error
	calls         map[string]int
	logoutTokens  []string
	refreshTokens []string
}

func New() *FakeAPI {
	return &FakeAPI{calls: map[string]int{}}
}

// TokenResponse builds a login style response for username with role
func TokenResponse(username string, role users.RoleType, accessToken, refreshToken string) authapi.TokenResponse {
	return authapi.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		User: &users.User{
			ID:        1,
			Username:  username,
			FirstName: "Test",
			LastName:  "User",
			Email:     username + "@example.com",
			Role:      role,
		},
	}
}

// Rejected is the failure the server returns for bad credentials
func Rejected(message string) error {
	return errors.FromStatus(http.StatusUnauthorized, message)
}

func (f *FakeAPI) SetLogin(resp authapi.TokenResponse, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.login = func(authapi.Credentials) (authapi.TokenResponse, error) {
		return resp, err
	}
}

func (f *FakeAPI) SetRegister(resp authapi.TokenResponse, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.register = func(authapi.Profile) (authapi.TokenResponse, error) {
		return resp, err
	}
}

func (f *FakeAPI) SetRefresh(resp authapi.TokenResponse, err error) {
	f.SetRefreshFunc(func(context.Context, string) (authapi.TokenResponse, error) {
		return resp, err
	})
}

// SetRefreshFunc installs a refresh handler, for tests that need to block or inspect the call
func (f *FakeAPI) SetRefreshFunc(fn func(ctx context.Context, refreshToken string) (authapi.TokenResponse, error)) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refresh = fn
}

func (f *FakeAPI) SetLogoutErr(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.logoutErr = err
}

func (f *FakeAPI) SetForgotPasswordErr(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.forgotErr = err
}

func (f *FakeAPI) SetResetPasswordErr(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.resetErr = err
}

func (f *FakeAPI) Login(_ context.Context, creds authapi.Credentials) (authapi.TokenResponse, error) {
	f.lock.Lock()
	f.calls["login"]++
	login := f.login
	f.lock.Unlock()

	if err := creds.Validate(); err != nil {
		return authapi.TokenResponse{}, err
	}
	if login == nil {
		return authapi.TokenResponse{}, Rejected("")
	}
	return login(creds)
}

func (f *FakeAPI) Register(_ context.Context, profile authapi.Profile) (authapi.TokenResponse, error) {
	f.lock.Lock()
	f.calls["register"]++
	register := f.register
	f.lock.Unlock()

	if err := profile.Validate(); err != nil {
		return authapi.TokenResponse{}, err
	}
	if register == nil {
		return authapi.TokenResponse{}, errors.FromStatus(http.StatusBadRequest, "")
	}
	return register(profile)
}

func (f *FakeAPI) Refresh(ctx context.Context, refreshToken string) (authapi.TokenResponse, error) {
	f.lock.Lock()
	f.calls["refresh"]++
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	refresh := f.refresh
	f.lock.Unlock()

	if refresh == nil {
		return authapi.TokenResponse{}, Rejected("")
	}
	return refresh(ctx, refreshToken)
}

func (f *FakeAPI) Logout(_ context.Context, refreshToken string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["logout"]++
	f.logoutTokens = append(f.logoutTokens, refreshToken)
	return f.logoutErr
}

func (f *FakeAPI) ForgotPassword(_ context.Context, _ string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["forgot"]++
	return f.forgotErr
}

func (f *FakeAPI) ResetPassword(_ context.Context, _, _ string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["reset"]++
	return f.resetErr
}

// Calls returns how many times the named endpoint was called:
// login, register, refresh, logout, forgot or reset.
func (f *FakeAPI) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

func (f *FakeAPI) LogoutTokens() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.logoutTokens...)
}

func (f *FakeAPI) RefreshTokens() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.refreshTokens...)
}
