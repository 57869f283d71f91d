package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/credentials"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// SessionExpired is the message left in Error() after a forced teardown
const SessionExpired = "Your session has expired. Please log in again."

// ErrNoSession is returned by Token when there is no access token
var ErrNoSession = errors.New("no active session")

// AuthAPI is the subset of the auth endpoints the session drives directly
type AuthAPI interface {
	Login(ctx context.Context, creds authapi.Credentials) (authapi.TokenResponse, error)
	Register(ctx context.Context, profile authapi.Profile) (authapi.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var _ AuthAPI = (*authapi.Client)(nil)

// Credentials is the token pair at a point in time. Generation changes whenever the
// session is replaced (login, register, logout, teardown, hydrate) and is used to
// discard refresh results that belong to a session that no longer exists.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Generation   uint64
}

// Manager is the authoritative in-memory session. All state changes happen under a
// single lock acquisition together with the matching store write, so readers never
// observe a half-applied operation and the store mirrors the last committed state.
type Manager struct {
	api    AuthAPI
	store  credentials.Store
	logger zerolog.Logger

	lock         sync.RWMutex
	user         *users.User
	accessToken  string
	refreshToken string
	generation   uint64
	lastErr      error
	initialized  bool

	inFlight atomic.Int32
}

var _ oauth2.TokenSource = (*Manager)(nil)

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func New(api AuthAPI, store credentials.Store, options ...Option) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[session.New] auth api is required")
	}
	if store == nil {
		return nil, errors.New("[session.New] store is required")
	}

	m := &Manager{
		api:    api,
		store:  store,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "session").Logger()
	return m, nil
}

// InitializeAuth restores a persisted session. Only the first call has any effect,
// and it never fails: missing, partial or corrupted data leaves the session logged out.
func (m *Manager) InitializeAuth() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.initialized {
		return
	}
	m.initialized = true

	if m.generation != 0 {
		m.logger.Debug().Msg("Session already established, skipping restore")
		return
	}

	snap, ok := m.store.Load()
	if !ok || !snap.Complete() {
		if err := m.store.Clear(); err != nil {
			m.logger.Debug().Err(err).Msg("Failed to clear persisted session")
		}
		return
	}

	m.user = snap.User.Clone()
	m.accessToken = snap.AccessToken
	m.refreshToken = snap.RefreshToken
	m.generation++
	m.logger.Info().Str("username", m.user.Username).Msg("Restored persisted session")
}

func (m *Manager) Login(ctx context.Context, creds authapi.Credentials) error {
	defer m.begin()()

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		return m.fail(err, authapi.LoginFailed)
	}
	return m.establish(resp, authapi.LoginFailed)
}

func (m *Manager) Register(ctx context.Context, profile authapi.Profile) error {
	defer m.begin()()

	resp, err := m.api.Register(ctx, profile)
	if err != nil {
		return m.fail(err, authapi.RegistrationFailed)
	}
	return m.establish(resp, authapi.RegistrationFailed)
}

// Logout clears the local session first, then tells the server to revoke the refresh
// token. The server call cannot fail the logout.
func (m *Manager) Logout(ctx context.Context) error {
	defer m.begin()()

	m.lock.Lock()
	refreshToken := m.refreshToken
	m.resetLocked()
	m.lock.Unlock()

	if refreshToken == "" {
		return nil
	}
	if err := m.api.Logout(ctx, refreshToken); err != nil {
		m.logger.Warn().Err(err).Msg("Server logout failed, local session already cleared")
	}
	return nil
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	defer m.begin()()

	if err := m.api.ForgotPassword(ctx, email); err != nil {
		return m.fail(err, authapi.ForgotPasswordFailed)
	}
	return nil
}

func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	defer m.begin()()

	if err := m.api.ResetPassword(ctx, token, newPassword); err != nil {
		return m.fail(err, authapi.ResetPasswordFailed)
	}
	return nil
}

// UpdateUser merges a profile edit into the current user and persists it. Tokens are untouched.
func (m *Manager) UpdateUser(update users.Update) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.lastErr = nil
	if m.user == nil {
		return errors.NewFailure(errors.ErrValidationFailed, "No user to update")
	}
	merged := m.user.Merge(update)
	m.user = &merged
	m.persistLocked()
	return nil
}

// Credentials returns the current token pair and session generation
func (m *Manager) Credentials() Credentials {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return Credentials{
		AccessToken:  m.accessToken,
		RefreshToken: m.refreshToken,
		Generation:   m.generation,
	}
}

// ApplyRefresh commits a refresh result if the session it was issued for is still current.
// A missing refresh token in resp keeps the existing one.
func (m *Manager) ApplyRefresh(generation uint64, resp authapi.TokenResponse) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	if generation != m.generation || !m.authenticatedLocked() || resp.AccessToken == "" {
		return false
	}

	m.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		m.refreshToken = resp.RefreshToken
	}
	if resp.User != nil {
		m.user = resp.User.Clone()
	}
	m.persistLocked()
	return true
}

// Expire tears the session down locally after an unrecoverable refresh failure.
// It does nothing if the session has already been replaced.
func (m *Manager) Expire(generation uint64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	if generation != m.generation {
		return false
	}
	wasAuthenticated := m.authenticatedLocked()
	m.resetLocked()
	if wasAuthenticated {
		m.lastErr = errors.NewFailure(errors.ErrAuthorizationExpired, SessionExpired)
	}
	return true
}

// Token implements oauth2.TokenSource. The expiry comes from the access token's exp
// claim when it is a JWT; opaque tokens never expire client side.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.lock.RLock()
	accessToken, refreshToken := m.accessToken, m.refreshToken
	m.lock.RUnlock()

	if accessToken == "" {
		return nil, ErrNoSession
	}
	tok := &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
	}
	if expiry, ok := TokenExpiry(accessToken); ok {
		tok.Expiry = expiry
	}
	return tok, nil
}

func (m *Manager) IsAuthenticated() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.authenticatedLocked()
}

// IsLoading reports whether any session operation is in flight
func (m *Manager) IsLoading() bool {
	return m.inFlight.Load() > 0
}

// Error returns the failure left by the last session operation, if any
func (m *Manager) Error() error {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.lastErr
}

func (m *Manager) ClearError() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastErr = nil
}

func (m *Manager) User() *users.User {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.user.Clone()
}

func (m *Manager) HasRole(role users.RoleType) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.user.HasRole(role)
}

func (m *Manager) HasAnyRole(roles ...users.RoleType) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.user.HasAnyRole(roles...)
}

func (m *Manager) IsAdmin() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.user.IsAdmin()
}

func (m *Manager) IsManagerOrAdmin() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.user.IsManagerOrAdmin()
}

// begin marks an operation in flight and clears the previous error.
// The returned func ends it.
func (m *Manager) begin() func() {
	m.lock.Lock()
	m.lastErr = nil
	m.lock.Unlock()

	m.inFlight.Add(1)
	return func() {
		m.inFlight.Add(-1)
	}
}

func (m *Manager) fail(err error, fallback string) error {
	f := errors.WithFallback(err, fallback)

	m.lock.Lock()
	m.lastErr = f
	m.lock.Unlock()

	m.logger.Debug().Err(err).Msg(fallback)
	return f
}

// establish replaces the session with the one carried by resp
func (m *Manager) establish(resp authapi.TokenResponse, fallback string) error {
	if err := resp.Validate(true); err != nil {
		return m.fail(err, fallback)
	}

	m.lock.Lock()
	m.user = resp.User.Clone()
	m.accessToken = resp.AccessToken
	m.refreshToken = resp.RefreshToken
	m.generation++
	m.persistLocked()
	m.lock.Unlock()

	m.logger.Info().Str("username", resp.User.Username).Msg("Session established")
	return nil
}

func (m *Manager) resetLocked() {
	m.user = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.generation++
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear persisted session")
	}
}

func (m *Manager) authenticatedLocked() bool {
	return m.user != nil && m.accessToken != "" && m.refreshToken != ""
}

func (m *Manager) snapshotLocked() credentials.Snapshot {
	if !m.authenticatedLocked() {
		return credentials.Snapshot{}
	}
	return credentials.Snapshot{
		User:            m.user.Clone(),
		AccessToken:     m.accessToken,
		RefreshToken:    m.refreshToken,
		IsAuthenticated: true,
	}
}

// persistLocked writes the committed state. A failed write is logged and the
// in-memory session is kept, so the user stays logged in until the process exits.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.snapshotLocked()); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to persist session")
	}
}
