package refresh

import (
	"context"
	"time"

	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	flightKey      = "refresh"
	defaultTimeout = 30 * time.Second
)

// Session is the part of session.Manager the coordinator reads and mutates
type Session interface {
	Credentials() session.Credentials
	ApplyRefresh(generation uint64, resp authapi.TokenResponse) bool
	Expire(generation uint64) bool
	IsAuthenticated() bool
}

// Refresher calls POST /auth/refresh
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (authapi.TokenResponse, error)
}

var (
	_ Session   = (*session.Manager)(nil)
	_ Refresher = (*authapi.Client)(nil)
)

// Coordinator makes sure at most one refresh call is outstanding. Every caller that
// discovers an expired access token while a refresh is running waits for that refresh
// and gets its outcome, which is committed to the session before anyone is released.
type Coordinator struct {
	sess      Session
	api       Refresher
	group     singleflight.Group
	onExpired func()
	timeout   time.Duration
	logger    zerolog.Logger
}

type Option func(*Coordinator)

// WithExpiredHandler registers fn to run once each time a refresh ends in teardown,
// typically to navigate to the login view.
func WithExpiredHandler(fn func()) Option {
	return func(c *Coordinator) {
		c.onExpired = fn
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func New(sess Session, api Refresher, options ...Option) (*Coordinator, error) {
	if sess == nil {
		return nil, errors.New("[refresh.New] session is required")
	}
	if api == nil {
		return nil, errors.New("[refresh.New] refresher is required")
	}

	c := &Coordinator{
		sess:    sess,
		api:     api,
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "refresh").Logger()
	return c, nil
}

// Refresh returns an access token to retry with after failedToken was rejected.
// If the session already holds a different token it is returned without a network call.
// Any failure is reported as errors.ErrAuthorizationExpired, after the session has been
// torn down. A cancelled ctx stops this caller waiting but not the refresh itself.
func (c *Coordinator) Refresh(ctx context.Context, failedToken string) (string, error) {
	if token, ok := c.alreadyRefreshed(failedToken); ok {
		return token, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.flight(flightCtx, failedToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) alreadyRefreshed(failedToken string) (string, bool) {
	current := c.sess.Credentials().AccessToken
	if current != "" && current != failedToken {
		return current, true
	}
	return "", false
}

// flight runs once for all concurrent callers
func (c *Coordinator) flight(ctx context.Context, failedToken string) (string, error) {
	creds := c.sess.Credentials()
	if creds.AccessToken != "" && creds.AccessToken != failedToken {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		c.logger.Debug().Msg("No refresh token, session cannot be renewed")
		return "", c.expire(creds.Generation)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Token refresh failed")
		return "", c.expire(creds.Generation)
	}

	if !c.sess.ApplyRefresh(creds.Generation, resp) {
		c.logger.Info().Msg("Session changed during refresh, discarding result")
		return "", c.expire(creds.Generation)
	}

	c.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Token refreshed")
	return resp.AccessToken, nil
}

// expire tears down the session the refresh was started for. The handler is not
// notified when a newer login has already replaced that session.
func (c *Coordinator) expire(generation uint64) error {
	expired := c.sess.Expire(generation)
	if c.onExpired != nil && (expired || !c.sess.IsAuthenticated()) {
		c.onExpired()
	}
	return errors.NewFailure(errors.ErrAuthorizationExpired, session.SessionExpired)
}
