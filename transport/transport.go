package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyAttempt stores how many times a request has been retried after a refresh
const ContextKeyAttempt ContextKey = "refresh_attempt"

const (
	RequestIDHeader = "X-Request-ID"
	maxRetries      = 1
	maxDrain        = 64 << 10
)

// Refresher renews the access token after failedToken was rejected
type Refresher interface {
	Refresh(ctx context.Context, failedToken string) (string, error)
}

// Transport attaches the session's bearer token to API requests and recovers from an
// expired token by refreshing once and replaying the request.
// Requests under <base>/auth/ and requests to other hosts are sent untouched.
type Transport struct {
	base      http.RoundTripper
	baseURL   *url.URL
	authPath  string
	tokens    oauth2.TokenSource
	refresher Refresher
	logger    zerolog.Logger
	nowFunc   func() time.Time

	lock      sync.Mutex
	refreshed string
}

var _ http.RoundTripper = (*Transport)(nil)

type Option func(*Transport)

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithNowFunc overrides the clock used to decide whether a JWT has expired
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(t *Transport) {
		t.nowFunc = nowFunc
	}
}

func New(base http.RoundTripper, baseURL string, tokens oauth2.TokenSource, refresher Refresher, options ...Option) (*Transport, error) {
	if tokens == nil {
		return nil, errors.New("[transport.New] token source is required")
	}
	if refresher == nil {
		return nil, errors.New("[transport.New] refresher is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrValidationFailed, "[transport.New] invalid base url %q", baseURL)
	}
	if base == nil {
		base = http.DefaultTransport
	}

	t := &Transport{
		base:      base,
		baseURL:   u,
		authPath:  strings.TrimRight(u.Path, "/") + "/auth/",
		tokens:    tokens,
		refresher: refresher,
		logger:    log.Logger,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	t.logger = t.logger.With().Str("component", "transport").Logger()
	return t, nil
}

// NewClient returns an http.Client that sends every request through t
func NewClient(t *Transport, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: t,
		Timeout:   timeout,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.protected(req) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	attempt := attemptFrom(ctx)

	tok := t.currentToken()
	if attempt == 0 && t.expired(tok) {
		accessToken, err := t.refresh(ctx, tok.AccessToken)
		if err != nil {
			closeBody(req)
			return nil, err
		}
		tok = bearer(accessToken)
	}

	out := req.Clone(ctx)
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if tok != nil {
		tok.SetAuthHeader(out)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if attempt >= maxRetries {
		discard(resp)
		t.logger.Warn().Str("request_id", out.Header.Get(RequestIDHeader)).Str("path", req.URL.Path).
			Msg("Request rejected after refresh")
		return nil, errors.NewFailure(errors.ErrAuthorizationExpired, "")
	}
	if !replayable(req) {
		t.logger.Debug().Str("path", req.URL.Path).Msg("Cannot replay request body, returning 401")
		return resp, nil
	}
	discard(resp)

	// A request sent without a token still goes through the refresher, which ends the
	// session with ErrAuthorizationExpired when there is nothing to refresh.
	failedToken := ""
	if tok != nil {
		failedToken = tok.AccessToken
	}
	if _, err := t.refresh(ctx, failedToken); err != nil {
		return nil, err
	}

	retry, err := t.replay(req, attempt+1)
	if err != nil {
		return nil, err
	}
	t.logger.Debug().Str("path", req.URL.Path).Msg("Retrying request with refreshed token")
	return t.RoundTrip(retry)
}

// protected reports whether req goes to the API and outside the auth endpoints
func (t *Transport) protected(req *http.Request) bool {
	if req.URL == nil || !strings.EqualFold(req.URL.Host, t.baseURL.Host) {
		return false
	}
	return !strings.HasPrefix(req.URL.Path, t.authPath)
}

// expired reports whether tok carries an expiry that has passed. A token this transport
// has just obtained from the refresher is never treated as expired, so a client clock
// running ahead of the server cannot cause a refresh on every request; the server's
// 401 decides instead.
func (t *Transport) expired(tok *oauth2.Token) bool {
	if tok == nil || tok.Expiry.IsZero() || t.nowFunc().Before(tok.Expiry) {
		return false
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return tok.AccessToken != t.refreshed
}

func (t *Transport) refresh(ctx context.Context, failedToken string) (string, error) {
	accessToken, err := t.refresher.Refresh(ctx, failedToken)
	if err != nil {
		return "", err
	}
	t.lock.Lock()
	t.refreshed = accessToken
	t.lock.Unlock()
	return accessToken, nil
}

func (t *Transport) currentToken() *oauth2.Token {
	tok, err := t.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return nil
	}
	return tok
}

func (t *Transport) replay(req *http.Request, attempt int) (*http.Request, error) {
	retry := req.Clone(context.WithValue(req.Context(), ContextKeyAttempt, attempt))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrapf(err, "replay request body")
		}
		retry.Body = body
	}
	return retry, nil
}

func attemptFrom(ctx context.Context) int {
	attempt, _ := ctx.Value(ContextKeyAttempt).(int)
	return attempt
}

func bearer(accessToken string) *oauth2.Token {
	if accessToken == "" {
		return nil
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
