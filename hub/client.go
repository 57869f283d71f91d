package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
)

const (
	CurrentUserPath = "/users/me"
	requestFailed   = "Request failed"
)

// ProfileUpdater receives profile edits that succeeded on the server
type ProfileUpdater interface {
	UpdateUser(update users.Update) error
}

// Client calls the office hub resource endpoints. Authorization and token renewal
// are the job of the http.Client's transport; payloads other than the current
// user are passed through untouched.
type Client struct {
	baseURL    string
	httpClient *http.Client
	profile    ProfileUpdater
}

type Option func(*Client)

// WithProfileUpdater keeps the session's user in step with UpdateProfile
func WithProfileUpdater(p ProfileUpdater) Option {
	return func(c *Client) {
		c.profile = p
	}
}

func New(baseURL string, httpClient *http.Client, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[hub.New] base url is required")
	}
	if httpClient == nil {
		return nil, errors.New("[hub.New] http client is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Do sends in as JSON (when non-nil) and decodes a JSON response into out (when non-nil).
// Use *json.RawMessage for payloads the caller does not want interpreted.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.WithFallback(errors.Wrapf(errors.ErrValidationFailed, "encode request: %v", err), requestFailed)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return errors.WithFallback(errors.Wrapf(errors.ErrValidationFailed, "build request: %v", err), requestFailed)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return authapi.NetworkFailure(err, requestFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return authapi.StatusFailure(resp, requestFailed)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewFailure(errors.ErrServerError, "Malformed response from server")
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// CurrentUser fetches the authenticated user's profile
func (c *Client) CurrentUser(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := c.Get(ctx, CurrentUserPath, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile saves a profile edit and, on success, merges it into the session
func (c *Client) UpdateProfile(ctx context.Context, update users.Update) (*users.User, error) {
	if update.Empty() {
		return nil, errors.NewFailure(errors.ErrValidationFailed, "Nothing to update")
	}
	if update.Email != nil {
		if err := users.ValidateEmail(*update.Email); err != nil {
			return nil, errors.NewFailure(errors.ErrValidationFailed, err.Error())
		}
	}

	var u users.User
	if err := c.Put(ctx, CurrentUserPath, update, &u); err != nil {
		return nil, err
	}
	if c.profile != nil {
		if err := c.profile.UpdateUser(update); err != nil {
			return nil, err
		}
	}
	return &u, nil
}
