package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/officehub-client/internal/errors"
)

// Endpoint paths, relative to the API base URL
const (
	LoginPath          = "/auth/login"
	RegisterPath       = "/auth/register"
	LogoutPath         = "/auth/logout"
	RefreshPath        = "/auth/refresh"
	ForgotPasswordPath = "/auth/forgot-password"
	ResetPasswordPath  = "/auth/reset-password"
	ValidatePath       = "/auth/validate"
)

// Fallback messages used when the server gives no usable message
const (
	LoginFailed          = "Login failed"
	RegistrationFailed   = "Registration failed"
	RefreshFailed        = "Session refresh failed"
	LogoutFailed         = "Logout failed"
	ForgotPasswordFailed = "Failed to send reset email"
	ResetPasswordFailed  = "Password reset failed"
	ValidateFailed       = "Token validation failed"
)

// maxErrorBody bounds how much of an error response is read for its message
const maxErrorBody = 64 << 10

// Client calls the unauthenticated /auth endpoints.
// It must be given an http.Client that does not attach credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[authapi.New] base url is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (TokenResponse, error) {
	if err := creds.Validate(); err != nil {
		return TokenResponse{}, err
	}
	var resp TokenResponse
	if err := c.post(ctx, LoginPath, creds, &resp, LoginFailed); err != nil {
		return TokenResponse{}, err
	}
	if err := resp.Validate(true); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

func (c *Client) Register(ctx context.Context, profile Profile) (TokenResponse, error) {
	if err := profile.Validate(); err != nil {
		return TokenResponse{}, err
	}
	var resp TokenResponse
	if err := c.post(ctx, RegisterPath, profile, &resp, RegistrationFailed); err != nil {
		return TokenResponse{}, err
	}
	if err := resp.Validate(true); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

// Refresh exchanges a refresh token for a new access token. The response may omit
// the refresh token and the user.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	if refreshToken == "" {
		return TokenResponse{}, errors.NewFailure(errors.ErrInvalidCredentials, "No refresh token")
	}
	var resp TokenResponse
	if err := c.post(ctx, RefreshPath, refreshRequest{RefreshToken: refreshToken}, &resp, RefreshFailed); err != nil {
		return TokenResponse{}, err
	}
	if err := resp.Validate(false); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

// Logout revokes the refresh token server side
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.post(ctx, LogoutPath, refreshRequest{RefreshToken: refreshToken}, nil, LogoutFailed)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if err := validateRequired(email, "Email is required"); err != nil {
		return err
	}
	return c.post(ctx, ForgotPasswordPath, forgotPasswordRequest{Email: strings.TrimSpace(email)}, nil, ForgotPasswordFailed)
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validateRequired(token, "Reset token is required"); err != nil {
		return err
	}
	if newPassword == "" {
		return errors.NewFailure(errors.ErrValidationFailed, "New password is required")
	}
	return c.post(ctx, ResetPasswordPath, resetPasswordRequest{Token: token, NewPassword: newPassword}, nil, ResetPasswordFailed)
}

// ValidateToken asks the server whether accessToken is still accepted. The /auth
// endpoints are never decorated with the session token, so it is set here explicitly.
// A rejected token is reported as errors.ErrInvalidCredentials.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) error {
	if err := validateRequired(accessToken, "Access token is required"); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ValidatePath, nil)
	if err != nil {
		return errors.WithFallback(errors.Wrapf(err, "build %s request", ValidatePath), ValidateFailed)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NetworkFailure(err, ValidateFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusFailure(resp, ValidateFailed)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func validateRequired(value, message string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewFailure(errors.ErrValidationFailed, message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any, fallback string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.WithFallback(errors.Wrapf(err, "encode %s request", path), fallback)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.WithFallback(errors.Wrapf(err, "build %s request", path), fallback)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NetworkFailure(err, fallback)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusFailure(resp, fallback)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewFailure(errors.ErrServerError, "Malformed response from server")
	}
	return nil
}

// NetworkFailure classifies a transport-level error. Context cancellation is kept
// visible so callers can tell it apart from an unreachable server.
func NetworkFailure(err error, fallback string) error {
	if errors.Is(err, errors.ErrAuthorizationExpired) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(err, "%s", fallback)
	}
	return &wrappedFailure{Failure: errors.NewFailure(errors.ErrNetworkUnavailable, fallback), cause: err}
}

// StatusFailure classifies a non-2xx response, taking the message from the
// JSON body's message or error field.
func StatusFailure(resp *http.Response, fallback string) *errors.Failure {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body messageResponse
	message := ""
	if json.Unmarshal(data, &body) == nil {
		message = strings.TrimSpace(body.Message)
		if message == "" {
			message = strings.TrimSpace(body.Error)
		}
	}
	if message == "" {
		message = fallback
	}
	return errors.FromStatus(resp.StatusCode, message)
}

// wrappedFailure keeps the underlying network error reachable through errors.As
// while still matching the failure kind.
type wrappedFailure struct {
	*errors.Failure
	cause error
}

func (w *wrappedFailure) Unwrap() []error {
	return []error{w.Failure, w.cause}
}
