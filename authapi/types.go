package authapi

import (
	"strings"

	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
)

// Credentials is the body of POST /auth/login.
type Credentials struct {
	// UsernameOrEmail identifies the account. The server accepts either form.
	// Example: "alice" or "alice@example.com"
	UsernameOrEmail string `json:"usernameOrEmail"`

	// Password is sent as typed; it is never stored or logged by the client.
	Password string `json:"password"`
}

// Validate rejects blank fields before any request is made
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.UsernameOrEmail) == "" {
		return errors.NewFailure(errors.ErrValidationFailed, "Username or email is required")
	}
	if c.Password == "" {
		return errors.NewFailure(errors.ErrValidationFailed, "Password is required")
	}
	return nil
}

// Profile is the body of POST /auth/register.
type Profile struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate applies the same rules the server enforces on sign-up
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return errors.NewFailure(errors.ErrValidationFailed, "Username is required")
	}
	if err := users.ValidateEmail(p.Email); err != nil {
		return errors.NewFailure(errors.ErrValidationFailed, err.Error())
	}
	if err := users.ValidatePasswordStrength(p.Password); err != nil {
		return errors.NewFailure(errors.ErrValidationFailed, err.Error())
	}
	return nil
}

// TokenResponse is returned by login, register and refresh.
type TokenResponse struct {
	// AccessToken is the short-lived bearer credential attached to resource requests.
	// Usage: "Authorization: Bearer <accessToken>"
	AccessToken string `json:"accessToken"`

	// RefreshToken is the long-lived credential exchanged at /auth/refresh.
	// The backend does not rotate it, so a refresh response may echo the same value.
	RefreshToken string `json:"refreshToken,omitempty"`

	// TokenType is informational; the backend only issues bearer tokens.
	TokenType string `json:"tokenType,omitempty"`

	// User is the authenticated principal. Present on login and register, and
	// on refresh when the server chooses to send it.
	User *users.User `json:"user,omitempty"`
}

// Validate rejects a response that cannot establish or extend a session
func (t TokenResponse) Validate(requireSession bool) error {
	if t.AccessToken == "" {
		return errors.NewFailure(errors.ErrServerError, "Malformed response: missing access token")
	}
	if requireSession {
		if t.RefreshToken == "" {
			return errors.NewFailure(errors.ErrServerError, "Malformed response: missing refresh token")
		}
		if t.User == nil {
			return errors.NewFailure(errors.ErrServerError, "Malformed response: missing user")
		}
	}
	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// messageResponse is the error body shape used by the backend
type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
