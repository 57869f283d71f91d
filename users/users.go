package users

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/jrsteele09/officehub-client/internal/utils"
)

// RoleType is the office hub role carried on the user record
type RoleType string

const (
	RoleAdmin    RoleType = "ADMIN"    // Full access, including user management and analytics
	RoleManager  RoleType = "MANAGER"  // Department management, users and analytics views
	RoleEmployee RoleType = "EMPLOYEE" // Regular member
)

// Roles lists the closed set of known roles
var Roles = []RoleType{RoleAdmin, RoleManager, RoleEmployee}

// Valid reports whether r is one of the known roles. Unknown roles carry no privilege.
func (r RoleType) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// ParseRole normalises s and reports whether it names a known role
func ParseRole(s string) (RoleType, bool) {
	r := RoleType(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User is the authenticated principal as returned by the backend's auth endpoints
type User struct {
	ID        int64    `json:"id,omitempty"`
	Username  string   `json:"username,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Role      RoleType `json:"role,omitempty"`
}

// Update is a partial user record; nil fields are left untouched by Merge
type Update struct {
	Username  *string   `json:"username,omitempty"`
	FirstName *string   `json:"firstName,omitempty"`
	LastName  *string   `json:"lastName,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Role      *RoleType `json:"role,omitempty"`
}

// Empty reports whether the update changes nothing
func (u Update) Empty() bool {
	return u.Username == nil && u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Role == nil
}

// Merge returns a copy of u with the non-nil fields of update applied
func (u User) Merge(update Update) User {
	u.Username = utils.ValueOr(update.Username, u.Username)
	u.FirstName = utils.ValueOr(update.FirstName, u.FirstName)
	u.LastName = utils.ValueOr(update.LastName, u.LastName)
	u.Email = utils.ValueOr(update.Email, u.Email)
	u.Role = utils.ValueOr(update.Role, u.Role)
	return u
}

// Clone returns a copy of u, nil-safe
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether the user holds role. A nil user or an unknown role never matches.
func (u *User) HasRole(role RoleType) bool {
	return u != nil && u.Role.Valid() && u.Role == role
}

// HasAnyRole reports whether the user holds one of roles
func (u *User) HasAnyRole(roles ...RoleType) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

func (u *User) IsManagerOrAdmin() bool {
	return u.HasAnyRole(RoleAdmin, RoleManager)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// ValidateEmail checks that email is a bare address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
