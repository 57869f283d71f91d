package access

import (
	"github.com/jrsteele09/officehub-client/session"
	"github.com/jrsteele09/officehub-client/users"
)

// Decision is the outcome of a route admission check
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

// Redirect targets for the two refusal outcomes
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "Allow"
	case RedirectLogin:
		return "RedirectLogin"
	case RedirectUnauthorized:
		return "RedirectUnauthorized"
	default:
		return "Unknown"
	}
}

// Decide admits a view to a protected route. An empty required set admits any
// authenticated user. Anything short of a complete session goes to login.
func Decide(view *session.View, required ...users.RoleType) Decision {
	if view == nil || !view.IsAuthenticated || view.User == nil {
		return RedirectLogin
	}
	if len(required) > 0 && !view.User.HasAnyRole(required...) {
		return RedirectUnauthorized
	}
	return Allow
}

// Viewer supplies the current session view
type Viewer interface {
	View() *session.View
}

var _ Viewer = (*session.Manager)(nil)

// Guard is the route-guard surface. It never mutates the session.
type Guard struct {
	Session Viewer
}

func NewGuard(sess Viewer) *Guard {
	return &Guard{Session: sess}
}

func (g *Guard) Check(required ...users.RoleType) Decision {
	if g == nil || g.Session == nil {
		return RedirectLogin
	}
	return Decide(g.Session.View(), required...)
}

// RedirectPath returns where a refused route should send the user, or "" for Allow
func (g *Guard) RedirectPath(d Decision) string {
	switch d {
	case Allow:
		return ""
	case RedirectUnauthorized:
		return UnauthorizedPath
	default:
		return LoginPath
	}
}
