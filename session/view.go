package session

import "github.com/jrsteele09/officehub-client/users"

// View is a read-only copy of the session for presentation and access decisions.
// Tokens are not exposed.
type View struct {
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// View returns a consistent copy of the current session
func (m *Manager) View() *View {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v := &View{
		User:            m.user.Clone(),
		IsAuthenticated: m.authenticatedLocked(),
		IsLoading:       m.inFlight.Load() > 0,
	}
	if m.lastErr != nil {
		v.Error = m.lastErr.Error()
	}
	return v
}

func (v *View) HasRole(role users.RoleType) bool {
	return v != nil && v.User.HasRole(role)
}

func (v *View) HasAnyRole(roles ...users.RoleType) bool {
	return v != nil && v.User.HasAnyRole(roles...)
}

func (v *View) IsAdmin() bool {
	return v != nil && v.User.IsAdmin()
}

func (v *View) IsManagerOrAdmin() bool {
	return v != nil && v.User.IsManagerOrAdmin()
}
