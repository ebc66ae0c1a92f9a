package domain

// Actor is the caller a service acts on behalf of. The zero value is an anonymous visitor.
type Actor struct {
	UserID string
	Role   Role
}

// IsAnonymous reports whether no user is authenticated.
func (a Actor) IsAnonymous() bool {
	return a.UserID == ""
}

// IsAdmin reports whether the caller is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the caller is ownerID or an administrator.
func (a Actor) Owns(ownerID string) bool {
	if a.IsAnonymous() {
		return false
	}
	return a.UserID == ownerID || a.IsAdmin()
}
