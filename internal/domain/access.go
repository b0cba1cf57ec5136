package domain

type AccessMode string

const (
	AccessUnauthorized AccessMode = "unauthorized"
	AccessSession      AccessMode = "session"
	AccessPrivileged   AccessMode = "privileged"
)

// Access is the result of the authorization gate. Session access is scoped to
// UserID; privileged access (shared key) spans all users.
type Access struct {
	Mode   AccessMode
	UserID string
}

func (a Access) Allowed() bool { return a.Mode == AccessSession || a.Mode == AccessPrivileged }

func (a Access) Privileged() bool { return a.Mode == AccessPrivileged }

// Owner is the owner filter for queries; empty means all owners.
func (a Access) Owner() string {
	if a.Mode == AccessSession {
		return a.UserID
	}
	return ""
}

// Owns reports whether a record owned by userID is visible to this caller.
func (a Access) Owns(userID string) bool {
	switch a.Mode {
	case AccessPrivileged:
		return true
	case AccessSession:
		return a.UserID != "" && a.UserID == userID
	}
	return false
}
