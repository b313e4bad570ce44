// Package session holds the explicit session the engines act under: who the user is in the
// current room and what that role lets them do.
package session

import (
	"roomboard/internal/api"
	"roomboard/internal/models"
)

type Capability int

const (
	Read Capability = 1 << iota
	Write
	Admin
)

func (c Capability) String() string {
	switch c {
	case Read:
		return "read"
	case Write:
		return "write"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

type Session struct {
	UserPublicID string
	Role         models.Role
}

// FromRoom builds the session for the current user's membership in room.
func FromRoom(room models.Room) Session {
	return Session{UserPublicID: room.Membership.UserPublicID, Role: room.Membership.Role}
}

// Capabilities derives the capability set from the role. Unknown roles get nothing.
func (s Session) Capabilities() Capability {
	switch s.Role {
	case models.RoleOwner, models.RoleAdmin:
		return Read | Write | Admin
	case models.RoleMember:
		return Read | Write
	case models.RoleViewer:
		return Read
	default:
		return 0
	}
}

func (s Session) Can(c Capability) bool { return s.Capabilities()&c == c }

func (s Session) IsOwner() bool { return s.Role == models.RoleOwner }

// Require returns a local validation error when the session lacks c.
func (s Session) Require(c Capability) error {
	if s.Can(c) {
		return nil
	}
	var msg string
	switch c {
	case Admin:
		msg = "You need admin access to manage this room."
	case Write:
		msg = "You have view-only access to this room."
	default:
		msg = "You are not a member of this room."
	}
	return api.Invalid("role", msg)
}
