package models

import "strings"

// Role is a room role. Roles are ordered by privilege: VIEWER < MEMBER < ADMIN < OWNER.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
)

var (
	// EditableRoles can be assigned from the members screen. OWNER never can.
	EditableRoles = []Role{RoleViewer, RoleMember, RoleAdmin}
	// InviteRoles can be granted by an invite.
	InviteRoles = []Role{RoleViewer, RoleMember}
)

// Priority is 1 for VIEWER up to 4 for OWNER, 0 for an unknown role.
func (r Role) Priority() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleMember:
		return 2
	case RoleAdmin:
		return 3
	case RoleOwner:
		return 4
	default:
		return 0
	}
}

func (r Role) Valid() bool { return r.Priority() > 0 }

func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleAdmin:
		return "Admin"
	case RoleMember:
		return "Member"
	case RoleViewer:
		return "Viewer"
	default:
		return string(r)
	}
}

func (r Role) Editable() bool { return containsRole(EditableRoles, r) }

func (r Role) Invitable() bool { return containsRole(InviteRoles, r) }

// CanLeave is false for the owner, who has to delete the room instead.
func (r Role) CanLeave() bool { return r.Valid() && r != RoleOwner }

func (r Role) String() string { return string(r) }

// Outranks reports whether r is strictly more privileged than o.
func (r Role) Outranks(o Role) bool { return r.Priority() > o.Priority() }

// ParseRole accepts any letter case, e.g. "admin".
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

func containsRole(set []Role, r Role) bool {
	for _, x := range set {
		if x == r {
			return true
		}
	}
	return false
}
