package domain

import (
	"fmt"
	"strings"
)

// Role is the capability level a user holds on a single trip.
// The zero value RoleNone means the user holds no membership.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleManager
)

// Action is an operation class gated by Role.
type Action int

const (
	// ActionView covers every read of a trip and its associations.
	ActionView Action = iota + 1
	// ActionEdit covers trip field updates and activity attach/detach.
	ActionEdit
	// ActionManage covers membership management and trip deletion.
	ActionManage
)

// Permits reports whether r is allowed to perform a.
// Manager ⊇ Editor ⊇ Viewer for reads, Manager or Editor for edits,
// exactly Manager for management.
func (r Role) Permits(a Action) bool {
	switch a {
	case ActionView:
		return r == RoleViewer || r == RoleEditor || r == RoleManager
	case ActionEdit:
		return r == RoleEditor || r == RoleManager
	case ActionManage:
		return r == RoleManager
	default:
		return false
	}
}

// Grantable reports whether r may be assigned through grant or change.
// Manager is set only when a trip is created.
func (r Role) Grantable() bool {
	return r == RoleEditor || r == RoleViewer
}

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleEditor:
		return "editor"
	case RoleManager:
		return "manager"
	default:
		return "none"
	}
}

// ParseRole converts the stored/wire form of a role. Matching is
// case-insensitive so "Manager" and "manager" are equivalent.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer, nil
	case "editor":
		return RoleEditor, nil
	case "manager":
		return RoleManager, nil
	default:
		return RoleNone, fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
