// Package authz holds the role-to-scope table every data-access path
// consults. Scoping fails closed: a caller whose role or camp cannot be
// resolved sees empty results and declined mutations rather than errors.
package authz

import (
	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Scope names how far a caller's access reaches.
type Scope string

const (
	// ScopeAll grants unscoped access to every row.
	ScopeAll Scope = "all"
	// ScopeCamp restricts access to the caller's camp.
	ScopeCamp Scope = "camp"
	// ScopeAssigned restricts writes to members assigned to the caller.
	ScopeAssigned Scope = "assigned"
	// ScopeNone grants nothing.
	ScopeNone Scope = "none"
)

// rule pairs the read and write reach of one role.
type rule struct {
	read  Scope
	write Scope
	// attendanceWrite may be narrower than write; shepherds mark
	// attendance only for their assigned members.
	attendanceWrite Scope
}

var rules = map[enums.AccountRole]rule{
	enums.AccountRoleAdmin: {
		read:            ScopeAll,
		write:           ScopeAll,
		attendanceWrite: ScopeAll,
	},
	enums.AccountRoleLeader: {
		read:            ScopeCamp,
		write:           ScopeCamp,
		attendanceWrite: ScopeCamp,
	},
	enums.AccountRoleShepherd: {
		read:            ScopeCamp,
		write:           ScopeNone,
		attendanceWrite: ScopeAssigned,
	},
}

// Caller is the authenticated principal resolved by the auth middleware.
type Caller struct {
	AccountID uuid.UUID
	Role      enums.AccountRole
	CampID    *uuid.UUID
}

// ReadScope returns the caller's effective read scope. A camp-scoped caller
// with no camp collapses to ScopeNone.
func ReadScope(c Caller) Scope {
	return effective(ruleFor(c.Role).read, c)
}

// WriteScope returns the caller's effective scope for general mutations.
func WriteScope(c Caller) Scope {
	return effective(ruleFor(c.Role).write, c)
}

// AttendanceWriteScope returns the caller's effective scope for marking
// attendance.
func AttendanceWriteScope(c Caller) Scope {
	return effective(ruleFor(c.Role).attendanceWrite, c)
}

// CanManageMembers reports whether the caller may create, update, or delete
// member records at all.
func CanManageMembers(c Caller) bool {
	return WriteScope(c) != ScopeNone
}

// CampMatches reports whether a row bound to campID is visible to a
// camp-scoped caller. Rows with no camp are global and always visible.
func CampMatches(c Caller, campID *uuid.UUID) bool {
	switch ReadScope(c) {
	case ScopeAll:
		return true
	case ScopeCamp:
		if campID == nil {
			return true
		}
		return c.CampID != nil && *c.CampID == *campID
	default:
		return false
	}
}

func ruleFor(role enums.AccountRole) rule {
	if r, ok := rules[role]; ok {
		return r
	}
	return rule{read: ScopeNone, write: ScopeNone, attendanceWrite: ScopeNone}
}

func effective(s Scope, c Caller) Scope {
	if (s == ScopeCamp || s == ScopeAssigned) && c.CampID == nil {
		// Camp-bound roles without a camp see nothing.
		if s == ScopeCamp {
			return ScopeNone
		}
	}
	return s
}
