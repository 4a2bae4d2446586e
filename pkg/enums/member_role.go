package enums

import "fmt"

// MemberRole is the ministry role recorded on a member profile.
type MemberRole string

const (
	MemberRoleLeader     MemberRole = "leader"
	MemberRoleShepherd   MemberRole = "shepherd"
	MemberRoleMember     MemberRole = "member"
	MemberRoleNewConvert MemberRole = "new_convert"
	MemberRoleGuest      MemberRole = "guest"
)

var validMemberRoles = []MemberRole{
	MemberRoleLeader,
	MemberRoleShepherd,
	MemberRoleMember,
	MemberRoleNewConvert,
	MemberRoleGuest,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// GrantsAccess reports whether the role entitles the member to a login account.
func (m MemberRole) GrantsAccess() bool {
	return m == MemberRoleLeader || m == MemberRoleShepherd
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
