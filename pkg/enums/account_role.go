package enums

import "fmt"

// AccountRole is the access-scoping role carried by a login account.
type AccountRole string

const (
	AccountRoleAdmin    AccountRole = "admin"
	AccountRoleLeader   AccountRole = "leader"
	AccountRoleShepherd AccountRole = "shepherd"
)

var validAccountRoles = []AccountRole{
	AccountRoleAdmin,
	AccountRoleLeader,
	AccountRoleShepherd,
}

// String implements fmt.Stringer.
func (a AccountRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountRole.
func (a AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountRole converts raw input into an AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}

// AccountRoleForMember maps a member role to the account role it carries when
// promoted. The second return is false for roles that do not grant access.
func AccountRoleForMember(role MemberRole) (AccountRole, bool) {
	switch role {
	case MemberRoleLeader:
		return AccountRoleLeader, true
	case MemberRoleShepherd:
		return AccountRoleShepherd, true
	default:
		return "", false
	}
}
