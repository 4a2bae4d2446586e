package enums

import "fmt"

// MemberCategory groups members by their station in the ministry.
type MemberCategory string

const (
	MemberCategoryStudent   MemberCategory = "student"
	MemberCategoryWorkforce MemberCategory = "workforce"
	MemberCategoryNSS       MemberCategory = "nss"
	MemberCategoryAlumni    MemberCategory = "alumni"
)

var validMemberCategories = []MemberCategory{
	MemberCategoryStudent,
	MemberCategoryWorkforce,
	MemberCategoryNSS,
	MemberCategoryAlumni,
}

// String implements fmt.Stringer.
func (m MemberCategory) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberCategory.
func (m MemberCategory) IsValid() bool {
	for _, candidate := range validMemberCategories {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMemberCategory converts raw input into a MemberCategory.
func ParseMemberCategory(value string) (MemberCategory, error) {
	for _, candidate := range validMemberCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member category %q", value)
}
