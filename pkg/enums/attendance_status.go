package enums

import "fmt"

// AttendanceStatus records whether a member showed up for an event.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

var validAttendanceStatuses = []AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusAbsent,
	AttendanceStatusExcused,
}

// String implements fmt.Stringer.
func (a AttendanceStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttendanceStatus.
func (a AttendanceStatus) IsValid() bool {
	for _, candidate := range validAttendanceStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttendanceStatus converts raw input into an AttendanceStatus.
func ParseAttendanceStatus(value string) (AttendanceStatus, error) {
	for _, candidate := range validAttendanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attendance status %q", value)
}
