package enums

import "fmt"

// EventType classifies a ministry event.
type EventType string

const (
	EventTypeService  EventType = "service"
	EventTypeRetreat  EventType = "retreat"
	EventTypeMeeting  EventType = "meeting"
	EventTypeOutreach EventType = "outreach"
)

var validEventTypes = []EventType{
	EventTypeService,
	EventTypeRetreat,
	EventTypeMeeting,
	EventTypeOutreach,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
