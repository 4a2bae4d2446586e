package enums

import "fmt"

// FollowUpType names the channel used for a pastoral contact attempt.
type FollowUpType string

const (
	FollowUpTypeCall     FollowUpType = "call"
	FollowUpTypeWhatsApp FollowUpType = "whatsapp"
	FollowUpTypePrayer   FollowUpType = "prayer"
	FollowUpTypeVisit    FollowUpType = "visit"
	FollowUpTypeOther    FollowUpType = "other"
)

var validFollowUpTypes = []FollowUpType{
	FollowUpTypeCall,
	FollowUpTypeWhatsApp,
	FollowUpTypePrayer,
	FollowUpTypeVisit,
	FollowUpTypeOther,
}

// String implements fmt.Stringer.
func (f FollowUpType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FollowUpType.
func (f FollowUpType) IsValid() bool {
	for _, candidate := range validFollowUpTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFollowUpType converts raw input into a FollowUpType.
func ParseFollowUpType(value string) (FollowUpType, error) {
	for _, candidate := range validFollowUpTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid follow-up type %q", value)
}

// FollowUpOutcome records how a contact attempt ended.
type FollowUpOutcome string

const (
	FollowUpOutcomeReached           FollowUpOutcome = "reached"
	FollowUpOutcomeNoAnswer          FollowUpOutcome = "no_answer"
	FollowUpOutcomeScheduledCallback FollowUpOutcome = "scheduled_callback"
)

var validFollowUpOutcomes = []FollowUpOutcome{
	FollowUpOutcomeReached,
	FollowUpOutcomeNoAnswer,
	FollowUpOutcomeScheduledCallback,
}

// String implements fmt.Stringer.
func (f FollowUpOutcome) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FollowUpOutcome.
func (f FollowUpOutcome) IsValid() bool {
	for _, candidate := range validFollowUpOutcomes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFollowUpOutcome converts raw input into a FollowUpOutcome.
func ParseFollowUpOutcome(value string) (FollowUpOutcome, error) {
	for _, candidate := range validFollowUpOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid follow-up outcome %q", value)
}
