package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateMember  OutboxAggregateType = "member"
	AggregateAccount OutboxAggregateType = "account"
	AggregateMessage OutboxAggregateType = "message"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMember,
	AggregateAccount,
	AggregateMessage,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventAccountUpserted    OutboxEventType = "identity_account_upserted"
	EventAccountDeleted     OutboxEventType = "identity_account_deleted"
	EventAccountSuspended   OutboxEventType = "identity_account_suspended"
	EventAccountUnsuspended OutboxEventType = "identity_account_unsuspended"
	EventSMSRequested       OutboxEventType = "sms_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAccountUpserted,
	EventAccountDeleted,
	EventAccountSuspended,
	EventAccountUnsuspended,
	EventSMSRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason classifies why a dispatch gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)
