package enums

import "fmt"

// OutboxEventType identifies the domain event recorded in the outbox.
type OutboxEventType string

const (
	OutboxEventTypeMatchCreated   OutboxEventType = "match.created"
	OutboxEventTypeMatchUpdated   OutboxEventType = "match.updated"
	OutboxEventTypeMatchApproved  OutboxEventType = "match.approved"
	OutboxEventTypeMatchRejected  OutboxEventType = "match.rejected"
	OutboxEventTypeMatchCancelled OutboxEventType = "match.cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventTypeMatchCreated,
	OutboxEventTypeMatchUpdated,
	OutboxEventTypeMatchApproved,
	OutboxEventTypeMatchRejected,
	OutboxEventTypeMatchCancelled,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateTypeMatch   OutboxAggregateType = "accounting_match"
	OutboxAggregateTypeReceipt OutboxAggregateType = "receipt"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateTypeMatch,
	OutboxAggregateTypeReceipt,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
