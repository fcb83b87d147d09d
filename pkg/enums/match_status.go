package enums

import "fmt"

// MatchStatus tracks where a reconciliation match sits in its lifecycle.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusCancelled MatchStatus = "cancelled"
	MatchStatusPartial   MatchStatus = "partial"
)

var validMatchStatuses = []MatchStatus{
	MatchStatusPending,
	MatchStatusMatched,
	MatchStatusCancelled,
	MatchStatusPartial,
}

// String implements fmt.Stringer.
func (m MatchStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MatchStatus.
func (m MatchStatus) IsValid() bool {
	for _, candidate := range validMatchStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsActive reports whether the match counts toward a receipt's matched total.
// Cancelled matches are excluded from conservation accounting.
func (m MatchStatus) IsActive() bool {
	return m == MatchStatusMatched || m == MatchStatusPartial
}

// ParseMatchStatus converts raw input into a MatchStatus.
func ParseMatchStatus(value string) (MatchStatus, error) {
	for _, candidate := range validMatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match status %q", value)
}
