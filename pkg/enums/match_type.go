package enums

import "fmt"

// MatchType records how a reconciliation match was produced.
type MatchType string

const (
	MatchTypeAuto        MatchType = "auto"
	MatchTypeManual      MatchType = "manual"
	MatchTypeRuleBased   MatchType = "rule_based"
	MatchTypeAISuggested MatchType = "ai_suggested"
)

var validMatchTypes = []MatchType{
	MatchTypeAuto,
	MatchTypeManual,
	MatchTypeRuleBased,
	MatchTypeAISuggested,
}

// String implements fmt.Stringer.
func (m MatchType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MatchType.
func (m MatchType) IsValid() bool {
	for _, candidate := range validMatchTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsAutomatic reports whether the match carries an engine confidence score.
func (m MatchType) IsAutomatic() bool {
	return m != MatchTypeManual
}

// ParseMatchType converts raw input into a MatchType.
func ParseMatchType(value string) (MatchType, error) {
	for _, candidate := range validMatchTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match type %q", value)
}
