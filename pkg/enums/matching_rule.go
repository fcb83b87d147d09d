package enums

import "fmt"

// MatchingRule is the confidence tier derived from the scoring components.
type MatchingRule string

const (
	MatchingRuleExact  MatchingRule = "EXACT_MATCH"
	MatchingRuleHigh   MatchingRule = "HIGH_CONFIDENCE"
	MatchingRuleMedium MatchingRule = "MEDIUM_CONFIDENCE"
	MatchingRuleLow    MatchingRule = "LOW_CONFIDENCE"
)

var validMatchingRules = []MatchingRule{
	MatchingRuleExact,
	MatchingRuleHigh,
	MatchingRuleMedium,
	MatchingRuleLow,
}

// String implements fmt.Stringer.
func (m MatchingRule) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MatchingRule.
func (m MatchingRule) IsValid() bool {
	for _, candidate := range validMatchingRules {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMatchingRule converts raw input into a MatchingRule.
func ParseMatchingRule(value string) (MatchingRule, error) {
	for _, candidate := range validMatchingRules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid matching rule %q", value)
}
