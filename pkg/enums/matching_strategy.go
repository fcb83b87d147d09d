package enums

import "fmt"

// MatchingStrategy names the batch matching posture requested by the caller.
// The strategy is carried through batch reports; it does not change the
// scoring weights.
type MatchingStrategy string

const (
	MatchingStrategyConservative MatchingStrategy = "conservative"
	MatchingStrategyBalanced     MatchingStrategy = "balanced"
	MatchingStrategyAggressive   MatchingStrategy = "aggressive"
)

var validMatchingStrategies = []MatchingStrategy{
	MatchingStrategyConservative,
	MatchingStrategyBalanced,
	MatchingStrategyAggressive,
}

// String implements fmt.Stringer.
func (m MatchingStrategy) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MatchingStrategy.
func (m MatchingStrategy) IsValid() bool {
	for _, candidate := range validMatchingStrategies {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMatchingStrategy converts raw input into a MatchingStrategy.
func ParseMatchingStrategy(value string) (MatchingStrategy, error) {
	for _, candidate := range validMatchingStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid matching strategy %q", value)
}
