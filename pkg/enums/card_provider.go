package enums

import "fmt"

// CardProvider names the card issuer a corporate card is registered with.
type CardProvider string

const (
	CardProviderShinhan CardProvider = "shinhan"
	CardProviderSamsung CardProvider = "samsung"
	CardProviderHyundai CardProvider = "hyundai"
)

var validCardProviders = []CardProvider{
	CardProviderShinhan,
	CardProviderSamsung,
	CardProviderHyundai,
}

// String implements fmt.Stringer.
func (c CardProvider) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CardProvider.
func (c CardProvider) IsValid() bool {
	for _, candidate := range validCardProviders {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCardProvider converts raw input into a CardProvider.
func ParseCardProvider(value string) (CardProvider, error) {
	for _, candidate := range validCardProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid card provider %q", value)
}
