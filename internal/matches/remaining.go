package matches

import (
	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
)

// RemainingAmount returns how much of the receipt total is still open for
// matching given the receipt's current match set. Only active matches
// consume budget; cancelled matches do not count. The value is always
// derived, never stored.
func RemainingAmount(total decimal.Decimal, matchSet []models.AccountingMatch) decimal.Decimal {
	remaining := total
	for _, match := range matchSet {
		if !match.MatchStatus.IsActive() {
			continue
		}
		remaining = remaining.Sub(match.MatchedAmount)
	}
	return remaining
}
