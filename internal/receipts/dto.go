package receipts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/pagination"
)

// EligibilityFilter resolves the receipt set one auto-match batch works on.
// ReceiptIDs, when set, overrides the window query entirely.
type EligibilityFilter struct {
	From       time.Time
	To         time.Time
	ReceiptIDs []uuid.UUID
	CardIDs    []uuid.UUID
	Cap        int
}

// SearchFilter narrows the receipt listing.
type SearchFilter struct {
	CardID       *uuid.UUID
	MerchantName string
	VerifiedOnly bool
	From         *time.Time
	To           *time.Time
}

// ListParams carries the cursor pagination inputs.
type ListParams struct {
	Filter SearchFilter
	Page   pagination.Params
}

// IngestInput is one transaction row pulled from a card provider feed.
type IngestInput struct {
	ReceiptNumber    string
	CardID           uuid.UUID
	TotalAmount      decimal.Decimal
	Currency         string
	TransactionAt    time.Time
	MerchantName     string
	MerchantCategory *string
	ApprovalNumber   *string
}
