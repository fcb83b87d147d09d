// Package payloads defines the event bodies carried inside outbox envelopes.
// Relay consumers decode these by event type.
package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MatchCreatedEvent struct {
	MatchID         uuid.UUID       `json:"match_id"`
	ReceiptID       uuid.UUID       `json:"receipt_id"`
	LedgerAccountID string          `json:"ledger_account_id"`
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	MatchType       string          `json:"match_type"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	MatchCriteria   *string         `json:"match_criteria,omitempty"`
	MatchedAt       time.Time       `json:"matched_at"`
}

type MatchUpdatedEvent struct {
	MatchID         uuid.UUID        `json:"match_id"`
	ReceiptID       uuid.UUID        `json:"receipt_id"`
	LedgerAccountID *string          `json:"ledger_account_id,omitempty"`
	MatchedAmount   *decimal.Decimal `json:"matched_amount,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

type MatchApprovedEvent struct {
	MatchID         uuid.UUID       `json:"match_id"`
	ReceiptID       uuid.UUID       `json:"receipt_id"`
	LedgerAccountID string          `json:"ledger_account_id"`
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	ApprovedByID    uuid.UUID       `json:"approved_by_id"`
	ApprovedAt      time.Time       `json:"approved_at"`
}

type MatchRejectedEvent struct {
	MatchID         uuid.UUID `json:"match_id"`
	ReceiptID       uuid.UUID `json:"receipt_id"`
	RejectionReason string    `json:"rejection_reason"`
	RejectedByID    uuid.UUID `json:"rejected_by_id"`
}

type MatchCancelledEvent struct {
	MatchID       uuid.UUID       `json:"match_id"`
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	MatchedAmount decimal.Decimal `json:"matched_amount"`
	Reason        *string         `json:"reason,omitempty"`
}
