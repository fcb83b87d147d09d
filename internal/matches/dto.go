package matches

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

// CreateInput proposes a new match between a receipt and a ledger entry.
type CreateInput struct {
	ReceiptID       uuid.UUID
	ErpLedgerID     string
	AccountCode     string
	AccountName     string
	CostCenter      *string
	ProjectCode     *string
	Amount          decimal.Decimal
	MatchType       enums.MatchType
	ApprovalStatus  enums.ApprovalStatus
	ConfidenceScore *float64
	MatchCriteria   *string
	MatchReasons    []string
	Notes           *string
	ActorID         uuid.UUID
	ActorRole       enums.UserRole
}

// UpdateInput edits a still-pending match before it enters approval.
type UpdateInput struct {
	MatchID     uuid.UUID
	AccountCode string
	AccountName string
	CostCenter  *string
	Amount      decimal.Decimal
	Notes       *string
	ActorID     uuid.UUID
	ActorRole   enums.UserRole
}

type ApproveInput struct {
	MatchID    uuid.UUID
	ApproverID uuid.UUID
	ActorRole  enums.UserRole
}

type RejectInput struct {
	MatchID      uuid.UUID
	Reason       string
	RejectedByID uuid.UUID
	ActorRole    enums.UserRole
}

type CancelInput struct {
	MatchID   uuid.UUID
	Reason    string
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}
