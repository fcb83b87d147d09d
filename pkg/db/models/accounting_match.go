package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

// AccountingMatch links a receipt to an ERP ledger entry. Rows are never
// deleted; cancellation is the terminal soft-delete state.
type AccountingMatch struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReceiptID       uuid.UUID            `gorm:"column:receipt_id;type:uuid;not null;index"`
	ErpLedgerID     string               `gorm:"column:erp_ledger_id;not null"`
	AccountCode     string               `gorm:"column:account_code;not null"`
	AccountName     string               `gorm:"column:account_name"`
	CostCenter      *string              `gorm:"column:cost_center"`
	ProjectCode     *string              `gorm:"column:project_code"`
	MatchedAmount   decimal.Decimal      `gorm:"column:matched_amount;type:numeric(15,2);not null"`
	MatchStatus     enums.MatchStatus    `gorm:"column:match_status;type:match_status;not null;default:pending"`
	MatchType       enums.MatchType      `gorm:"column:match_type;type:match_type;not null;default:manual"`
	ApprovalStatus  enums.ApprovalStatus `gorm:"column:approval_status;type:approval_status;not null;default:pending"`
	ConfidenceScore *float64             `gorm:"column:confidence_score"`
	MatchCriteria   *string              `gorm:"column:match_criteria"`
	MatchReasons    pq.StringArray       `gorm:"column:match_reasons;type:text[]"`
	Notes           *string              `gorm:"column:notes"`
	RejectionReason *string              `gorm:"column:rejection_reason"`
	MatchedByID     uuid.UUID            `gorm:"column:matched_by;type:uuid;not null"`
	ApprovedByID    *uuid.UUID           `gorm:"column:approved_by;type:uuid"`
	MatchedAt       *time.Time           `gorm:"column:matched_at"`
	ApprovedAt      *time.Time           `gorm:"column:approved_at"`
	Version         int64                `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
