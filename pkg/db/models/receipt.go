package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is one card purchase event awaiting reconciliation. Transaction
// facts are immutable after ingestion; only verification and match linkage
// change afterwards.
type Receipt struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReceiptNumber    string           `gorm:"column:receipt_number;not null;uniqueIndex"`
	CardID           uuid.UUID        `gorm:"column:card_id;type:uuid;not null;index"`
	TotalAmount      decimal.Decimal  `gorm:"column:total_amount;type:numeric(15,2);not null"`
	Currency         string           `gorm:"column:currency;not null;default:KRW"`
	TransactionAt    time.Time        `gorm:"column:transaction_at;not null;index"`
	MerchantName     string           `gorm:"column:merchant_name;not null"`
	MerchantCategory *string          `gorm:"column:merchant_category"`
	ApprovalNumber   *string          `gorm:"column:approval_number"`
	Verified         bool             `gorm:"column:verified;not null;default:false"`
	Matches          []AccountingMatch `gorm:"foreignKey:ReceiptID"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
