package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

// Card is a registered corporate card whose transactions are ingested from
// the issuer feed. Provider credentials are stored hashed, never in clear.
type Card struct {
	ID             uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider       enums.CardProvider `gorm:"column:provider;type:card_provider;not null"`
	Alias          string             `gorm:"column:alias;not null"`
	MaskedNumber   string             `gorm:"column:masked_number;not null;uniqueIndex"`
	OwnerUserID    uuid.UUID          `gorm:"column:owner_user_id;type:uuid;not null;index"`
	CredentialHash string             `gorm:"column:credential_hash;not null"`
	Active         bool               `gorm:"column:active;not null;default:true"`
	LastSyncedAt   *time.Time         `gorm:"column:last_synced_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
