package matches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
)

// Repository provides persistence for matches and the receipt reads the
// lifecycle checks depend on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.AccountingMatch, error)
	FindReceipt(ctx context.Context, receiptID uuid.UUID) (*models.Receipt, error)
	FindActiveByReceipt(ctx context.Context, receiptID uuid.UUID) ([]models.AccountingMatch, error)
	ListByReceipt(ctx context.Context, receiptID uuid.UUID) ([]models.AccountingMatch, error)
	Create(ctx context.Context, match *models.AccountingMatch) (*models.AccountingMatch, error)
	Update(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (int64, error)
}
