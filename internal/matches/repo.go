package matches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a match repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AccountingMatch, error) {
	var match models.AccountingMatch
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *repository) FindReceipt(ctx context.Context, receiptID uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.WithContext(ctx).
		Where("id = ?", receiptID).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) FindActiveByReceipt(ctx context.Context, receiptID uuid.UUID) ([]models.AccountingMatch, error) {
	var rows []models.AccountingMatch
	err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Where("match_status IN ?", []enums.MatchStatus{enums.MatchStatusMatched, enums.MatchStatusPartial}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByReceipt(ctx context.Context, receiptID uuid.UUID) ([]models.AccountingMatch, error) {
	var rows []models.AccountingMatch
	err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Create(ctx context.Context, match *models.AccountingMatch) (*models.AccountingMatch, error) {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		return nil, err
	}
	return match, nil
}

// Update applies field updates guarded by the optimistic version counter.
// The returned count is zero when the row was modified concurrently.
func (r *repository) Update(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (int64, error) {
	updates["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).
		Model(&models.AccountingMatch{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
