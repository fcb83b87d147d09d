package receipts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	"github.com/jihoon-choi/receiptlink-backend/pkg/pagination"
)

// Repository provides receipt persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Receipt, error)
	FindByReceiptNumber(ctx context.Context, number string) (*models.Receipt, error)
	FindEligibleForAutoMatch(ctx context.Context, filter EligibilityFilter) ([]models.Receipt, error)
	List(ctx context.Context, filter SearchFilter, cursor *pagination.Cursor, limit int) ([]models.Receipt, *pagination.Cursor, error)
	Create(ctx context.Context, receipt *models.Receipt) (*models.Receipt, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a receipt repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Receipt, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Receipt
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("transaction_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByReceiptNumber(ctx context.Context, number string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.WithContext(ctx).
		Where("receipt_number = ?", number).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// FindEligibleForAutoMatch returns verified receipts inside the window that
// carry no active match, capped for bounded batch cost. An explicit id list
// bypasses the window query.
func (r *repository) FindEligibleForAutoMatch(ctx context.Context, filter EligibilityFilter) ([]models.Receipt, error) {
	if len(filter.ReceiptIDs) > 0 {
		return r.FindByIDs(ctx, filter.ReceiptIDs)
	}

	query := r.db.WithContext(ctx).
		Model(&models.Receipt{}).
		Where("verified = ?", true).
		Where("transaction_at >= ? AND transaction_at <= ?", filter.From, filter.To).
		Where("NOT EXISTS (SELECT 1 FROM accounting_matches m WHERE m.receipt_id = receipts.id AND m.match_status IN ?)",
			[]enums.MatchStatus{enums.MatchStatusMatched, enums.MatchStatusPartial})
	if len(filter.CardIDs) > 0 {
		query = query.Where("card_id IN ?", filter.CardIDs)
	}
	if filter.Cap > 0 {
		query = query.Limit(filter.Cap)
	}

	var rows []models.Receipt
	if err := query.Order("transaction_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context, filter SearchFilter, cursor *pagination.Cursor, limit int) ([]models.Receipt, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).Model(&models.Receipt{})
	if filter.CardID != nil {
		query = query.Where("card_id = ?", *filter.CardID)
	}
	if filter.MerchantName != "" {
		query = query.Where("merchant_name LIKE ?", "%"+filter.MerchantName+"%")
	}
	if filter.VerifiedOnly {
		query = query.Where("verified = ?", true)
	}
	if filter.From != nil {
		query = query.Where("transaction_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("transaction_at <= ?", *filter.To)
	}
	if cursor != nil {
		query = query.Where("(transaction_at, id) < (?, ?)", cursor.Timestamp, cursor.ID)
	}

	var rows []models.Receipt
	if err := query.Order("transaction_at DESC, id DESC").Limit(buffered).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{Timestamp: next.TransactionAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) Create(ctx context.Context, receipt *models.Receipt) (*models.Receipt, error) {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(receipt).Error; err != nil {
		return nil, err
	}
	return receipt, nil
}

func (r *repository) MarkVerified(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Receipt{}).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
