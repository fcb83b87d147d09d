// Package receipts manages the local receipt store: ingestion from card
// feeds, verification, and the eligibility queries the auto-match batch
// depends on.
package receipts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
	"github.com/jihoon-choi/receiptlink-backend/pkg/pagination"
)

// ReceiptList is one page of receipts plus the cursor for the next page.
type ReceiptList struct {
	Items      []models.Receipt
	NextCursor string
}

// Service defines receipt store operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, params ListParams) (*ReceiptList, error)
	EligibleForAutoMatch(ctx context.Context, filter EligibilityFilter) ([]models.Receipt, error)
	Ingest(ctx context.Context, input IngestInput) (*models.Receipt, error)
	Verify(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a receipt service with the required dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("receipts repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "receipt id required")
	}
	receipt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "receipt not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "load receipt")
	}
	return receipt, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ReceiptList, error) {
	var cursor *pagination.Cursor
	if params.Page.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Page.Cursor)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.List(ctx, params.Filter, cursor, params.Page.Limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list receipts")
	}

	list := &ReceiptList{Items: rows}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) EligibleForAutoMatch(ctx context.Context, filter EligibilityFilter) ([]models.Receipt, error) {
	if len(filter.ReceiptIDs) == 0 {
		if filter.From.IsZero() || filter.To.IsZero() {
			return nil, apperrors.New(apperrors.CodeValidation, "eligibility window required")
		}
		if filter.To.Before(filter.From) {
			return nil, apperrors.New(apperrors.CodeValidation, "eligibility window end precedes start")
		}
	}
	rows, err := s.repo.FindEligibleForAutoMatch(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "load eligible receipts")
	}
	return rows, nil
}

// Ingest stores a card feed row. Replays of the same receipt number return
// the existing row instead of failing, so provider syncs stay idempotent.
func (s *service) Ingest(ctx context.Context, input IngestInput) (*models.Receipt, error) {
	if input.ReceiptNumber == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "receipt number required")
	}
	if input.CardID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "card id required")
	}
	if !input.TotalAmount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "total amount must be positive")
	}
	if input.TransactionAt.IsZero() {
		return nil, apperrors.New(apperrors.CodeValidation, "transaction time required")
	}
	if input.MerchantName == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "merchant name required")
	}

	currency := input.Currency
	if currency == "" {
		currency = "KRW"
	}
	receipt := &models.Receipt{
		ID:               uuid.New(),
		ReceiptNumber:    input.ReceiptNumber,
		CardID:           input.CardID,
		TotalAmount:      input.TotalAmount,
		Currency:         currency,
		TransactionAt:    input.TransactionAt,
		MerchantName:     input.MerchantName,
		MerchantCategory: input.MerchantCategory,
		ApprovalNumber:   input.ApprovalNumber,
	}

	created, err := s.repo.Create(ctx, receipt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindByReceiptNumber(ctx, input.ReceiptNumber)
			if findErr != nil {
				return nil, apperrors.Wrap(apperrors.CodeDependency, findErr, "load existing receipt")
			}
			s.logg.Debug(s.logg.WithField(ctx, "receipt_number", input.ReceiptNumber), "receipt already ingested")
			return existing, nil
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "create receipt")
	}
	return created, nil
}

func (s *service) Verify(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "receipt id required")
	}
	affected, err := s.repo.MarkVerified(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "mark receipt verified")
	}
	if affected == 0 {
		// Either unknown id or already verified; distinguish for the caller.
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.CodeNotFound, "receipt not found")
			}
			return apperrors.Wrap(apperrors.CodeDependency, err, "load receipt")
		}
	}
	return nil
}
