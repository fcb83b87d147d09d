package cardsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
)

// CardStore is the slice of card persistence the sync loop needs.
type CardStore interface {
	FindActive(ctx context.Context) ([]models.Card, error)
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

type cardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) CardStore {
	return &cardRepository{db: db}
}

func (r *cardRepository) FindActive(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&cards).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing active cards")
	}
	return cards, nil
}

func (r *cardRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", id).
		Update("last_synced_at", at).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "recording card sync time")
	}
	return nil
}
