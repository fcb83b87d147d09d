package erp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
)

var (
	errRelayStoreRequired   = errors.New("relay outbox store is required")
	errRelayGatewayRequired = errors.New("relay gateway is required")
	errRelayLoggerRequired  = errors.New("relay logger is required")
)

// relayStore is the slice of the outbox repository the relay drains.
type relayStore interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

// Relay drains unpublished outbox rows and forwards them to the ledger.
// A failed push only bumps the row's attempt count; local match state is
// authoritative and never rolled back because the ledger was unreachable.
type Relay struct {
	store   relayStore
	gateway Gateway
	cfg     config.OutboxConfig
	logger  *logger.Logger
}

func NewRelay(store relayStore, gateway Gateway, cfg config.OutboxConfig, logg *logger.Logger) (*Relay, error) {
	if store == nil {
		return nil, errRelayStoreRequired
	}
	if gateway == nil {
		return nil, errRelayGatewayRequired
	}
	if logg == nil {
		return nil, errRelayLoggerRequired
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	return &Relay{store: store, gateway: gateway, cfg: cfg, logger: logg}, nil
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, _, err := r.DrainOnce(ctx); err != nil {
			r.logger.Error(ctx, "draining outbox", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce pushes one batch of unpublished events and reports how many
// were published and how many failed.
func (r *Relay) DrainOnce(ctx context.Context) (published, failed int, err error) {
	rows, err := r.store.FetchUnpublished(r.cfg.BatchSize, r.cfg.MaxAttempts)
	if err != nil {
		return 0, 0, err
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			return published, failed, ctx.Err()
		}

		eventCtx := r.logger.WithFields(ctx, map[string]any{
			"event_id":   row.ID.String(),
			"event_type": row.EventType.String(),
		})

		if pushErr := r.gateway.PushEvent(ctx, row.EventType, row.Payload); pushErr != nil {
			failed++
			r.logger.Warn(eventCtx, "pushing event to erp failed")
			if markErr := r.store.MarkFailed(row.ID, pushErr); markErr != nil {
				r.logger.Error(eventCtx, "recording push failure", markErr)
			}
			continue
		}

		if markErr := r.store.MarkPublished(row.ID); markErr != nil {
			failed++
			r.logger.Error(eventCtx, "marking event published", markErr)
			continue
		}
		published++
	}

	return published, failed, nil
}
