package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
)

const envelopeVersion = 1

// DomainEvent is the write-side view of an outbox row. Data is marshaled
// into a versioned envelope so relay consumers can evolve independently.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         ActorRef
	Data          any
}

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

type Service struct {
	repo inserter
}

func NewService(repo inserter) (*Service, error) {
	if repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "outbox repository is required")
	}
	return &Service{repo: repo}, nil
}

// Emit stores the event inside the caller's transaction so the row commits
// or rolls back together with the state change it describes.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if !event.EventType.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "invalid outbox event type")
	}
	if !event.AggregateType.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "invalid outbox aggregate type")
	}
	if event.AggregateID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "aggregate id is required")
	}

	envelope := PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Actor:      event.Actor,
		Data:       event.Data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "marshal outbox payload")
	}

	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeDependency, err, "insert outbox event")
	}
	return nil
}
