package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/outbox/payloads"
)

type fakeInserter struct {
	inserted []models.OutboxEvent
	err      error
}

func (f *fakeInserter) Insert(_ *gorm.DB, event models.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, event)
	return nil
}

func testTx(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	return conn
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	repo := &fakeInserter{}
	service, err := NewService(repo)
	require.NoError(t, err)

	matchID := uuid.New()
	receiptID := uuid.New()
	actorID := uuid.New()

	err = service.Emit(context.Background(), testTx(t), DomainEvent{
		EventType:     enums.OutboxEventTypeMatchCreated,
		AggregateType: enums.OutboxAggregateTypeMatch,
		AggregateID:   matchID,
		Actor:         ActorRef{UserID: actorID, Role: enums.UserRoleSystem},
		Data: payloads.MatchCreatedEvent{
			MatchID:   matchID,
			ReceiptID: receiptID,
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)

	row := repo.inserted[0]
	assert.Equal(t, enums.OutboxEventTypeMatchCreated, row.EventType)
	assert.Equal(t, enums.OutboxAggregateTypeMatch, row.AggregateType)
	assert.Equal(t, matchID, row.AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, envelopeVersion, envelope.Version)
	assert.NotEqual(t, uuid.Nil, envelope.EventID)
	assert.False(t, envelope.OccurredAt.IsZero())
	assert.Equal(t, actorID, envelope.Actor.UserID)
}

func TestEmitValidatesEvent(t *testing.T) {
	service, err := NewService(&fakeInserter{})
	require.NoError(t, err)

	err = service.Emit(context.Background(), testTx(t), DomainEvent{
		EventType:     enums.OutboxEventType("unknown"),
		AggregateType: enums.OutboxAggregateTypeMatch,
		AggregateID:   uuid.New(),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	err = service.Emit(context.Background(), testTx(t), DomainEvent{
		EventType:     enums.OutboxEventTypeMatchCreated,
		AggregateType: enums.OutboxAggregateTypeMatch,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestEmitWrapsRepositoryErrors(t *testing.T) {
	service, err := NewService(&fakeInserter{err: errors.New("insert failed")})
	require.NoError(t, err)

	err = service.Emit(context.Background(), testTx(t), DomainEvent{
		EventType:     enums.OutboxEventTypeMatchCreated,
		AggregateType: enums.OutboxAggregateTypeMatch,
		AggregateID:   uuid.New(),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependency))
}
