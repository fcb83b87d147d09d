package cardsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihoon-choi/receiptlink-backend/internal/receipts"
	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/security"
)

var syncWindow = struct{ from, to time.Time }{
	from: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	to:   time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC),
}

type fakeCardStore struct {
	cards  []models.Card
	synced []uuid.UUID
	mu     sync.Mutex
}

func (s *fakeCardStore) FindActive(ctx context.Context) ([]models.Card, error) {
	return s.cards, nil
}

func (s *fakeCardStore) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, id)
	return nil
}

type fakeIngestor struct {
	mu       sync.Mutex
	inputs   []receipts.IngestInput
	failages map[string]error
}

func (f *fakeIngestor) Ingest(ctx context.Context, input receipts.IngestInput) (*models.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failages[input.ReceiptNumber]; ok {
		return nil, err
	}
	f.inputs = append(f.inputs, input)
	return &models.Receipt{ID: uuid.New(), ReceiptNumber: input.ReceiptNumber}, nil
}

type fakeProvider struct {
	kind         enums.CardProvider
	transactions map[uuid.UUID][]Transaction
	err          error
}

func (p *fakeProvider) Provider() enums.CardProvider {
	return p.kind
}

func (p *fakeProvider) FetchTransactions(ctx context.Context, card models.Card, from, to time.Time) ([]Transaction, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.transactions[card.ID], nil
}

func shinhanCard(alias string) models.Card {
	return models.Card{
		ID:           uuid.New(),
		Provider:     enums.CardProviderShinhan,
		Alias:        alias,
		MaskedNumber: "1234-****-" + alias,
		OwnerUserID:  uuid.New(),
		Active:       true,
	}
}

func taxiTransaction(approval string) Transaction {
	return Transaction{
		ApprovalNumber:   approval,
		MerchantName:     "서울택시",
		MerchantCategory: "운수업",
		Amount:           decimal.NewFromInt(50000),
		Currency:         "KRW",
		TransactionAt:    syncWindow.from.AddDate(0, 0, 2),
		Status:           "APPROVED",
	}
}

func newSyncService(t *testing.T, store *fakeCardStore, ingestor *fakeIngestor, providers ...Provider) *Service {
	t.Helper()
	svc, err := NewService(store, ingestor, NewRegistry(providers...), config.CardSyncConfig{Workers: 2}, testLogger())
	require.NoError(t, err)
	return svc
}

func TestRunIngestsFetchedTransactions(t *testing.T) {
	cardA := shinhanCard("A")
	cardB := shinhanCard("B")
	store := &fakeCardStore{cards: []models.Card{cardA, cardB}}
	ingestor := &fakeIngestor{}
	provider := &fakeProvider{kind: enums.CardProviderShinhan, transactions: map[uuid.UUID][]Transaction{
		cardA.ID: {taxiTransaction("AP-1"), taxiTransaction("AP-2")},
		cardB.ID: {taxiTransaction("AP-3")},
	}}
	svc := newSyncService(t, store, ingestor, provider)

	report, err := svc.Run(context.Background(), syncWindow.from, syncWindow.to)
	require.NoError(t, err)

	assert.Equal(t, 2, report.CardsOK)
	assert.Zero(t, report.CardsFail)
	assert.Equal(t, 3, report.Ingested)
	assert.Len(t, store.synced, 2)

	require.Len(t, ingestor.inputs, 3)
	for _, input := range ingestor.inputs {
		assert.True(t, len(input.ReceiptNumber) > len("SHINHAN-"))
		assert.Equal(t, "KRW", input.Currency)
		require.NotNil(t, input.ApprovalNumber)
	}
}

func TestRunDerivesReceiptNumberFromProvider(t *testing.T) {
	assert.Equal(t, "SHINHAN-AP-1001", receiptNumberFor(enums.CardProviderShinhan, "AP-1001"))
}

func TestRunPerCardFailureDoesNotAbort(t *testing.T) {
	okCard := shinhanCard("A")
	badCard := models.Card{
		ID:           uuid.New(),
		Provider:     enums.CardProviderSamsung,
		Alias:        "B",
		MaskedNumber: "9999-****-B",
		Active:       true,
	}
	store := &fakeCardStore{cards: []models.Card{okCard, badCard}}
	ingestor := &fakeIngestor{}
	provider := &fakeProvider{kind: enums.CardProviderShinhan, transactions: map[uuid.UUID][]Transaction{
		okCard.ID: {taxiTransaction("AP-1")},
	}}
	svc := newSyncService(t, store, ingestor, provider)

	report, err := svc.Run(context.Background(), syncWindow.from, syncWindow.to)
	require.NoError(t, err)

	assert.Equal(t, 1, report.CardsOK)
	assert.Equal(t, 1, report.CardsFail)
	require.Len(t, report.Cards, 2)
	assert.Empty(t, report.Cards[0].Error)
	assert.Contains(t, report.Cards[1].Error, "unsupported card provider")
}

func TestRunBadRowDoesNotLoseRestOfFeed(t *testing.T) {
	card := shinhanCard("A")
	store := &fakeCardStore{cards: []models.Card{card}}
	ingestor := &fakeIngestor{failages: map[string]error{
		"SHINHAN-AP-1": apperrors.New(apperrors.CodeValidation, "bad row"),
	}}
	provider := &fakeProvider{kind: enums.CardProviderShinhan, transactions: map[uuid.UUID][]Transaction{
		card.ID: {taxiTransaction("AP-1"), taxiTransaction("AP-2")},
	}}
	svc := newSyncService(t, store, ingestor, provider)

	report, err := svc.Run(context.Background(), syncWindow.from, syncWindow.to)
	require.NoError(t, err)

	require.Len(t, report.Cards, 1)
	assert.Equal(t, 2, report.Cards[0].Fetched)
	assert.Equal(t, 1, report.Cards[0].Ingested)
	assert.Empty(t, report.Cards[0].Error)
}

func TestRunValidatesWindow(t *testing.T) {
	svc := newSyncService(t, &fakeCardStore{}, &fakeIngestor{})
	_, err := svc.Run(context.Background(), syncWindow.to, syncWindow.from)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestVerifyCardSecret(t *testing.T) {
	hash, err := security.HashCredential("corp-secret", config.CredentialParams{})
	require.NoError(t, err)

	svc := newSyncService(t, &fakeCardStore{}, &fakeIngestor{})

	ok, err := svc.VerifyCardSecret(models.Card{CredentialHash: hash}, "corp-secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyCardSecret(models.Card{CredentialHash: hash}, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.VerifyCardSecret(models.Card{}, "whatever")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
