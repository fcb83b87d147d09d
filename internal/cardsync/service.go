package cardsync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/internal/receipts"
	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
	"github.com/jihoon-choi/receiptlink-backend/pkg/security"
)

var (
	errCardsRequired     = errors.New("cardsync card store is required")
	errIngestorRequired  = errors.New("cardsync receipt ingestor is required")
	errRegistryRequired  = errors.New("cardsync provider registry is required")
	errSyncLoggRequired  = errors.New("cardsync logger is required")
)

type receiptIngestor interface {
	Ingest(ctx context.Context, input receipts.IngestInput) (*models.Receipt, error)
}

// CardResult is the per-card outcome of one sync run.
type CardResult struct {
	CardID   uuid.UUID
	Alias    string
	Fetched  int
	Ingested int
	Error    string
}

// SyncReport aggregates one sync run across all active cards.
type SyncReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Cards      []CardResult
	CardsOK    int
	CardsFail  int
	Ingested   int
}

// Service pulls transactions for every active card through its issuer
// adapter and lands them as unverified receipts. Per-card failures are
// collected, not fatal.
type Service struct {
	cards    CardStore
	ingestor receiptIngestor
	registry *Registry
	cfg      config.CardSyncConfig
	logg     *logger.Logger
}

func NewService(cards CardStore, ingestor receiptIngestor, registry *Registry, cfg config.CardSyncConfig, logg *logger.Logger) (*Service, error) {
	if cards == nil {
		return nil, errCardsRequired
	}
	if ingestor == nil {
		return nil, errIngestorRequired
	}
	if registry == nil {
		return nil, errRegistryRequired
	}
	if logg == nil {
		return nil, errSyncLoggRequired
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Service{cards: cards, ingestor: ingestor, registry: registry, cfg: cfg, logg: logg}, nil
}

// VerifyCardSecret checks a caller-supplied provider secret against the
// stored hash. Used when a card is registered or its credentials rotate.
func (s *Service) VerifyCardSecret(card models.Card, secret string) (bool, error) {
	if card.CredentialHash == "" {
		return false, apperrors.New(apperrors.CodeValidation, "card has no stored credential")
	}
	return security.VerifyCredential(secret, card.CredentialHash)
}

// Run syncs every active card over the window.
func (s *Service) Run(ctx context.Context, from, to time.Time) (*SyncReport, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, apperrors.New(apperrors.CodeValidation, "sync window is invalid")
	}

	report := &SyncReport{StartedAt: time.Now().UTC()}

	cards, err := s.cards.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	workers := s.cfg.Workers
	if workers > len(cards) {
		workers = len(cards)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		jobs = make(chan models.Card)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for card := range jobs {
				result := s.syncCard(ctx, card, from, to)
				mu.Lock()
				report.Cards = append(report.Cards, result)
				mu.Unlock()
			}
		}()
	}
	for _, card := range cards {
		jobs <- card
	}
	close(jobs)
	wg.Wait()

	sort.Slice(report.Cards, func(i, j int) bool {
		return report.Cards[i].Alias < report.Cards[j].Alias
	})
	for _, result := range report.Cards {
		if result.Error != "" {
			report.CardsFail++
			continue
		}
		report.CardsOK++
		report.Ingested += result.Ingested
	}
	report.FinishedAt = time.Now().UTC()

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"cards_ok":   report.CardsOK,
		"cards_fail": report.CardsFail,
		"ingested":   report.Ingested,
	}), "card sync completed")
	return report, nil
}

func (s *Service) syncCard(ctx context.Context, card models.Card, from, to time.Time) CardResult {
	cardCtx := s.logg.WithCardID(ctx, card.ID.String())
	result := CardResult{CardID: card.ID, Alias: card.Alias}

	provider, err := s.registry.Lookup(card.Provider)
	if err != nil {
		result.Error = err.Error()
		s.logg.Warn(cardCtx, "no adapter for card provider")
		return result
	}

	transactions, err := provider.FetchTransactions(ctx, card, from, to)
	if err != nil {
		result.Error = err.Error()
		s.logg.Error(cardCtx, "fetching card transactions", err)
		return result
	}
	result.Fetched = len(transactions)

	for _, tx := range transactions {
		input := receipts.IngestInput{
			ReceiptNumber: receiptNumberFor(card.Provider, tx.ApprovalNumber),
			CardID:        card.ID,
			TotalAmount:   tx.Amount,
			Currency:      tx.Currency,
			TransactionAt: tx.TransactionAt,
			MerchantName:  tx.MerchantName,
		}
		if tx.MerchantCategory != "" {
			category := tx.MerchantCategory
			input.MerchantCategory = &category
		}
		if tx.ApprovalNumber != "" {
			approval := tx.ApprovalNumber
			input.ApprovalNumber = &approval
		}

		if _, err := s.ingestor.Ingest(ctx, input); err != nil {
			// One bad row should not lose the rest of the card's feed.
			s.logg.Error(s.logg.WithField(cardCtx, "receipt_number", input.ReceiptNumber), "ingesting transaction", err)
			continue
		}
		result.Ingested++
	}

	if err := s.cards.MarkSynced(ctx, card.ID, time.Now().UTC()); err != nil {
		s.logg.Error(cardCtx, "recording card sync time", err)
	}
	return result
}
