package automatch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/internal/matches"
	"github.com/jihoon-choi/receiptlink-backend/internal/matching"
	"github.com/jihoon-choi/receiptlink-backend/internal/receipts"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
	"github.com/jihoon-choi/receiptlink-backend/pkg/metrics"
)

const reasonNoCandidates = "no open ledger candidates"

var (
	errReceiptsRequired = errors.New("automatch receipts service is required")
	errMatchesRequired  = errors.New("automatch matches service is required")
	errLedgerRequired   = errors.New("automatch ledger source is required")
	errEngineRequired   = errors.New("automatch engine is required")
	errLoggerRequired   = errors.New("automatch logger is required")
	errMetricsRequired  = errors.New("automatch metrics are required")
)

type receiptSource interface {
	EligibleForAutoMatch(ctx context.Context, filter receipts.EligibilityFilter) ([]models.Receipt, error)
}

type matchCreator interface {
	Create(ctx context.Context, input matches.CreateInput) (*models.AccountingMatch, error)
}

type candidateSource interface {
	GetOpenLedgers(ctx context.Context, from, to time.Time) ([]matching.Candidate, error)
}

// Orchestrator runs auto-match batches. The candidate pool is fetched once
// per batch and shared read-only across all worker goroutines.
type Orchestrator struct {
	receipts receiptSource
	matches  matchCreator
	ledger   candidateSource
	engine   *matching.Engine
	logg     *logger.Logger
	metrics  *metrics.AutoMatchMetrics
}

func NewOrchestrator(
	receiptSvc receiptSource,
	matchSvc matchCreator,
	ledger candidateSource,
	engine *matching.Engine,
	logg *logger.Logger,
	batchMetrics *metrics.AutoMatchMetrics,
) (*Orchestrator, error) {
	if receiptSvc == nil {
		return nil, errReceiptsRequired
	}
	if matchSvc == nil {
		return nil, errMatchesRequired
	}
	if ledger == nil {
		return nil, errLedgerRequired
	}
	if engine == nil {
		return nil, errEngineRequired
	}
	if logg == nil {
		return nil, errLoggerRequired
	}
	if batchMetrics == nil {
		return nil, errMetricsRequired
	}
	return &Orchestrator{
		receipts: receiptSvc,
		matches:  matchSvc,
		ledger:   ledger,
		engine:   engine,
		logg:     logg,
		metrics:  batchMetrics,
	}, nil
}

// Run executes one batch. Per-receipt failures are collected, not fatal;
// only an unavailable eligible set or candidate pool fails the batch.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg.normalize()
	if err := cfg.validateConfig(); err != nil {
		return nil, err
	}

	report := &Report{
		BatchID:   uuid.New(),
		Strategy:  cfg.Strategy,
		DryRun:    cfg.DryRun,
		StartedAt: time.Now().UTC(),
	}
	batchCtx := o.logg.WithBatchID(ctx, report.BatchID.String())

	eligible, err := o.receipts.EligibleForAutoMatch(batchCtx, receipts.EligibilityFilter{
		From:       cfg.From,
		To:         cfg.To,
		ReceiptIDs: cfg.ReceiptIDs,
		CardIDs:    cfg.CardIDs,
		Cap:        cfg.ReceiptCap,
	})
	if err != nil {
		return o.fail(batchCtx, report, apperrors.Wrap(apperrors.CodeDependency, err, "resolving eligible receipts"))
	}
	report.TotalEligible = len(eligible)
	if len(eligible) == 0 {
		o.logg.Info(batchCtx, "no eligible receipts for batch")
		return o.complete(batchCtx, report), nil
	}

	poolFrom, poolTo := o.poolWindow(cfg, eligible)
	pool, err := o.ledger.GetOpenLedgers(batchCtx, poolFrom, poolTo)
	if err != nil {
		return o.fail(batchCtx, report, apperrors.Wrap(apperrors.CodeDependency, err, "fetching open ledger candidates"))
	}

	workers := cfg.Workers
	if workers > len(eligible) {
		workers = len(eligible)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		jobs = make(chan models.Receipt)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for receipt := range jobs {
				outcome := o.processReceipt(batchCtx, cfg, receipt, pool)
				mu.Lock()
				report.Outcomes = append(report.Outcomes, outcome)
				mu.Unlock()
			}
		}()
	}
	for _, receipt := range eligible {
		jobs <- receipt
	}
	close(jobs)
	wg.Wait()

	o.aggregate(report)
	return o.complete(batchCtx, report), nil
}

func (o *Orchestrator) processReceipt(ctx context.Context, cfg Config, receipt models.Receipt, pool []matching.Candidate) Outcome {
	receiptCtx := o.logg.WithReceiptID(ctx, receipt.ID.String())

	ranked := o.engine.Rank(&receipt, pool)
	if len(ranked) == 0 {
		o.metrics.IncUnmatched()
		return Outcome{
			ReceiptID:     receipt.ID,
			ReceiptNumber: receipt.ReceiptNumber,
			Kind:          OutcomeUnmatched,
			Reasons:       []string{reasonNoCandidates},
		}
	}

	best := ranked[0]
	if best.ConfidenceScore < cfg.MinConfidenceScore {
		o.metrics.IncUnmatched()
		reasons := best.MismatchReasons
		if len(reasons) == 0 {
			reasons = best.MatchReasons
		}
		return Outcome{
			ReceiptID:       receipt.ID,
			ReceiptNumber:   receipt.ReceiptNumber,
			Kind:            OutcomeUnmatched,
			LedgerID:        best.LedgerID,
			ConfidenceScore: best.ConfidenceScore,
			MatchingRule:    best.MatchingRule,
			Reasons:         reasons,
		}
	}

	outcome := Outcome{
		ReceiptID:       receipt.ID,
		ReceiptNumber:   receipt.ReceiptNumber,
		Kind:            OutcomeMatched,
		LedgerID:        best.LedgerID,
		ConfidenceScore: best.ConfidenceScore,
		MatchingRule:    best.MatchingRule,
		Reasons:         best.MatchReasons,
	}

	if cfg.DryRun {
		o.metrics.IncMatched()
		o.metrics.ObserveConfidence(best.ConfidenceScore)
		return outcome
	}

	approval := enums.ApprovalStatusApproved
	if cfg.RequireApproval {
		approval = enums.ApprovalStatusPending
	}

	score := best.ConfidenceScore
	criteria := strings.Join(best.MatchReasons, ", ")
	input := matches.CreateInput{
		ReceiptID:       receipt.ID,
		ErpLedgerID:     best.LedgerID,
		AccountCode:     best.AccountCode,
		AccountName:     best.AccountName,
		Amount:          best.MatchedAmount,
		MatchType:       enums.MatchTypeAuto,
		ApprovalStatus:  approval,
		ConfidenceScore: &score,
		ActorID:         cfg.InitiatorID,
		ActorRole:       cfg.InitiatorRole,
	}
	if best.CostCenter != "" {
		input.CostCenter = &best.CostCenter
	}
	if criteria != "" {
		input.MatchCriteria = &criteria
		input.MatchReasons = best.MatchReasons
	}

	match, err := o.matches.Create(ctx, input)
	if err != nil {
		o.metrics.IncFailed()
		o.logg.Error(receiptCtx, "creating auto match", err)
		return Outcome{
			ReceiptID:       receipt.ID,
			ReceiptNumber:   receipt.ReceiptNumber,
			Kind:            OutcomeFailed,
			LedgerID:        best.LedgerID,
			ConfidenceScore: best.ConfidenceScore,
			Error:           err.Error(),
		}
	}

	o.metrics.IncMatched()
	o.metrics.ObserveConfidence(best.ConfidenceScore)
	outcome.MatchID = &match.ID
	return outcome
}

// poolWindow is the date range handed to the ledger. Explicit receipt runs
// may omit the window, in which case it is derived from the receipts
// themselves, padded a day each side to absorb posting lag.
func (o *Orchestrator) poolWindow(cfg Config, eligible []models.Receipt) (time.Time, time.Time) {
	if !cfg.From.IsZero() && !cfg.To.IsZero() {
		return cfg.From, cfg.To
	}

	from, to := eligible[0].TransactionAt, eligible[0].TransactionAt
	for _, receipt := range eligible[1:] {
		if receipt.TransactionAt.Before(from) {
			from = receipt.TransactionAt
		}
		if receipt.TransactionAt.After(to) {
			to = receipt.TransactionAt
		}
	}
	return from.AddDate(0, 0, -1), to.AddDate(0, 0, 1)
}

func (o *Orchestrator) aggregate(report *Report) {
	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].ReceiptNumber < report.Outcomes[j].ReceiptNumber
	})

	var confidenceSum float64
	for _, outcome := range report.Outcomes {
		switch outcome.Kind {
		case OutcomeMatched:
			report.MatchedCount++
			confidenceSum += outcome.ConfidenceScore
		case OutcomeUnmatched:
			report.UnmatchedCount++
		case OutcomeFailed:
			report.FailedCount++
			report.Errors = append(report.Errors, outcome.ReceiptNumber+": "+outcome.Error)
		}
	}
	if report.MatchedCount > 0 {
		report.AverageConfidence = confidenceSum / float64(report.MatchedCount)
	}
}

func (o *Orchestrator) complete(ctx context.Context, report *Report) *Report {
	report.Status = BatchCompleted
	report.FinishedAt = time.Now().UTC()
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"eligible":  report.TotalEligible,
		"matched":   report.MatchedCount,
		"unmatched": report.UnmatchedCount,
		"failed":    report.FailedCount,
		"dry_run":   report.DryRun,
	}), "batch completed")
	return report
}

func (o *Orchestrator) fail(ctx context.Context, report *Report, err error) (*Report, error) {
	report.Status = BatchFailed
	report.FinishedAt = time.Now().UTC()
	report.Errors = append(report.Errors, err.Error())
	o.logg.Error(ctx, "batch failed", err)
	return report, err
}
