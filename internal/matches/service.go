// Package matches owns the reconciliation match lifecycle: creation under
// the amount-conservation invariant, pre-approval edits, and the approve,
// reject and cancel transitions. Every committed transition also records an
// outbox event for the ERP relay.
package matches

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/outbox"
	"github.com/jihoon-choi/receiptlink-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type receiptLocker interface {
	LockReceipt(ctx context.Context, receiptID uuid.UUID) (func(context.Context), error)
}

// Service defines the match lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.AccountingMatch, error)
	Update(ctx context.Context, input UpdateInput) (*models.AccountingMatch, error)
	Approve(ctx context.Context, input ApproveInput) (*models.AccountingMatch, error)
	Reject(ctx context.Context, input RejectInput) (*models.AccountingMatch, error)
	Cancel(ctx context.Context, input CancelInput) (*models.AccountingMatch, error)
	RemainingForReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	locks  receiptLocker
}

// NewService builds a match lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, locks receiptLocker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("matches repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if locks == nil {
		return nil, fmt.Errorf("receipt locker required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, locks: locks}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.AccountingMatch, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	// The per-receipt lock makes the conservation check and the insert one
	// logical unit across workers.
	release, err := s.locks.LockReceipt(ctx, input.ReceiptID)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	approval := input.ApprovalStatus
	if approval == "" {
		approval = enums.ApprovalStatusPending
	}

	var created *models.AccountingMatch
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		receipt, err := repo.FindReceipt(ctx, input.ReceiptID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.CodeNotFound, "receipt not found")
			}
			return apperrors.Wrap(apperrors.CodeDependency, err, "load receipt")
		}

		active, err := repo.FindActiveByReceipt(ctx, input.ReceiptID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "load active matches")
		}
		remaining := RemainingAmount(receipt.TotalAmount, active)
		if input.Amount.GreaterThan(remaining) {
			return apperrors.New(apperrors.CodeInvalidMatch,
				fmt.Sprintf("matched amount %s exceeds remaining %s", input.Amount, remaining))
		}

		now := time.Now()
		match := &models.AccountingMatch{
			ID:              uuid.New(),
			ReceiptID:       input.ReceiptID,
			ErpLedgerID:     input.ErpLedgerID,
			AccountCode:     input.AccountCode,
			AccountName:     input.AccountName,
			CostCenter:      input.CostCenter,
			ProjectCode:     input.ProjectCode,
			MatchedAmount:   input.Amount,
			MatchStatus:     enums.MatchStatusMatched,
			MatchType:       input.MatchType,
			ApprovalStatus:  approval,
			ConfidenceScore: input.ConfidenceScore,
			MatchCriteria:   input.MatchCriteria,
			MatchReasons:    input.MatchReasons,
			Notes:           input.Notes,
			MatchedByID:     input.ActorID,
			MatchedAt:       &now,
			Version:         1,
		}
		created, err = repo.Create(ctx, match)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "create match")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeMatchCreated,
			AggregateType: enums.OutboxAggregateTypeMatch,
			AggregateID:   created.ID,
			Actor:         outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
			Data: payloads.MatchCreatedEvent{
				MatchID:         created.ID,
				ReceiptID:       created.ReceiptID,
				LedgerAccountID: created.ErpLedgerID,
				MatchedAmount:   created.MatchedAmount,
				MatchType:       created.MatchType.String(),
				ConfidenceScore: created.ConfidenceScore,
				MatchCriteria:   created.MatchCriteria,
				MatchedAt:       now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.AccountingMatch, error) {
	if input.MatchID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "match id required")
	}
	if input.AccountCode == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "account code required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "matched amount must be positive")
	}

	var updated *models.AccountingMatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		match, err := s.loadMatch(ctx, repo, input.MatchID)
		if err != nil {
			return err
		}
		if !isEditable(match) {
			return apperrors.New(apperrors.CodeInvalidMatch, "match can no longer be edited")
		}

		now := time.Now()
		updates := map[string]any{
			"account_code":   input.AccountCode,
			"account_name":   input.AccountName,
			"cost_center":    input.CostCenter,
			"matched_amount": input.Amount,
			"notes":          input.Notes,
			"matched_at":     now,
		}
		if err := s.applyUpdate(ctx, repo, match, updates); err != nil {
			return err
		}

		match.AccountCode = input.AccountCode
		match.AccountName = input.AccountName
		match.CostCenter = input.CostCenter
		match.MatchedAmount = input.Amount
		match.Notes = input.Notes
		match.MatchedAt = &now
		match.Version++
		updated = match

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeMatchUpdated,
			AggregateType: enums.OutboxAggregateTypeMatch,
			AggregateID:   match.ID,
			Actor:         outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
			Data: payloads.MatchUpdatedEvent{
				MatchID:         match.ID,
				ReceiptID:       match.ReceiptID,
				LedgerAccountID: &match.ErpLedgerID,
				MatchedAmount:   &match.MatchedAmount,
				Notes:           match.Notes,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*models.AccountingMatch, error) {
	if input.MatchID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "match id required")
	}
	if input.ApproverID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "approver id required")
	}

	var approved *models.AccountingMatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		match, err := s.loadMatch(ctx, repo, input.MatchID)
		if err != nil {
			return err
		}
		if !canApprove(match) {
			return apperrors.New(apperrors.CodeInvalidMatch, "match cannot be approved in its current state")
		}

		now := time.Now()
		updates := map[string]any{
			"approval_status": enums.ApprovalStatusApproved,
			"approved_by":     input.ApproverID,
			"approved_at":     now,
		}
		if err := s.applyUpdate(ctx, repo, match, updates); err != nil {
			return err
		}

		match.ApprovalStatus = enums.ApprovalStatusApproved
		match.ApprovedByID = &input.ApproverID
		match.ApprovedAt = &now
		match.Version++
		approved = match

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeMatchApproved,
			AggregateType: enums.OutboxAggregateTypeMatch,
			AggregateID:   match.ID,
			Actor:         outbox.ActorRef{UserID: input.ApproverID, Role: input.ActorRole},
			Data: payloads.MatchApprovedEvent{
				MatchID:         match.ID,
				ReceiptID:       match.ReceiptID,
				LedgerAccountID: match.ErpLedgerID,
				MatchedAmount:   match.MatchedAmount,
				ApprovedByID:    input.ApproverID,
				ApprovedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject is deliberately unconditional so erroneous auto-matches can always
// be rolled back, whatever state they reached.
func (s *service) Reject(ctx context.Context, input RejectInput) (*models.AccountingMatch, error) {
	if input.MatchID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "match id required")
	}
	if input.Reason == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "rejection reason required")
	}

	var rejected *models.AccountingMatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		match, err := s.loadMatch(ctx, repo, input.MatchID)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{
			"match_status":     enums.MatchStatusCancelled,
			"approval_status":  enums.ApprovalStatusRejected,
			"approved_by":      input.RejectedByID,
			"approved_at":      now,
			"rejection_reason": input.Reason,
		}
		if err := s.applyUpdate(ctx, repo, match, updates); err != nil {
			return err
		}

		match.MatchStatus = enums.MatchStatusCancelled
		match.ApprovalStatus = enums.ApprovalStatusRejected
		match.ApprovedByID = &input.RejectedByID
		match.ApprovedAt = &now
		match.RejectionReason = &input.Reason
		match.Version++
		rejected = match

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeMatchRejected,
			AggregateType: enums.OutboxAggregateTypeMatch,
			AggregateID:   match.ID,
			Actor:         outbox.ActorRef{UserID: input.RejectedByID, Role: input.ActorRole},
			Data: payloads.MatchRejectedEvent{
				MatchID:         match.ID,
				ReceiptID:       match.ReceiptID,
				RejectionReason: input.Reason,
				RejectedByID:    input.RejectedByID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Cancel is the terminal soft delete. Like Reject it has no state
// precondition.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.AccountingMatch, error) {
	if input.MatchID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "match id required")
	}

	var cancelled *models.AccountingMatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		match, err := s.loadMatch(ctx, repo, input.MatchID)
		if err != nil {
			return err
		}

		notes := appendCancellationNote(match.Notes, input.Reason)
		updates := map[string]any{
			"match_status": enums.MatchStatusCancelled,
			"notes":        notes,
		}
		if err := s.applyUpdate(ctx, repo, match, updates); err != nil {
			return err
		}

		match.MatchStatus = enums.MatchStatusCancelled
		match.Notes = &notes
		match.Version++
		cancelled = match

		reason := input.Reason
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeMatchCancelled,
			AggregateType: enums.OutboxAggregateTypeMatch,
			AggregateID:   match.ID,
			Actor:         outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
			Data: payloads.MatchCancelledEvent{
				MatchID:       match.ID,
				ReceiptID:     match.ReceiptID,
				MatchedAmount: match.MatchedAmount,
				Reason:        &reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) RemainingForReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error) {
	if receiptID == uuid.Nil {
		return decimal.Zero, apperrors.New(apperrors.CodeValidation, "receipt id required")
	}
	receipt, err := s.repo.FindReceipt(ctx, receiptID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, apperrors.New(apperrors.CodeNotFound, "receipt not found")
		}
		return decimal.Zero, apperrors.Wrap(apperrors.CodeDependency, err, "load receipt")
	}
	active, err := s.repo.FindActiveByReceipt(ctx, receiptID)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeDependency, err, "load active matches")
	}
	return RemainingAmount(receipt.TotalAmount, active), nil
}

func (s *service) loadMatch(ctx context.Context, repo Repository, id uuid.UUID) (*models.AccountingMatch, error) {
	match, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "match not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "load match")
	}
	return match, nil
}

func (s *service) applyUpdate(ctx context.Context, repo Repository, match *models.AccountingMatch, updates map[string]any) error {
	affected, err := repo.Update(ctx, match.ID, match.Version, updates)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "update match")
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeConflict, "match was modified concurrently")
	}
	return nil
}

func validateCreate(input CreateInput) error {
	if input.ReceiptID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "receipt id required")
	}
	if input.ErpLedgerID == "" {
		return apperrors.New(apperrors.CodeValidation, "erp ledger id required")
	}
	if input.AccountCode == "" {
		return apperrors.New(apperrors.CodeValidation, "account code required")
	}
	if !input.Amount.IsPositive() {
		return apperrors.New(apperrors.CodeValidation, "matched amount must be positive")
	}
	if !input.MatchType.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "invalid match type")
	}
	if input.ApprovalStatus != "" && !input.ApprovalStatus.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "invalid approval status")
	}
	if input.MatchType == enums.MatchTypeManual && input.ConfidenceScore != nil {
		return apperrors.New(apperrors.CodeValidation, "manual matches do not carry a confidence score")
	}
	if input.ConfidenceScore != nil && (*input.ConfidenceScore < 0 || *input.ConfidenceScore > 100) {
		return apperrors.New(apperrors.CodeValidation, "confidence score must be between 0 and 100")
	}
	if input.ActorID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "actor id required")
	}
	return nil
}

func isEditable(match *models.AccountingMatch) bool {
	return match.MatchStatus == enums.MatchStatusPending &&
		match.ApprovalStatus == enums.ApprovalStatusPending
}

func canApprove(match *models.AccountingMatch) bool {
	return match.MatchStatus == enums.MatchStatusMatched &&
		match.ApprovalStatus == enums.ApprovalStatusPending
}

func appendCancellationNote(notes *string, reason string) string {
	note := "Cancelled"
	if reason != "" {
		note = "Cancelled: " + reason
	}
	if notes == nil || *notes == "" {
		return note
	}
	return *notes + "\n" + note
}
