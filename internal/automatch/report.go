package automatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

// OutcomeKind tags the per-receipt result variant.
type OutcomeKind string

const (
	OutcomeMatched   OutcomeKind = "matched"
	OutcomeUnmatched OutcomeKind = "unmatched"
	OutcomeFailed    OutcomeKind = "failed"
)

// Per-receipt failures still complete the batch; only a top-level failure
// (eligible set or candidate pool unavailable) marks it failed.
const (
	BatchCompleted = enums.BatchStatusCompleted
	BatchFailed    = enums.BatchStatusFailed
)

// Outcome records what happened to a single receipt in the batch. Exactly
// one variant applies: matched carries the winning candidate and score,
// unmatched carries the best rejected candidate's reasons, failed carries
// the error string.
type Outcome struct {
	ReceiptID       uuid.UUID
	ReceiptNumber   string
	Kind            OutcomeKind
	LedgerID        string
	ConfidenceScore float64
	MatchingRule    enums.MatchingRule
	MatchID         *uuid.UUID
	Reasons         []string
	Error           string
}

// Report is the aggregate result of one batch run.
type Report struct {
	BatchID    uuid.UUID
	Status     enums.BatchStatus
	Strategy   enums.MatchingStrategy
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	TotalEligible     int
	MatchedCount      int
	UnmatchedCount    int
	FailedCount       int
	AverageConfidence float64

	Outcomes []Outcome
	Errors   []string
}
