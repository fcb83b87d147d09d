package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/internal/automatch"
	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
)

const automatchWindowDays = 31

type batchRunner interface {
	Run(ctx context.Context, cfg automatch.Config) (*automatch.Report, error)
}

type AutoMatchJobParams struct {
	Logger       *logger.Logger
	Orchestrator batchRunner
	Matching     config.MatchingConfig
	// SystemUserID is recorded as the initiator on scheduled matches.
	SystemUserID uuid.UUID
	WindowDays   int
}

type autoMatchJob struct {
	logg         *logger.Logger
	orchestrator batchRunner
	matching     config.MatchingConfig
	systemUserID uuid.UUID
	windowDays   int
	now          func() time.Time
}

func NewAutoMatchJob(params AutoMatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	if params.SystemUserID == uuid.Nil {
		return nil, fmt.Errorf("system user id required")
	}
	windowDays := params.WindowDays
	if windowDays <= 0 {
		windowDays = automatchWindowDays
	}
	return &autoMatchJob{
		logg:         params.Logger,
		orchestrator: params.Orchestrator,
		matching:     params.Matching,
		systemUserID: params.SystemUserID,
		windowDays:   windowDays,
		now:          time.Now,
	}, nil
}

func (j *autoMatchJob) Name() string { return "automatch" }

func (j *autoMatchJob) Run(ctx context.Context) error {
	to := j.now().UTC()
	from := to.AddDate(0, 0, -j.windowDays)

	report, err := j.orchestrator.Run(ctx, automatch.Config{
		From:               from,
		To:                 to,
		MinConfidenceScore: j.matching.MinConfidenceScore,
		RequireApproval:    j.matching.RequireApproval,
		Workers:            j.matching.Workers,
		ReceiptCap:         j.matching.BatchReceiptCap,
		InitiatorID:        j.systemUserID,
	})
	if err != nil {
		return fmt.Errorf("automatch batch: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"batch_id":  report.BatchID.String(),
		"eligible":  report.TotalEligible,
		"matched":   report.MatchedCount,
		"unmatched": report.UnmatchedCount,
		"failed":    report.FailedCount,
	}), "scheduled automatch batch finished")
	return nil
}
