package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/internal/automatch"
	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
)

type fakeBatchRunner struct {
	gotCfg automatch.Config
	report *automatch.Report
	err    error
}

func (f *fakeBatchRunner) Run(ctx context.Context, cfg automatch.Config) (*automatch.Report, error) {
	f.gotCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &automatch.Report{BatchID: uuid.New(), Status: automatch.BatchCompleted}, nil
}

func TestAutoMatchJobPassesMatchingConfig(t *testing.T) {
	runner := &fakeBatchRunner{}
	systemUser := uuid.New()
	job, err := NewAutoMatchJob(AutoMatchJobParams{
		Logger:       testLogger(),
		Orchestrator: runner,
		Matching: config.MatchingConfig{
			MinConfidenceScore: 85,
			RequireApproval:    true,
			Workers:            8,
			BatchReceiptCap:    500,
		},
		SystemUserID: systemUser,
		WindowDays:   14,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	job.(*autoMatchJob).now = func() time.Time {
		return time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}

	cfg := runner.gotCfg
	if cfg.MinConfidenceScore != 85 || !cfg.RequireApproval || cfg.Workers != 8 || cfg.ReceiptCap != 500 {
		t.Fatalf("matching config not propagated: %+v", cfg)
	}
	if cfg.InitiatorID != systemUser {
		t.Fatalf("expected system user initiator")
	}
	wantFrom := time.Date(2026, 8, 17, 6, 0, 0, 0, time.UTC)
	if !cfg.From.Equal(wantFrom) {
		t.Fatalf("expected window start %v, got %v", wantFrom, cfg.From)
	}
}

func TestAutoMatchJobSurfacesBatchError(t *testing.T) {
	runner := &fakeBatchRunner{err: errors.New("erp unreachable")}
	job, err := NewAutoMatchJob(AutoMatchJobParams{
		Logger:       testLogger(),
		Orchestrator: runner,
		SystemUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected batch error to surface")
	}
}

func TestNewAutoMatchJobValidatesDeps(t *testing.T) {
	if _, err := NewAutoMatchJob(AutoMatchJobParams{Orchestrator: &fakeBatchRunner{}, SystemUserID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewAutoMatchJob(AutoMatchJobParams{Logger: testLogger(), SystemUserID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing orchestrator")
	}
	if _, err := NewAutoMatchJob(AutoMatchJobParams{Logger: testLogger(), Orchestrator: &fakeBatchRunner{}}); err == nil {
		t.Fatal("expected error for missing system user")
	}
}
