package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/jihoon-choi/receiptlink-backend/internal/cardsync"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
)

const cardsyncWindowDays = 7

type cardSyncRunner interface {
	Run(ctx context.Context, from, to time.Time) (*cardsync.SyncReport, error)
}

type CardSyncJobParams struct {
	Logger     *logger.Logger
	Sync       cardSyncRunner
	WindowDays int
}

type cardSyncJob struct {
	logg       *logger.Logger
	sync       cardSyncRunner
	windowDays int
	now        func() time.Time
}

func NewCardSyncJob(params CardSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sync == nil {
		return nil, fmt.Errorf("card sync service required")
	}
	windowDays := params.WindowDays
	if windowDays <= 0 {
		windowDays = cardsyncWindowDays
	}
	return &cardSyncJob{
		logg:       params.Logger,
		sync:       params.Sync,
		windowDays: windowDays,
		now:        time.Now,
	}, nil
}

func (j *cardSyncJob) Name() string { return "cardsync" }

func (j *cardSyncJob) Run(ctx context.Context) error {
	to := j.now().UTC()
	from := to.AddDate(0, 0, -j.windowDays)

	report, err := j.sync.Run(ctx, from, to)
	if err != nil {
		return fmt.Errorf("card sync: %w", err)
	}
	if report.CardsFail > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "cards_fail", report.CardsFail), "card sync finished with failures")
	}
	return nil
}
