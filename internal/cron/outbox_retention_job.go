package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	minOutboxRetention     = 24 * time.Hour
	outboxTable            = "email_outbox"
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPurger
	Metrics    *metrics.MaintenanceMetrics
	Retention  time.Duration
}

type outboxPurger interface {
	DeleteFinishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPurger
	metrics   *metrics.MaintenanceMetrics
	retention time.Duration
	now       func() time.Time
}

// NewOutboxRetentionJob purges sent and terminal emails older than the
// retention window. Pending rows are never touched, and windows under a day
// are raised to one so a mistyped setting cannot drop rows still in flight.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: max(retention, minOutboxRetention),
		now:       time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var purged int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = j.repo.DeleteFinishedBefore(tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("purge %s before %s: %w", outboxTable, cutoff.Format(time.RFC3339), err)
	}

	j.metrics.AddPurged(outboxTable, purged)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"purged": purged,
	}), "outbox.purged")
	return nil
}
