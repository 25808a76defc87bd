package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
)

func TestOutboxRetentionJobPurgesBeforeCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPurger{rows: 7}
	reg := prometheus.NewRegistry()
	job := newOutboxRetentionJob(t, repo, 72*time.Hour, metrics.NewMaintenanceMetrics(reg))
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-72*time.Hour), repo.cutoff)
	assert.Equal(t, 1, repo.calls)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var purged float64
	for _, mf := range mfs {
		if mf.GetName() == "maintenance_rows_purged_total" {
			purged = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(7), purged)
}

func TestOutboxRetentionJobWindowBounds(t *testing.T) {
	assert.Equal(t, defaultOutboxRetention, newOutboxRetentionJob(t, &fakeOutboxPurger{}, 0, nil).retention)
	assert.Equal(t, minOutboxRetention, newOutboxRetentionJob(t, &fakeOutboxPurger{}, time.Minute, nil).retention)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxPurger{err: errors.New("boom")}, 0, nil)
	assert.ErrorContains(t, job.Run(context.Background()), "boom")
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxPurger, retention time.Duration, m *metrics.MaintenanceMetrics) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		Metrics:    m,
		Retention:  retention,
	})
	require.NoError(t, err)
	return job.(*outboxRetentionJob)
}

type fakeOutboxPurger struct {
	cutoff time.Time
	calls  int
	rows   int64
	err    error
}

func (f *fakeOutboxPurger) DeleteFinishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.rows, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
