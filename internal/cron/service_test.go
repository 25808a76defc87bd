package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type signalJob chan struct{}

func (signalJob) Name() string { return "signal" }

func (s signalJob) Run(context.Context) error {
	s <- struct{}{}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "maintenance-test", Output: io.Discard})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(success, failure),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewMaintenanceMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.ErrorContains(t, err, "fail: boom")
	require.Equal(t, 1, success.runs)
	require.Equal(t, 1, failure.runs)
}

type releaseFailLock struct{ fakeLock }

func (releaseFailLock) Release(context.Context) error { return errors.New("redis gone") }

func TestServiceRunOnceReportsReleaseFailure(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: NewRegistry(job), Lock: &releaseFailLock{}})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.ErrorContains(t, err, "lock release: redis gone")
	require.Equal(t, 1, job.runs)
}

func TestServiceRunOnceStopsOnCanceledContext(t *testing.T) {
	first := &testJob{name: "first"}
	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: NewRegistry(first), Lock: &fakeLock{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, service.RunOnce(ctx), context.Canceled)
	require.Zero(t, first.runs)
}

func TestServiceRunReturnsWhenCanceled(t *testing.T) {
	ran := make(chan struct{}, 1)
	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: NewRegistry(signalJob(ran)), Lock: &fakeLock{}, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("first cycle did not run")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: true},
	})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	require.Zero(t, job.runs)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}
