package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/mailer"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		rows: []models.EmailOutbox{
			{ID: uuid.New(), Recipient: "a@x.io", Subject: "first", BodyText: "1"},
			{ID: uuid.New(), Recipient: "b@x.io", Subject: "second", BodyText: "2"},
		},
	}
	sender := &fakeSender{errs: []error{errors.New("connection reset"), nil}}
	service := newTestService(t, repo, sender, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.rows[0].ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.sent) != 1 || repo.sent[0] != repo.rows[1].ID {
		t.Fatalf("expected second row marked sent, got %v", repo.sent)
	}
	if want := fixedNow.Add(retryBaseDelay); !repo.nextAttempt[0].Equal(want) {
		t.Fatalf("expected next attempt %s, got %s", want, repo.nextAttempt[0])
	}
}

func TestServiceProcessBatchTerminalOnPermanentError(t *testing.T) {
	repo := &fakeRepo{rows: []models.EmailOutbox{{ID: uuid.New(), Recipient: "x@y.z", Subject: "s"}}}
	sender := &fakeSender{errs: []error{fmt.Errorf("%w: bad address", mailer.ErrPermanent)}}
	service := newTestService(t, repo, sender, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal row, got %d", len(repo.terminal))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("permanent errors must not be retried")
	}
}

func TestServiceProcessBatchTerminalOnMaxAttempts(t *testing.T) {
	repo := &fakeRepo{rows: []models.EmailOutbox{{ID: uuid.New(), Recipient: "x@y.z", Subject: "s", AttemptCount: 1}}}
	sender := &fakeSender{errs: []error{errors.New("503 from upstream")}}
	service := newTestService(t, repo, sender, &config.OutboxConfig{BatchSize: 1, PollIntervalMS: 100, MaxAttempts: 2})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal row after max attempts, got %d", len(repo.terminal))
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeSender{}, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	if got := retryDelay(1); got != retryBaseDelay {
		t.Fatalf("unexpected first delay %s", got)
	}
	if got := retryDelay(3); got != 4*retryBaseDelay {
		t.Fatalf("unexpected third delay %s", got)
	}
	if got := retryDelay(50); got != maxRetryDelay {
		t.Fatalf("expected cap, got %s", got)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without config")
	}
	_, err := NewService(ServiceParams{Config: &config.Config{}, Logger: logger.Nop(), DB: &fakeDB{}, Repository: &fakeRepo{}})
	if err == nil {
		t.Fatal("expected error without sender")
	}
}

func newTestService(t *testing.T, repo outboxRepository, sender mailer.Sender, override *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	service, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: outboxCfg},
		Logger:     logger.Nop(),
		DB:         &fakeDB{},
		Repository: repo,
		Sender:     sender,
		Now:        func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

type fakeRepo struct {
	rows        []models.EmailOutbox
	sent        []uuid.UUID
	failed      []uuid.UUID
	nextAttempt []time.Time
	terminal    []uuid.UUID
}

func (f *fakeRepo) FetchDueForSend(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.EmailOutbox, error) {
	return f.rows, nil
}

func (f *fakeRepo) MarkSentTx(tx *gorm.DB, id uuid.UUID, sentAt time.Time) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, nextAttemptAt time.Time) error {
	f.failed = append(f.failed, id)
	f.nextAttempt = append(f.nextAttempt, nextAttemptAt)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakeSender struct {
	errs []error
	sent []mailer.Message
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}
