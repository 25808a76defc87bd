package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/mailer"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultSendTimeout = 15 * time.Second
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	maxRetryDelay      = 30 * time.Minute
	retryBaseDelay     = 30 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchDueForSend(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.EmailOutbox, error)
	MarkSentTx(tx *gorm.DB, id uuid.UUID, sentAt time.Time) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, nextAttemptAt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Sender     mailer.Sender
	Metrics    *metrics.OutboxMetrics
	Now        func() time.Time
}

// Service drains the email outbox and hands each row to the mailer.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	sender       mailer.Sender
	metrics      *metrics.OutboxMetrics
	now          func() time.Time
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Sender == nil {
		return nil, errors.New("mail sender is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		sender:       params.Sender,
		metrics:      params.Metrics,
		now:          now,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "email worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "email worker batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchDueForSend(tx, s.batchSize, s.maxAttempts, s.now())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		processed = true
		for _, row := range rows {
			fields := s.rowFields(row)
			if err := s.deliver(ctx, row); err != nil {
				nextAttempt := row.AttemptCount + 1
				fields["attempt_count"] = nextAttempt
				logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())

				if errors.Is(err, mailer.ErrPermanent) || nextAttempt >= s.maxAttempts {
					s.logg.Warn(s.logg.WithField(logCtx, "terminal_reason", terminalReason(err)), "email will not be retried")
					s.metrics.IncFailed("terminal")
					if markErr := s.repo.MarkTerminalTx(tx, row.ID, err); markErr != nil {
						return fmt.Errorf("mark terminal %s: %w", row.ID, markErr)
					}
					continue
				}

				s.logg.Warn(logCtx, "email delivery failed")
				s.metrics.IncFailed("retry")
				if markErr := s.repo.MarkFailedTx(tx, row.ID, err, s.now().Add(retryDelay(nextAttempt))); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", row.ID, markErr)
				}
				continue
			}

			if markErr := s.repo.MarkSentTx(tx, row.ID, s.now()); markErr != nil {
				return fmt.Errorf("mark sent %s: %w", row.ID, markErr)
			}
			s.metrics.IncSent()
			s.logg.Info(s.logg.WithFields(ctx, fields), "email delivered")
		}
		return nil
	})
	if processed {
		s.metrics.ObserveBatch(time.Since(started))
	}
	return processed, err
}

func (s *Service) deliver(ctx context.Context, row models.EmailOutbox) error {
	sendCtx, cancel := context.WithTimeout(ctx, defaultSendTimeout)
	defer cancel()
	msg := mailer.Message{
		To:      row.Recipient,
		Subject: row.Subject,
		Text:    row.BodyText,
	}
	if row.BodyHTML != nil {
		msg.HTML = *row.BodyHTML
	}
	return s.sender.Send(sendCtx, msg)
}

func terminalReason(err error) string {
	if errors.Is(err, mailer.ErrPermanent) {
		return "permanent"
	}
	return "max_attempts"
}

func (s *Service) rowFields(row models.EmailOutbox) map[string]any {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"subject":       row.Subject,
		"batch_size":    s.batchSize,
		"attempt_count": row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryDelay spaces out redelivery of a single email: 30s, 1m, 2m and so on, capped.
func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
