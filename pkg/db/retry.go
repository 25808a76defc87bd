package db

import (
	"context"
	"errors"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
)

const (
	defaultRetryBase   = 25 * time.Millisecond
	retryJitterPercent = 20
)

// SQLSTATE codes that signal transient contention on Postgres.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// RetryPolicy bounds how often a contended transaction is replayed.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.Base
	if base <= 0 {
		base = defaultRetryBase
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(retryJitterPercent, b)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// WithRetryTx runs fn in a fresh transaction, replaying the whole unit of work
// when the store reports a transient conflict. Domain rejections are returned
// on the first attempt.
func (c *Client) WithRetryTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	return retry.Do(ctx, c.retry.backoff(), func(ctx context.Context) error {
		attempt++
		err := c.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if c.onRetry != nil && attempt < c.retry.MaxAttempts {
			c.onRetry(attempt, err)
		}
		return retry.RetryableError(err)
	})
}

// IsRetryable reports whether err is transient store contention worth replaying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if typed := pkgerrors.As(err); typed != nil && pkgerrors.IsRejection(typed.Code()) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch pkgerrors.SQLState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		msg := strings.ToLower(cur.Error())
		if strings.Contains(msg, "database is locked") || strings.Contains(msg, "could not serialize access") {
			return true
		}
	}
	return false
}
