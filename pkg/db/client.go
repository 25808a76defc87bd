package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
)

// Client owns the storefront's GORM connection pool and runs units of work
// against it.
type Client struct {
	conn    *gorm.DB
	retry   RetryPolicy
	onRetry func(attempt int, err error)
}

// Pinger is the readiness check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxRunner executes a unit of work inside a single transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithRetryTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// New opens the configured driver, sizes the pool and routes slow or failing
// statements to logg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	conn, err := gorm.Open(dialectorFor(cfg), &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logg.Info(logg.WithField(ctx, "driver", conn.Dialector.Name()), "database connection established")
	return NewFromConn(conn, RetryPolicy{MaxAttempts: cfg.TxMaxAttempts, Base: cfg.TxRetryBase}), nil
}

func dialectorFor(cfg config.DBConfig) gorm.Dialector {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.DSN)
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
}

// NewFromConn wraps an already opened connection, as tests do with sqlite.
func NewFromConn(conn *gorm.DB, policy RetryPolicy) *Client {
	return &Client{conn: conn, retry: policy}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// OnRetry registers a callback invoked before each transaction replay.
func (c *Client) OnRetry(fn func(attempt int, err error)) {
	c.onRetry = fn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in one transaction. An error or panic from fn rolls back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
