package dbtest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// StatementRecorder collects the SQL gorm renders.
type StatementRecorder struct {
	mu         sync.Mutex
	statements []string
}

func (r *StatementRecorder) LogMode(gormlogger.LogLevel) gormlogger.Interface { return r }
func (r *StatementRecorder) Info(context.Context, string, ...any)             {}
func (r *StatementRecorder) Warn(context.Context, string, ...any)             {}
func (r *StatementRecorder) Error(context.Context, string, ...any)            {}

func (r *StatementRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, sql)
}

// Statements returns everything rendered so far.
func (r *StatementRecorder) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statements...)
}

// Last returns the most recent statement containing substr.
func (r *StatementRecorder) Last(substr string) string {
	statements := r.Statements()
	for i := len(statements) - 1; i >= 0; i-- {
		if strings.Contains(statements[i], substr) {
			return statements[i]
		}
	}
	return ""
}

// DryRunPostgres returns a session with the postgres dialect that renders
// statements without executing them, so no server is needed.
func DryRunPostgres(t testing.TB) (*gorm.DB, *StatementRecorder) {
	t.Helper()
	recorder := &StatementRecorder{}
	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=premiumcity dbname=premiumcity sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               recorder,
	})
	if err != nil {
		t.Fatalf("open dry-run postgres: %v", err)
	}
	return conn, recorder
}
