// Package dbtest opens migrated SQLite databases for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/migrate"
)

// Open returns a client over a fresh file-backed SQLite database with every
// migration applied. Writers take the database lock at BEGIN so concurrent
// transactions serialize the way row-locked Postgres transactions do.
func Open(t testing.TB) *db.Client {
	t.Helper()

	path := filepath.Join(t.TempDir(), "premiumcity.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=10000", path)

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.UpEmbedded(context.Background(), sqlDB, migrate.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db.NewFromConn(conn, db.RetryPolicy{MaxAttempts: 5, Base: 5 * time.Millisecond})
}
