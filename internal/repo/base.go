package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
)

// Base is embedded by the storefront repositories. It carries the connection
// or transaction the repository is bound to.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the bound connection to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bind returns a copy issuing queries through tx; nil keeps the current binding.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// Locked selects with FOR UPDATE where the dialect supports row locks.
func (b Base) Locked(ctx context.Context) *gorm.DB {
	return db.ForUpdate(b.DB(ctx))
}

// Claimable selects with FOR UPDATE SKIP LOCKED where supported.
func (b Base) Claimable(ctx context.Context) *gorm.DB {
	return db.ForUpdateSkipLocked(b.DB(ctx))
}

// Touched converts a zero-row write into gorm.ErrRecordNotFound.
func Touched(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
