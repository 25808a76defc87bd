package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dialectPostgres = "postgres"

// SupportsRowLocks reports whether the session's dialect understands FOR UPDATE.
// SQLite serializes writers at the transaction level instead.
func SupportsRowLocks(tx *gorm.DB) bool {
	return tx != nil && tx.Dialector != nil && tx.Dialector.Name() == dialectPostgres
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if !SupportsRowLocks(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// ForUpdateSkipLocked locks the selected rows and skips rows already held by
// another transaction.
func ForUpdateSkipLocked(tx *gorm.DB) *gorm.DB {
	if !SupportsRowLocks(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{
		Strength: clause.LockingStrengthUpdate,
		Options:  clause.LockingOptionsSkipLocked,
	})
}
