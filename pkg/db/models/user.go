package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
)

// User is a storefront account. WalletBalance is only written by the ledger
// paths that also append a WalletTransaction.
type User struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email         string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash  string          `gorm:"column:password_hash;not null"`
	Name          string          `gorm:"column:name;not null"`
	Role          enums.UserRole  `gorm:"column:role;type:text;not null;default:customer"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
