package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// WalletTransaction is an append-only ledger row.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Seq          int64                       `gorm:"column:seq;not null"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	Amount       decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Reference    *string                     `gorm:"column:reference"`
	Metadata     types.JSONMap               `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
}

func (w *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// TopupRequest is a customer claim of a bank transfer awaiting admin review.
type TopupRequest struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	BankName      string            `gorm:"column:bank_name;not null"`
	ReferenceHint string            `gorm:"column:reference_hint;not null"`
	Note          *string           `gorm:"column:note"`
	Status        enums.TopupStatus `gorm:"column:status;type:text;not null;default:PENDING;index"`
	AdminComment  *string           `gorm:"column:admin_comment"`
	ProcessedBy   *uuid.UUID        `gorm:"column:processed_by;type:uuid"`
	ProcessedAt   *time.Time        `gorm:"column:processed_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TopupRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// BankAccount is a destination customers transfer money to before a top-up.
type BankAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BankName      string    `gorm:"column:bank_name;not null"`
	AccountName   string    `gorm:"column:account_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	Instructions  *string   `gorm:"column:instructions"`
	IsActive      bool      `gorm:"column:is_active;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (b *BankAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
