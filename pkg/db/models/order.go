package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// Order is a wallet-paid purchase of a single product line.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:USD"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:WALLET"`
	AdminNote     *string             `gorm:"column:admin_note"`
	FulfilledAt   *time.Time          `gorm:"column:fulfilled_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the product and price the customer paid for.
type OrderItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	ProductName    string               `gorm:"column:product_name;not null"`
	VariantName    string               `gorm:"column:variant_name;not null"`
	ProductType    enums.ProductType    `gorm:"column:product_type;type:text;not null"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	ManualInput    types.ManualInput    `gorm:"column:manual_input;type:jsonb"`
	DeliveredData  *types.DeliveredData `gorm:"column:delivered_data;type:jsonb"`
	DeliveryStatus enums.OrderStatus    `gorm:"column:delivery_status;type:text;not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
