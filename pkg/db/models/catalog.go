package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// Category groups products on the storefront.
type Category struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	Position    int       `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product is a sellable item. Instant products deliver pre-stocked payloads,
// manual products are fulfilled by an admin.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID  *uuid.UUID          `gorm:"column:category_id;type:uuid;index"`
	Name        string              `gorm:"column:name;not null"`
	Slug        string              `gorm:"column:slug;not null;uniqueIndex"`
	Description *string             `gorm:"column:description"`
	Type        enums.ProductType   `gorm:"column:type;type:text;not null"`
	Status      enums.ProductStatus `gorm:"column:status;type:text;not null;default:ACTIVE"`
	IsInStock   bool                `gorm:"column:is_in_stock;not null"`
	InputSchema types.InputSchema   `gorm:"column:input_schema;type:jsonb"`
	Variants    []ProductVariant    `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Purchasable reports whether new orders may be placed for the product.
func (p Product) Purchasable() bool {
	return p.Status == enums.ProductStatusActive && p.IsInStock
}

// ProductVariant is one pricing option of a product.
type ProductVariant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsDefault bool            `gorm:"column:is_default;not null;default:false"`
	IsActive  bool            `gorm:"column:is_active;not null"`
	Position  int             `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// InventoryItem is one deliverable unit of an instant product. Once
// OrderItemID is set the item is consumed for good.
type InventoryItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index:idx_inventory_available,priority:1"`
	VariantID   *uuid.UUID      `gorm:"column:variant_id;type:uuid;index:idx_inventory_available,priority:2"`
	Payload     types.JSONValue `gorm:"column:payload;type:jsonb;not null"`
	OrderItemID *uuid.UUID      `gorm:"column:order_item_id;type:uuid;index"`
	AssignedAt  *time.Time      `gorm:"column:assigned_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_inventory_available,priority:3"`
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
