package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/repo"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
)

// Repository persists instant-delivery stock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateItems(ctx context.Context, items []models.InventoryItem) error
	CountAvailable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int64, error)
	ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.InventoryItem, error)
	LockAvailable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, limit int) ([]models.InventoryItem, error)
	Assign(ctx context.Context, ids []uuid.UUID, orderItemID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an inventory repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Bind(tx)}
}

func (r *repository) CreateItems(ctx context.Context, items []models.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&items).Error
}

func (r *repository) CountAvailable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int64, error) {
	var count int64
	err := scopePool(r.base.DB(ctx).Model(&models.InventoryItem{}), productID, variantID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.base.DB(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// LockAvailable returns the oldest unassigned rows of the pool. On Postgres
// rows held by a concurrent claimer are skipped rather than waited on.
func (r *repository) LockAvailable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, limit int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := scopePool(r.base.Claimable(ctx), productID, variantID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Assign marks rows as consumed. Rows claimed since selection are left alone
// and show up as a short affected count.
func (r *repository) Assign(ctx context.Context, ids []uuid.UUID, orderItemID uuid.UUID, at time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.InventoryItem{}).
		Where("id IN ? AND order_item_id IS NULL", ids).
		Updates(map[string]any{
			"order_item_id": orderItemID,
			"assigned_at":   at,
		})
	return res.RowsAffected, res.Error
}

func scopePool(q *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) *gorm.DB {
	q = q.Where("product_id = ? AND order_item_id IS NULL", productID)
	if variantID == nil {
		return q.Where("variant_id IS NULL")
	}
	return q.Where("variant_id = ?", *variantID)
}
