package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/pagination"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	SetItemDelivery(ctx context.Context, itemID uuid.UUID, data types.DeliveredData) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	ListAll(ctx context.Context, params pagination.Params, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error)
	MarkFulfilled(ctx context.Context, id uuid.UUID, data types.DeliveredData, note *string, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, note *string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order and its items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) SetItemDelivery(ctx context.Context, itemID uuid.UUID, data types.DeliveredData) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		UpdateColumn("delivered_data", data).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var items []models.OrderItem
	if err := orderItems(r.db.WithContext(ctx)).Where("order_id = ?", id).Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	return r.page(q, params)
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	return r.page(q, params)
}

// page returns newest orders first using a (created_at, id) keyset cursor.
func (r *repository) page(q *gorm.DB, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	q, limit, err := pagination.NewestFirst(q, params)
	if err != nil {
		return nil, nil, err
	}
	var rows []models.Order
	if err := q.Preload("Items", orderItems).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return rows, next, nil
}

// MarkFulfilled moves a pending order and its items to FULFILLED. It reports
// false when the order was no longer pending.
func (r *repository) MarkFulfilled(ctx context.Context, id uuid.UUID, data types.DeliveredData, note *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingFulfillment).
		Updates(map[string]any{
			"status":       enums.OrderStatusFulfilled,
			"admin_note":   note,
			"fulfilled_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", id).
		Updates(map[string]any{
			"delivered_data":  data,
			"delivery_status": enums.OrderStatusFulfilled,
		}).Error
	return err == nil, err
}

// MarkCancelled moves a pending order and its items to CANCELLED.
func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, note *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingFulfillment).
		Updates(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"admin_note":   note,
			"cancelled_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", id).
		Update("delivery_status", enums.OrderStatusCancelled).Error
	return err == nil, err
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
