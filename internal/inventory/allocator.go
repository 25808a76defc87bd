package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// ClaimRequest asks for Quantity units of one (product, variant) pool on behalf
// of an order item that already exists in the same transaction.
type ClaimRequest struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Quantity    int
	OrderItemID uuid.UUID
}

// Allocator hands out instant-delivery stock oldest first.
type Allocator struct {
	repo Repository
	now  func() time.Time
}

// NewAllocator builds an allocator over repo.
func NewAllocator(repo Repository) (*Allocator, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Allocator{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Claim assigns exactly req.Quantity items to req.OrderItemID or fails with
// INSUFFICIENT_STOCK. It must run inside the caller's transaction so that a
// failure rolls back every row it touched.
func (a *Allocator) Claim(ctx context.Context, tx *gorm.DB, req ClaimRequest) ([]models.InventoryItem, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if req.OrderItemID == uuid.Nil {
		return nil, fmt.Errorf("order item id required")
	}

	repo := a.repo.WithTx(tx)
	items, err := repo.LockAvailable(ctx, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	if len(items) < req.Quantity {
		return nil, insufficientStock(req.Quantity, len(items))
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	at := a.now()
	affected, err := repo.Assign(ctx, ids, req.OrderItemID, at)
	if err != nil {
		return nil, fmt.Errorf("assign inventory: %w", err)
	}
	if affected != int64(len(ids)) {
		return nil, insufficientStock(req.Quantity, int(affected))
	}

	for i := range items {
		items[i].OrderItemID = &req.OrderItemID
		items[i].AssignedAt = &at
	}
	return items, nil
}

// Payloads returns the delivered content of claimed items in claim order.
func Payloads(items []models.InventoryItem) []types.JSONValue {
	out := make([]types.JSONValue, len(items))
	for i, item := range items {
		out[i] = item.Payload
	}
	return out
}

func insufficientStock(requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for instant delivery").
		WithDetails(map[string]any{"requested": requested, "available": available})
}
