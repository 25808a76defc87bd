package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// ProductReader is the slice of the catalog the stocking flow needs.
type ProductReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// StockInput adds one item per payload to a product pool. Without VariantID
// the items go to the variant a purchase without one would resolve to.
type StockInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Payloads  []types.JSONValue
}

// StockResult reports the pool size after stocking.
type StockResult struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Added     int       `json:"added"`
	Available int64     `json:"available"`
}

// Service is the admin stocking surface.
type Service interface {
	Stock(ctx context.Context, input StockInput) (*StockResult, error)
}

type service struct {
	repo     Repository
	products ProductReader
}

func NewService(repo Repository, products ProductReader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product reader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) Stock(ctx context.Context, input StockInput) (*StockResult, error) {
	payloads := make([]types.JSONValue, 0, len(input.Payloads))
	for i, p := range input.Payloads {
		if p.IsBlank() {
			continue
		}
		if !json.Valid(p) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload must be JSON").
				WithDetails(map[string]any{"index": i})
		}
		payloads = append(payloads, p)
	}
	if len(payloads) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload is required")
	}

	product, err := s.products.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Type != enums.ProductTypeInstant {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only instant products hold inventory")
	}
	variantID, err := poolVariant(product, input.VariantID)
	if err != nil {
		return nil, err
	}

	// one insert shares a timestamp; spread it so FIFO follows payload order
	stockedAt := time.Now().UTC()
	items := make([]models.InventoryItem, len(payloads))
	for i, payload := range payloads {
		items[i] = models.InventoryItem{
			ProductID: product.ID,
			VariantID: &variantID,
			Payload:   payload,
			CreatedAt: stockedAt.Add(time.Duration(i) * time.Microsecond),
		}
	}
	if err := s.repo.CreateItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory")
	}

	available, err := s.repo.CountAvailable(ctx, product.ID, &variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inventory")
	}
	return &StockResult{
		ProductID: product.ID,
		VariantID: variantID,
		Added:     len(items),
		Available: available,
	}, nil
}

// poolVariant picks the variant stock is filed under. Purchases always claim
// from a resolved variant, so stock is never stored without one.
func poolVariant(product *models.Product, requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil && *requested != uuid.Nil {
		for _, v := range product.Variants {
			if v.ID == *requested {
				return v.ID, nil
			}
		}
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}
	variant, err := catalog.ResolveVariant(product, nil)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no active variant to stock")
	}
	return variant.ID, nil
}
