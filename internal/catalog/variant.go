package catalog

import (
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
)

// ResolveVariant picks the pricing option for a purchase: the requested variant
// when it belongs to the product and is active, else the active default, else
// the active variant with the lowest position.
func ResolveVariant(product *models.Product, variantID *uuid.UUID) (*models.ProductVariant, error) {
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoPricingOption, "no pricing option selected")
	}

	active := make([]models.ProductVariant, 0, len(product.Variants))
	for _, v := range product.Variants {
		if v.IsActive && v.ProductID == product.ID {
			active = append(active, v)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Position < active[j].Position
	})

	if variantID != nil && *variantID != uuid.Nil {
		for i := range active {
			if active[i].ID == *variantID {
				return &active[i], nil
			}
		}
	}
	for i := range active {
		if active[i].IsDefault {
			return &active[i], nil
		}
	}
	if len(active) > 0 {
		return &active[0], nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNoPricingOption, "no pricing option selected")
}
