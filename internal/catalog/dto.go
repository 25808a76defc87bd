package catalog

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	ProductCount int64     `json:"product_count"`
}

type CategoryDetailDTO struct {
	CategoryDTO
	Products []ProductDTO `json:"products"`
}

type VariantDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	IsDefault bool      `json:"is_default"`
}

type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Description *string             `json:"description,omitempty"`
	Type        enums.ProductType   `json:"type"`
	IsInStock   bool                `json:"is_in_stock"`
	InputSchema []types.ManualField `json:"input_schema,omitempty"`
	Variants    []VariantDTO        `json:"variants"`
}

func FromCategory(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
	}
}

// FromProduct exposes only active variants.
func FromProduct(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Type:        p.Type,
		IsInStock:   p.IsInStock,
		InputSchema: p.InputSchema,
		Variants:    []VariantDTO{},
	}
	for _, v := range p.Variants {
		if !v.IsActive {
			continue
		}
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:        v.ID,
			Name:      v.Name,
			Price:     money.Format(v.Price),
			IsDefault: v.IsDefault,
		})
	}
	return dto
}
