package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// AdminService maintains categories, products and their pricing options.
type AdminService interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	CreateVariant(ctx context.Context, input CreateVariantInput) (*VariantDTO, error)
	SetInStock(ctx context.Context, productID uuid.UUID, inStock bool) (*ProductDTO, error)
}

type CreateCategoryInput struct {
	Name        string
	Description string
	Position    int
}

// CreateProductInput registers a product. Variants are added separately.
type CreateProductInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description string
	Type        enums.ProductType
	InputSchema types.InputSchema
	IsInStock   bool
}

// CreateVariantInput adds a pricing option. A default variant replaces the
// product's previous default. Position nil appends after the last variant.
type CreateVariantInput struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	IsDefault bool
	Position  *int
}

type adminService struct {
	db   db.TxRunner
	repo Repository
	logg *logger.Logger
}

func NewAdminService(runner db.TxRunner, repo Repository, logg *logger.Logger) (AdminService, error) {
	switch {
	case runner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	case logg == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &adminService{db: runner, repo: repo, logg: logg}, nil
}

func (s *adminService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	slug := Slugify(name)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: optional(input.Description),
		Position:    input.Position,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, slugConflictOr(err, "create category")
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", category.ID.String()), "catalog.category_created")
	dto := FromCategory(*category)
	return &dto, nil
}

func (s *adminService) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	slug := Slugify(name)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product type must be INSTANT or MANUAL")
	}
	if err := checkSchema(input.InputSchema); err != nil {
		return nil, err
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if _, err := s.repo.FindCategory(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	categoryID := input.CategoryID
	product := &models.Product{
		CategoryID:  &categoryID,
		Name:        name,
		Slug:        slug,
		Description: optional(input.Description),
		Type:        input.Type,
		Status:      enums.ProductStatusActive,
		IsInStock:   input.IsInStock,
	}
	if len(input.InputSchema) > 0 {
		product.InputSchema = input.InputSchema
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, slugConflictOr(err, "create product")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": product.ID.String(),
		"type":       string(product.Type),
	}), "catalog.product_created")
	dto := FromProduct(product)
	return &dto, nil
}

func (s *adminService) CreateVariant(ctx context.Context, input CreateVariantInput) (*VariantDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
	}
	price := money.Round(input.Price)
	if !price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Position != nil && *input.Position < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position cannot be negative")
	}

	var variant *models.ProductVariant
	err := s.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductForUpdate(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if input.IsDefault {
			if err := repo.ClearDefaultVariant(ctx, product.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default variant")
			}
		}
		variant = &models.ProductVariant{
			ProductID: product.ID,
			Name:      name,
			Price:     price,
			IsDefault: input.IsDefault,
			IsActive:  true,
			Position:  nextPosition(product.Variants, input.Position),
		}
		if err := repo.CreateVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": variant.ProductID.String(),
		"variant_id": variant.ID.String(),
		"is_default": variant.IsDefault,
	}), "catalog.variant_created")
	return &VariantDTO{
		ID:        variant.ID,
		Name:      variant.Name,
		Price:     money.Format(variant.Price),
		IsDefault: variant.IsDefault,
	}, nil
}

// SetInStock flips the storefront availability flag. Stocked inventory is
// left as it is.
func (s *adminService) SetInStock(ctx context.Context, productID uuid.UUID, inStock bool) (*ProductDTO, error) {
	if err := s.repo.SetInStock(ctx, productID, inStock); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id":  productID.String(),
		"is_in_stock": inStock,
	}), "catalog.stock_toggled")
	dto := FromProduct(product)
	return &dto, nil
}

func checkSchema(schema types.InputSchema) error {
	seen := make(map[string]struct{}, len(schema))
	for i, field := range schema {
		id := strings.TrimSpace(field.ID)
		if id == "" || strings.TrimSpace(field.Label) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "input field needs an id and a label").
				WithDetails(map[string]any{"index": i})
		}
		if _, dup := seen[id]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate input field id").
				WithDetails(map[string]any{"field": id})
		}
		seen[id] = struct{}{}
	}
	return nil
}

func nextPosition(existing []models.ProductVariant, requested *int) int {
	if requested != nil {
		return *requested
	}
	next := 0
	for _, v := range existing {
		if v.Position >= next {
			next = v.Position + 1
		}
	}
	return next
}

func slugConflictOr(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Slugify lower-cases name into a hyphenated URL slug.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
