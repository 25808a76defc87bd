package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/repo"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
)

// Repository reads the storefront catalog and backs the admin catalog writes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListActiveCategories(ctx context.Context) ([]CategorySummary, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*CategoryDetail, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	CreateProduct(ctx context.Context, product *models.Product) error
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	ClearDefaultVariant(ctx context.Context, productID uuid.UUID) error
	SetInStock(ctx context.Context, productID uuid.UUID, inStock bool) error
}

// CategorySummary is a category with the number of products a customer can buy.
type CategorySummary struct {
	models.Category
	ProductCount int64 `gorm:"column:product_count"`
}

// CategoryDetail is a category with its purchasable products.
type CategoryDetail struct {
	Category models.Category
	Products []models.Product
}

type repository struct {
	base repo.Base
}

// NewRepository returns a catalog repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Bind(tx)}
}

// FindProduct loads the product with every variant, lowest position first.
func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.base.DB(ctx).
		Preload("Variants", orderVariants).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductForUpdate locks the product row so variant writes for one
// product serialize.
func (r *repository) FindProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.base.Locked(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.base.DB(ctx).Scopes(orderVariants).
		Where("product_id = ?", id).
		Find(&product.Variants).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.base.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.base.DB(ctx).
		Preload("Variants", orderVariants).
		Where("slug = ?", slug).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListActiveCategories(ctx context.Context) ([]CategorySummary, error) {
	var rows []CategorySummary
	err := r.base.DB(ctx).
		Table("categories c").
		Select("c.*, COUNT(p.id) AS product_count").
		Joins("JOIN products p ON p.category_id = c.id AND p.status = ? AND p.is_in_stock = ?", enums.ProductStatusActive, true).
		Group("c.id").
		Order("c.position ASC").
		Order("c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCategoryBySlug returns ACTIVE products that have at least one active variant.
func (r *repository) FindCategoryBySlug(ctx context.Context, slug string) (*CategoryDetail, error) {
	var category models.Category
	if err := r.base.DB(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	if err := r.base.DB(ctx).
		Preload("Variants", "is_active = ?", true, orderVariants).
		Where("category_id = ? AND status = ?", category.ID, enums.ProductStatusActive).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}

	visible := products[:0]
	for _, product := range products {
		if len(product.Variants) > 0 {
			visible = append(visible, product)
		}
	}
	return &CategoryDetail{Category: category, Products: visible}, nil
}

func (r *repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.base.DB(ctx).Create(category).Error
}

// CreateProduct inserts the product together with its variants.
func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	sort.SliceStable(product.Variants, func(i, j int) bool {
		return product.Variants[i].Position < product.Variants[j].Position
	})
	return r.base.DB(ctx).Create(product).Error
}

func (r *repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.base.DB(ctx).Create(variant).Error
}

// ClearDefaultVariant unflags every default variant of the product.
func (r *repository) ClearDefaultVariant(ctx context.Context, productID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND is_default = ?", productID, true).
		Update("is_default", false).Error
}

func (r *repository) SetInStock(ctx context.Context, productID uuid.UUID, inStock bool) error {
	return repo.Touched(r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"is_in_stock": inStock, "updated_at": time.Now().UTC()}))
}

func orderVariants(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("created_at ASC")
}
