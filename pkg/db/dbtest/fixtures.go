package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// SeedUser inserts a customer holding balance. The opening balance is backed by
// a TOPUP ledger row so ledger folds match the stored balance.
func SeedUser(t testing.TB, client *db.Client, balance string) *models.User {
	t.Helper()
	amount := decimal.RequireFromString(balance)
	user := &models.User{
		Email:         fmt.Sprintf("%s@premiumcity.test", uuid.NewString()[:8]),
		PasswordHash:  "hash",
		Name:          "Test Customer",
		Role:          enums.UserRoleCustomer,
		WalletBalance: amount,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if amount.IsPositive() {
		entry := &models.WalletTransaction{
			UserID:       user.ID,
			Seq:          1,
			Type:         enums.WalletTransactionTopup,
			Amount:       amount,
			BalanceAfter: amount,
		}
		if err := client.DB().Create(entry).Error; err != nil {
			t.Fatalf("seed opening balance: %v", err)
		}
	}
	return user
}

// SeedAdmin inserts an admin account.
func SeedAdmin(t testing.TB, client *db.Client) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("admin-%s@premiumcity.test", uuid.NewString()[:8]),
		PasswordHash: "hash",
		Name:         "Test Admin",
		Role:         enums.UserRoleAdmin,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return user
}

// ProductSeed describes a product with a single active default variant.
type ProductSeed struct {
	Type   enums.ProductType
	Price  string
	Schema types.InputSchema
	Status enums.ProductStatus
	// OutOfStock flips is_in_stock off.
	OutOfStock bool
}

// SeedProduct inserts a product and its default variant.
func SeedProduct(t testing.TB, client *db.Client, seed ProductSeed) (*models.Product, *models.ProductVariant) {
	t.Helper()
	status := seed.Status
	if status == "" {
		status = enums.ProductStatusActive
	}
	slug := "product-" + uuid.NewString()[:8]
	product := &models.Product{
		Name:        "Product " + slug,
		Slug:        slug,
		Type:        seed.Type,
		Status:      status,
		IsInStock:   !seed.OutOfStock,
		InputSchema: seed.Schema,
	}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := &models.ProductVariant{
		ProductID: product.ID,
		Name:      "Standard",
		Price:     decimal.RequireFromString(seed.Price),
		IsDefault: true,
		IsActive:  true,
	}
	if err := client.DB().Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	product.Variants = []models.ProductVariant{*variant}
	return product, variant
}

// SeedInventory stocks one unassigned item per code, stored as a JSON string,
// oldest first.
func SeedInventory(t testing.TB, client *db.Client, productID, variantID uuid.UUID, codes ...string) []models.InventoryItem {
	t.Helper()
	items := make([]models.InventoryItem, 0, len(codes))
	for _, code := range codes {
		vid := variantID
		item := models.InventoryItem{
			ProductID: productID,
			VariantID: &vid,
			Payload:   types.JSONString(code),
		}
		if err := client.DB().Create(&item).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
		items = append(items, item)
	}
	return items
}
