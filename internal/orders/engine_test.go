package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/internal/inventory"
	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/dbtest"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

type recordingAlerts struct {
	mu        sync.Mutex
	manual    []string
	delivered []string
	cancelled []string
}

func (r *recordingAlerts) ManualOrderPlaced(_ context.Context, order *models.Order, _ *models.OrderItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manual = append(r.manual, order.OrderNumber)
}

func (r *recordingAlerts) OrderDelivered(_ context.Context, user *models.User, _ *models.Order, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, user.Email)
}

func (r *recordingAlerts) OrderCancelled(_ context.Context, user *models.User, _ *models.Order, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, user.Email)
}

type harness struct {
	client    *db.Client
	engine    *Engine
	service   Service
	users     users.Repository
	ledger    ledger.Service
	inventory inventory.Repository
	alerts    *recordingAlerts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	usersRepo := users.NewRepository(conn)
	inventoryRepo := inventory.NewRepository(conn)
	allocator, err := inventory.NewAllocator(inventoryRepo)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	alerts := &recordingAlerts{}

	engine, err := NewEngine(EngineParams{
		DB:          client,
		Users:       usersRepo,
		Products:    catalog.NewRepository(conn),
		Orders:      NewRepository(conn),
		Allocator:   allocator,
		Ledger:      ledgerSvc,
		Alerts:      alerts,
		Logger:      logger.Nop(),
		MaxQuantity: 50,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		DB:     client,
		Orders: NewRepository(conn),
		Users:  usersRepo,
		Ledger: ledgerSvc,
		Alerts: alerts,
		Logger: logger.Nop(),
	})
	require.NoError(t, err)

	return &harness{
		client:    client,
		engine:    engine,
		service:   svc,
		users:     usersRepo,
		ledger:    ledgerSvc,
		inventory: inventoryRepo,
		alerts:    alerts,
	}
}

func codes(values ...string) []types.JSONValue {
	out := make([]types.JSONValue, len(values))
	for i, v := range values {
		out[i] = types.JSONString(v)
	}
	return out
}

func (h *harness) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	user, err := h.users.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return user.WalletBalance
}

// requireLedgerInSync checks stored balance == latest balance_after == replayed ledger.
func (h *harness) requireLedgerInSync(t *testing.T, userID uuid.UUID) {
	t.Helper()
	res, err := h.ledger.Reconcile(context.Background(), userID, h.balance(t, userID))
	require.NoError(t, err)
	require.True(t, res.InSync, "ledger drift: %+v", res)
}

func (h *harness) orderCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.client.DB().Model(&models.Order{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestCreateOrderInstantDebitsAndDelivers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "100.00")
	product, variant := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeInstant, Price: "40.00"})
	dbtest.SeedInventory(t, h.client, product.ID, variant.ID, "key-oldest", "key-middle", "key-newest")

	order, err := h.engine.CreateOrder(ctx, PurchaseInput{UserID: user.ID, ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusFulfilled, order.Status)
	require.Equal(t, "80.00", order.Total.StringFixed(2))
	require.Equal(t, codes("key-oldest", "key-middle"), order.Items[0].DeliveredData.Credentials)

	require.Equal(t, "20.00", h.balance(t, user.ID).StringFixed(2))

	rows, err := h.ledger.Recent(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	purchase := rows[0]
	require.Equal(t, enums.WalletTransactionPurchase, purchase.Type)
	require.Equal(t, "-80.00", purchase.Amount.StringFixed(2))
	require.Equal(t, "20.00", purchase.BalanceAfter.StringFixed(2))
	require.Equal(t, order.ID.String(), *purchase.Reference)
	require.Equal(t, product.Name, purchase.Metadata["productName"])

	stored, err := h.service.Get(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	require.Equal(t, codes("key-oldest", "key-middle"), stored.Items[0].DeliveredData.Credentials)

	left, err := h.inventory.CountAvailable(ctx, product.ID, &variant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, left)
	require.Empty(t, h.alerts.manual)
	h.requireLedgerInSync(t, user.ID)
}

func TestStockedObjectPayloadReachesBuyer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "50.00")
	product, variant := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeInstant, Price: "10.00"})

	stocker, err := inventory.NewService(h.inventory, catalog.NewRepository(h.client.DB()))
	require.NoError(t, err)
	stocked, err := stocker.Stock(ctx, inventory.StockInput{
		ProductID: product.ID,
		Payloads: []types.JSONValue{
			types.JSONValue(`{"username":"a","password":"b"}`),
			types.JSONString("k2"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, variant.ID, stocked.VariantID)
	require.EqualValues(t, 2, stocked.Available)

	order, err := h.engine.CreateOrder(ctx, PurchaseInput{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	stored, err := h.service.Get(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	require.Len(t, stored.Items[0].DeliveredData.Credentials, 1)
	require.JSONEq(t, `{"username":"a","password":"b"}`, string(stored.Items[0].DeliveredData.Credentials[0]))

	left, err := h.inventory.CountAvailable(ctx, product.ID, &variant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, left)
	h.requireLedgerInSync(t, user.ID)
}

func TestCreateOrderManualRequiresFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "50.00")
	schema := types.InputSchema{
		{ID: "email", Label: "Account email", Required: true},
		{ID: "notes", Label: "Notes"},
	}
	product, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "15.00", Schema: schema})

	_, err := h.engine.CreateOrder(ctx, PurchaseInput{
		UserID:      user.ID,
		ProductID:   product.ID,
		Quantity:    1,
		ManualInput: types.ManualInput{"email": "   "},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeMissingRequiredField))
	require.Equal(t, map[string]any{"field": "Account email"}, pkgerrors.As(err).Details())
	require.Equal(t, "50.00", h.balance(t, user.ID).StringFixed(2))
	require.Zero(t, h.orderCount(t, user.ID))

	order, err := h.engine.CreateOrder(ctx, PurchaseInput{
		UserID:      user.ID,
		ProductID:   product.ID,
		Quantity:    1,
		ManualInput: types.ManualInput{"email": " buyer@example.com ", "ignored": "x"},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPendingFulfillment, order.Status)
	require.Equal(t, types.ManualInput{"email": "buyer@example.com"}, order.Items[0].ManualInput)
	require.Equal(t, []string{order.OrderNumber}, h.alerts.manual)
	require.Equal(t, "35.00", h.balance(t, user.ID).StringFixed(2))
	h.requireLedgerInSync(t, user.ID)
}

func TestCreateOrderRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "10.00")
	cheap, cheapVariant := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeInstant, Price: "4.00"})
	dbtest.SeedInventory(t, h.client, cheap.ID, cheapVariant.ID, "one")
	pricey, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "10.01"})
	inactive, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "1.00", Status: enums.ProductStatusInactive})
	outOfStock, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "1.00", OutOfStock: true})

	noVariant := &models.Product{Name: "Bare", Slug: "bare-" + uuid.NewString()[:6], Type: enums.ProductTypeManual, Status: enums.ProductStatusActive, IsInStock: true}
	require.NoError(t, h.client.DB().Create(noVariant).Error)

	tests := []struct {
		name  string
		input PurchaseInput
		code  pkgerrors.Code
	}{
		{"unknown user", PurchaseInput{UserID: uuid.New(), ProductID: cheap.ID}, pkgerrors.CodeUserNotFound},
		{"unknown user over quantity limit", PurchaseInput{UserID: uuid.New(), ProductID: cheap.ID, Quantity: 51}, pkgerrors.CodeUserNotFound},
		{"unknown product over quantity limit", PurchaseInput{UserID: user.ID, ProductID: uuid.New(), Quantity: 51}, pkgerrors.CodeProductUnavailable},
		{"no variant over quantity limit", PurchaseInput{UserID: user.ID, ProductID: noVariant.ID, Quantity: 51}, pkgerrors.CodeNoPricingOption},
		{"over quantity limit", PurchaseInput{UserID: user.ID, ProductID: cheap.ID, Quantity: 51}, pkgerrors.CodeValidation},
		{"unknown product", PurchaseInput{UserID: user.ID, ProductID: uuid.New()}, pkgerrors.CodeProductUnavailable},
		{"inactive product", PurchaseInput{UserID: user.ID, ProductID: inactive.ID}, pkgerrors.CodeProductUnavailable},
		{"out of stock flag", PurchaseInput{UserID: user.ID, ProductID: outOfStock.ID}, pkgerrors.CodeProductUnavailable},
		{"no variant", PurchaseInput{UserID: user.ID, ProductID: noVariant.ID}, pkgerrors.CodeNoPricingOption},
		{"insufficient funds", PurchaseInput{UserID: user.ID, ProductID: pricey.ID, Quantity: 1}, pkgerrors.CodeInsufficientFunds},
		{"insufficient stock", PurchaseInput{UserID: user.ID, ProductID: cheap.ID, Quantity: 2}, pkgerrors.CodeInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.CreateOrder(ctx, tt.input)
			require.True(t, pkgerrors.Is(err, tt.code), "got %v", err)
		})
	}

	require.Equal(t, "10.00", h.balance(t, user.ID).StringFixed(2))
	require.Zero(t, h.orderCount(t, user.ID))
	left, err := h.inventory.CountAvailable(ctx, cheap.ID, &cheapVariant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, left)
	h.requireLedgerInSync(t, user.ID)
}

func TestCreateOrderClampsQuantity(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.client, "10.00")
	product, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "3.00"})

	order, err := h.engine.CreateOrder(context.Background(), PurchaseInput{UserID: user.ID, ProductID: product.ID, Quantity: -4})
	require.NoError(t, err)
	require.Equal(t, 1, order.Items[0].Quantity)
	require.Equal(t, "3.00", order.Total.StringFixed(2))

	_, err = h.engine.CreateOrder(context.Background(), PurchaseInput{UserID: user.ID, ProductID: product.ID, Quantity: 51})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	require.Equal(t, map[string]any{"max_quantity": 50}, pkgerrors.As(err).Details())
}

func TestCreateOrderDecimalPrecision(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.client, "1.00")
	product, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "0.10"})

	for i := 0; i < 10; i++ {
		_, err := h.engine.CreateOrder(context.Background(), PurchaseInput{UserID: user.ID, ProductID: product.ID, Quantity: 1})
		require.NoError(t, err)
	}
	require.True(t, h.balance(t, user.ID).IsZero())
	h.requireLedgerInSync(t, user.ID)
}

func TestLastItemGoesToExactlyOneBuyer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product, variant := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeInstant, Price: "5.00"})
	dbtest.SeedInventory(t, h.client, product.ID, variant.ID, "the-last-key")
	buyers := []*models.User{
		dbtest.SeedUser(t, h.client, "20.00"),
		dbtest.SeedUser(t, h.client, "20.00"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer *models.User) {
			defer wg.Done()
			_, errs[i] = h.engine.CreateOrder(ctx, PurchaseInput{UserID: buyer.ID, ProductID: product.ID, Quantity: 1})
		}(i, buyer)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			require.Equal(t, "15.00", h.balance(t, buyers[i].ID).StringFixed(2))
			continue
		}
		require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock), "got %v", err)
		require.Equal(t, "20.00", h.balance(t, buyers[i].ID).StringFixed(2))
	}
	require.Equal(t, 1, succeeded)
	for _, buyer := range buyers {
		h.requireLedgerInSync(t, buyer.ID)
	}
}

func TestConcurrentPurchasesNeverOverspend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "100.00")
	product, _ := dbtest.SeedProduct(t, h.client, dbtest.ProductSeed{Type: enums.ProductTypeManual, Price: "30.00"})

	const attempts = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.CreateOrder(ctx, PurchaseInput{UserID: user.ID, ProductID: product.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if pkgerrors.Is(err, pkgerrors.CodeInsufficientFunds) {
				rejected++
				return
			}
			t.Errorf("unexpected error: %v", err)
		}()
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	require.Equal(t, attempts-3, rejected)
	require.Equal(t, "10.00", h.balance(t, user.ID).StringFixed(2))
	require.EqualValues(t, 3, h.orderCount(t, user.ID))
	h.requireLedgerInSync(t, user.ID)
}
