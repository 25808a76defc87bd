package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/internal/inventory"
	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// PurchaseInput is a customer's request to buy one product line with their wallet.
type PurchaseInput struct {
	UserID      uuid.UUID
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Quantity    int
	ManualInput types.ManualInput
}

type claimer interface {
	Claim(ctx context.Context, tx *gorm.DB, req inventory.ClaimRequest) ([]models.InventoryItem, error)
}

type orderAlerts interface {
	ManualOrderPlaced(ctx context.Context, order *models.Order, item *models.OrderItem)
}

// EngineParams wires the purchase engine.
type EngineParams struct {
	DB          db.TxRunner
	Users       users.Repository
	Products    catalog.Repository
	Orders      Repository
	Allocator   claimer
	Ledger      ledger.Service
	Alerts      orderAlerts
	Metrics     *metrics.ShopMetrics
	Logger      *logger.Logger
	MaxQuantity int
	Now         func() time.Time
}

// Engine places wallet-funded orders.
type Engine struct {
	db          db.TxRunner
	users       users.Repository
	products    catalog.Repository
	orders      Repository
	allocator   claimer
	ledger      ledger.Service
	alerts      orderAlerts
	metrics     *metrics.ShopMetrics
	logg        *logger.Logger
	maxQuantity int
	now         func() time.Time
}

func NewEngine(p EngineParams) (*Engine, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case p.Products == nil:
		return nil, fmt.Errorf("product reader required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Allocator == nil:
		return nil, fmt.Errorf("inventory allocator required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		db:          p.DB,
		users:       p.Users,
		products:    p.Products,
		orders:      p.Orders,
		allocator:   p.Allocator,
		ledger:      p.Ledger,
		alerts:      p.Alerts,
		metrics:     p.Metrics,
		logg:        p.Logger,
		maxQuantity: p.MaxQuantity,
		now:         now,
	}, nil
}

// NormalizeQuantity treats non-positive quantities as 1.
func NormalizeQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

// CreateOrder debits the wallet, records the order and the PURCHASE ledger row
// and, for instant products, assigns stock. Everything commits together or
// not at all; transient store conflicts replay the whole unit of work.
func (e *Engine) CreateOrder(ctx context.Context, input PurchaseInput) (*models.Order, error) {
	started := time.Now()
	quantity := NormalizeQuantity(input.Quantity)

	var (
		order *models.Order
		item  *models.OrderItem
	)
	err := e.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, item, err = e.purchase(ctx, tx, input, quantity)
		return err
	})
	if err != nil {
		e.recordFailure(ctx, input, err, started)
		return nil, err
	}

	e.metrics.IncOrderCreated(string(item.ProductType))
	e.metrics.ObservePurchase("committed", time.Since(started))
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      order.UserID.String(),
		"product_type": string(item.ProductType),
		"total":        money.Format(order.Total),
	}), "order.created")

	if item.ProductType == enums.ProductTypeManual && e.alerts != nil {
		e.alerts.ManualOrderPlaced(ctx, order, item)
	}
	return order, nil
}

func (e *Engine) purchase(ctx context.Context, tx *gorm.DB, input PurchaseInput, quantity int) (*models.Order, *models.OrderItem, error) {
	usersRepo := e.users.WithTx(tx)
	ordersRepo := e.orders.WithTx(tx)

	user, err := usersRepo.FindByIDForUpdate(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	product, err := e.products.WithTx(tx).FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product unavailable")
		}
		return nil, nil, fmt.Errorf("load product: %w", err)
	}
	if !product.Purchasable() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product unavailable")
	}

	variant, err := catalog.ResolveVariant(product, input.VariantID)
	if err != nil {
		return nil, nil, err
	}
	if e.maxQuantity > 0 && quantity > e.maxQuantity {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds limit").
			WithDetails(map[string]any{"max_quantity": e.maxQuantity})
	}

	unitPrice := money.Round(variant.Price)
	total := money.Times(unitPrice, quantity)

	if user.WalletBalance.LessThan(total) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").
			WithDetails(map[string]any{
				"balance":  money.Format(user.WalletBalance),
				"required": money.Format(total),
			})
	}

	if field, missing := product.InputSchema.MissingRequired(input.ManualInput); missing {
		return nil, nil, pkgerrors.New(pkgerrors.CodeMissingRequiredField, "missing required field: "+field.Label).
			WithDetails(map[string]any{"field": field.Label})
	}

	now := e.now()
	status := enums.OrderStatusPendingFulfillment
	if product.Type == enums.ProductTypeInstant {
		status = enums.OrderStatusFulfilled
	}

	item := models.OrderItem{
		ID:             uuid.New(),
		ProductID:      product.ID,
		VariantID:      &variant.ID,
		ProductName:    product.Name,
		VariantName:    variant.Name,
		ProductType:    product.Type,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		ManualInput:    manualInputFor(product.InputSchema, input.ManualInput),
		DeliveryStatus: status,
	}
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   NewOrderNumber(now),
		UserID:        user.ID,
		Status:        status,
		Total:         total,
		Currency:      enums.DefaultCurrency,
		PaymentMethod: enums.PaymentMethodWallet,
		Items:         []models.OrderItem{item},
	}
	if status == enums.OrderStatusFulfilled {
		order.FulfilledAt = &now
	}
	if err := ordersRepo.CreateOrder(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("create order: %w", err)
	}
	created := &order.Items[0]

	if product.Type == enums.ProductTypeInstant {
		claimed, err := e.allocator.Claim(ctx, tx, inventory.ClaimRequest{
			ProductID:   product.ID,
			VariantID:   &variant.ID,
			Quantity:    quantity,
			OrderItemID: created.ID,
		})
		if err != nil {
			return nil, nil, err
		}
		delivered := types.DeliveredData{Credentials: inventory.Payloads(claimed)}
		if err := ordersRepo.SetItemDelivery(ctx, created.ID, delivered); err != nil {
			return nil, nil, fmt.Errorf("store delivered data: %w", err)
		}
		created.DeliveredData = &delivered
	}

	balance, err := ledger.Apply(user.WalletBalance, total.Neg())
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance")
	}
	if err := usersRepo.UpdateWalletBalance(ctx, user.ID, balance); err != nil {
		return nil, nil, fmt.Errorf("debit wallet: %w", err)
	}

	reference := order.ID.String()
	if _, err := e.ledger.Record(ctx, tx, ledger.RecordInput{
		UserID:       user.ID,
		Type:         enums.WalletTransactionPurchase,
		Amount:       total.Neg(),
		BalanceAfter: balance,
		Reference:    &reference,
		Metadata: types.JSONMap{
			"productName": product.Name,
			"variantName": variant.Name,
			"quantity":    quantity,
		},
	}); err != nil {
		return nil, nil, fmt.Errorf("append ledger: %w", err)
	}

	return order, created, nil
}

func (e *Engine) recordFailure(ctx context.Context, input PurchaseInput, err error, started time.Time) {
	fields := map[string]any{
		"user_id":    input.UserID.String(),
		"product_id": input.ProductID.String(),
	}
	if typed := pkgerrors.As(err); typed != nil && pkgerrors.IsRejection(typed.Code()) {
		e.metrics.IncOrderRejected(string(typed.Code()))
		e.metrics.ObservePurchase("rejected", time.Since(started))
		fields["code"] = string(typed.Code())
		e.logg.Info(e.logg.WithFields(ctx, fields), "order.rejected")
		return
	}
	e.metrics.ObservePurchase("failed", time.Since(started))
	e.logg.Error(e.logg.WithFields(ctx, fields), "order.failed", err)
}

// manualInputFor keeps answers only for products that ask for input.
func manualInputFor(schema types.InputSchema, input types.ManualInput) types.ManualInput {
	if len(schema) == 0 {
		return nil
	}
	out := types.ManualInput{}
	for _, field := range schema {
		if v, ok := input[field.ID]; ok {
			out[field.ID] = strings.TrimSpace(v)
		}
	}
	return out
}

// NewOrderNumber returns a human readable, unique-enough order reference.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PC-%s-%s", at.UTC().Format("20060102"), suffix)
}
