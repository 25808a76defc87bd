package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/premiumcity-backend/api/middleware"
	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/internal/inventory"
	"github.com/angelmondragon/premiumcity-backend/internal/orders"
	"github.com/angelmondragon/premiumcity-backend/internal/wallet"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/pagination"
)

type stubOrderPlacer struct {
	createFn func(ctx context.Context, input orders.PurchaseInput) (*models.Order, error)
}

func (s stubOrderPlacer) CreateOrder(ctx context.Context, input orders.PurchaseInput) (*models.Order, error) {
	return s.createFn(ctx, input)
}

type stubOrdersService struct {
	orders.Service
	listFn    func(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*orders.ListResult, error)
	getFn     func(ctx context.Context, orderID, viewer uuid.UUID, isAdmin bool) (*orders.OrderDTO, error)
	cancelFn  func(ctx context.Context, input orders.CancelInput) (*orders.OrderDTO, error)
	deliverFn func(ctx context.Context, input orders.DeliverInput) (*orders.OrderDTO, error)
}

func (s stubOrdersService) DeliverManual(ctx context.Context, input orders.DeliverInput) (*orders.OrderDTO, error) {
	return s.deliverFn(ctx, input)
}

func (s stubOrdersService) ListForAdmin(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*orders.ListResult, error) {
	return s.listFn(ctx, params, status)
}

func (s stubOrdersService) Get(ctx context.Context, orderID, viewer uuid.UUID, isAdmin bool) (*orders.OrderDTO, error) {
	return s.getFn(ctx, orderID, viewer, isAdmin)
}

func (s stubOrdersService) Cancel(ctx context.Context, input orders.CancelInput) (*orders.OrderDTO, error) {
	return s.cancelFn(ctx, input)
}

type stubWalletService struct {
	wallet.Service
	submitFn  func(ctx context.Context, input wallet.SubmitTopupInput) (*models.TopupRequest, error)
	approveFn func(ctx context.Context, topupID, adminID uuid.UUID) (*models.User, error)
	rejectFn  func(ctx context.Context, topupID, adminID uuid.UUID, comment string) (*models.TopupRequest, error)
}

func (s stubWalletService) Submit(ctx context.Context, input wallet.SubmitTopupInput) (*models.TopupRequest, error) {
	return s.submitFn(ctx, input)
}

func (s stubWalletService) Approve(ctx context.Context, topupID, adminID uuid.UUID) (*models.User, error) {
	return s.approveFn(ctx, topupID, adminID)
}

func (s stubWalletService) Reject(ctx context.Context, topupID, adminID uuid.UUID, comment string) (*models.TopupRequest, error) {
	return s.rejectFn(ctx, topupID, adminID, comment)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return httptest.NewRequest(method, target, &buf)
}

func asUser(req *http.Request, id uuid.UUID, role enums.UserRole) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), middleware.Actor{UserID: id, Role: role}))
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestOrderCreatePassesPurchaseInput(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()

	var got orders.PurchaseInput
	placer := stubOrderPlacer{createFn: func(_ context.Context, input orders.PurchaseInput) (*models.Order, error) {
		got = input
		return &models.Order{
			ID:          uuid.New(),
			OrderNumber: "PC-1",
			UserID:      userID,
			Status:      enums.OrderStatusPendingFulfillment,
			Total:       decimal.RequireFromString("12.50"),
			CreatedAt:   time.Now().UTC(),
		}, nil
	}}

	req := newRequest(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"product_id":   productID.String(),
		"variant_id":   variantID.String(),
		"quantity":     2,
		"manual_input": map[string]string{"player_id": "abc"},
	})
	rec := httptest.NewRecorder()
	OrderCreate(placer, nil).ServeHTTP(rec, asUser(req, userID, enums.UserRoleCustomer))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, productID, got.ProductID)
	require.NotNil(t, got.VariantID)
	assert.Equal(t, variantID, *got.VariantID)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, "abc", got.ManualInput["player_id"])

	var dto orders.OrderDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &dto))
	assert.Equal(t, "12.50", dto.Total)
}

func TestOrderCreateRejections(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		name   string
		body   map[string]any
		err    error
		status int
		code   string
	}{
		{
			name:   "zero quantity",
			body:   map[string]any{"product_id": uuid.NewString(), "quantity": 0},
			status: http.StatusBadRequest,
			code:   string(pkgerrors.CodeValidation),
		},
		{
			name:   "bad product id",
			body:   map[string]any{"product_id": "nope", "quantity": 1},
			status: http.StatusBadRequest,
			code:   string(pkgerrors.CodeValidation),
		},
		{
			name:   "insufficient funds",
			body:   map[string]any{"product_id": uuid.NewString(), "quantity": 1},
			err:    pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds"),
			status: http.StatusPaymentRequired,
			code:   string(pkgerrors.CodeInsufficientFunds),
		},
		{
			name: "missing manual field",
			body: map[string]any{"product_id": uuid.NewString(), "quantity": 1},
			err: pkgerrors.New(pkgerrors.CodeMissingRequiredField, "missing required field").
				WithDetails(map[string]any{"field": "Player ID"}),
			status: http.StatusBadRequest,
			code:   string(pkgerrors.CodeMissingRequiredField),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			placer := stubOrderPlacer{createFn: func(context.Context, orders.PurchaseInput) (*models.Order, error) {
				if tc.err == nil {
					t.Fatal("engine should not be called")
				}
				return nil, tc.err
			}}
			rec := httptest.NewRecorder()
			req := asUser(newRequest(t, http.MethodPost, "/api/v1/orders", tc.body), userID, enums.UserRoleCustomer)
			OrderCreate(placer, nil).ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestOrderCreateRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	req := newRequest(t, http.MethodPost, "/api/v1/orders", map[string]any{"product_id": uuid.NewString(), "quantity": 1})
	OrderCreate(stubOrderPlacer{}, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderDetailScopesViewer(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := stubOrdersService{getFn: func(_ context.Context, id, viewer uuid.UUID, admin bool) (*orders.OrderDTO, error) {
		assert.Equal(t, orderID, id)
		assert.Equal(t, userID, viewer)
		assert.False(t, admin)
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}}

	req := newRequest(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withURLParams(asUser(req, userID, enums.UserRoleCustomer), map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	OrderDetail(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeOrderNotFound), decode(t, rec).Error.Code)
}

func TestAdminOrdersStatusFilter(t *testing.T) {
	svc := stubOrdersService{listFn: func(_ context.Context, params pagination.Params, status *enums.OrderStatus) (*orders.ListResult, error) {
		assert.Equal(t, 5, params.Limit)
		require.NotNil(t, status)
		assert.Equal(t, enums.OrderStatusPendingFulfillment, *status)
		return &orders.ListResult{Items: []orders.OrderDTO{}}, nil
	}}

	req := newRequest(t, http.MethodGet, "/api/v1/admin/orders?limit=5&status=pending_fulfillment", nil)
	rec := httptest.NewRecorder()
	AdminOrders(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = newRequest(t, http.MethodGet, "/api/v1/admin/orders?status=shipped", nil)
	rec = httptest.NewRecorder()
	AdminOrders(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOrderCancelAllowsEmptyBody(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	svc := stubOrdersService{cancelFn: func(_ context.Context, input orders.CancelInput) (*orders.OrderDTO, error) {
		assert.Equal(t, orderID, input.OrderID)
		assert.Equal(t, adminID, input.AdminID)
		assert.Empty(t, input.Reason)
		return &orders.OrderDTO{ID: orderID, Status: enums.OrderStatusCancelled}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/cancel", nil)
	req = withURLParams(asUser(req, adminID, enums.UserRoleAdmin), map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	AdminOrderCancel(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTopupSubmitParsesAmount(t *testing.T) {
	userID := uuid.New()
	svc := stubWalletService{submitFn: func(_ context.Context, input wallet.SubmitTopupInput) (*models.TopupRequest, error) {
		assert.True(t, decimal.RequireFromString("25.50").Equal(input.Amount))
		assert.Equal(t, "Bank Alpha", input.BankName)
		return &models.TopupRequest{
			ID:            uuid.New(),
			UserID:        userID,
			Amount:        input.Amount,
			BankName:      input.BankName,
			ReferenceHint: input.ReferenceHint,
			Status:        enums.TopupStatusPending,
		}, nil
	}}

	req := newRequest(t, http.MethodPost, "/api/v1/topups", map[string]any{
		"amount":         "25.5",
		"bank_name":      "Bank Alpha",
		"reference_hint": "REF123",
	})
	rec := httptest.NewRecorder()
	TopupSubmit(svc, nil).ServeHTTP(rec, asUser(req, userID, enums.UserRoleCustomer))
	require.Equal(t, http.StatusCreated, rec.Code)

	var dto wallet.TopupDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &dto))
	assert.Equal(t, "25.50", dto.Amount)
	assert.Equal(t, enums.TopupStatusPending, dto.Status)

	req = newRequest(t, http.MethodPost, "/api/v1/topups", map[string]any{
		"amount":         "ten",
		"bank_name":      "Bank Alpha",
		"reference_hint": "REF123",
	})
	rec = httptest.NewRecorder()
	TopupSubmit(svc, nil).ServeHTTP(rec, asUser(req, userID, enums.UserRoleCustomer))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminTopupDecide(t *testing.T) {
	adminID := uuid.New()
	topupID := uuid.New()
	userID := uuid.New()

	svc := stubWalletService{
		approveFn: func(_ context.Context, id, admin uuid.UUID) (*models.User, error) {
			assert.Equal(t, topupID, id)
			assert.Equal(t, adminID, admin)
			return &models.User{ID: userID, WalletBalance: decimal.RequireFromString("10.00")}, nil
		},
		rejectFn: func(_ context.Context, id, _ uuid.UUID, comment string) (*models.TopupRequest, error) {
			assert.Equal(t, "wrong reference", comment)
			return &models.TopupRequest{ID: id, UserID: userID, Status: enums.TopupStatusRejected, AdminComment: &comment}, nil
		},
	}

	decide := func(body map[string]any) *httptest.ResponseRecorder {
		req := newRequest(t, http.MethodPost, "/api/v1/admin/topups/"+topupID.String(), body)
		req = withURLParams(asUser(req, adminID, enums.UserRoleAdmin), map[string]string{"topupId": topupID.String()})
		rec := httptest.NewRecorder()
		AdminTopupDecide(svc, nil).ServeHTTP(rec, req)
		return rec
	}

	rec := decide(map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code)
	var approved topupDecisionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &approved))
	assert.Equal(t, enums.TopupStatusApproved, approved.Status)
	require.NotNil(t, approved.User)
	assert.Equal(t, "10.00", approved.User.WalletBalance)

	rec = decide(map[string]any{"action": "reject", "comment": "  wrong reference "})
	require.Equal(t, http.StatusOK, rec.Code)
	var rejected topupDecisionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &rejected))
	assert.Equal(t, enums.TopupStatusRejected, rejected.Status)

	rec = decide(map[string]any{"action": "hold"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminTopupDecideSecondCallConflicts(t *testing.T) {
	topupID := uuid.New()
	svc := stubWalletService{approveFn: func(context.Context, uuid.UUID, uuid.UUID) (*models.User, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTopupState, "topup already processed")
	}}
	req := newRequest(t, http.MethodPost, "/api/v1/admin/topups/"+topupID.String(), map[string]any{"action": "approve"})
	req = withURLParams(asUser(req, uuid.New(), enums.UserRoleAdmin), map[string]string{"topupId": topupID.String()})
	rec := httptest.NewRecorder()
	AdminTopupDecide(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeInvalidTopupState), decode(t, rec).Error.Code)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": stubPinger{err: errors.New("down")}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubInventoryService struct {
	stockFn func(ctx context.Context, input inventory.StockInput) (*inventory.StockResult, error)
}

func (s stubInventoryService) Stock(ctx context.Context, input inventory.StockInput) (*inventory.StockResult, error) {
	return s.stockFn(ctx, input)
}

type stubCatalogAdmin struct {
	catalog.AdminService
	variantFn func(ctx context.Context, input catalog.CreateVariantInput) (*catalog.VariantDTO, error)
	stockFn   func(ctx context.Context, productID uuid.UUID, inStock bool) (*catalog.ProductDTO, error)
}

func (s stubCatalogAdmin) CreateVariant(ctx context.Context, input catalog.CreateVariantInput) (*catalog.VariantDTO, error) {
	return s.variantFn(ctx, input)
}

func (s stubCatalogAdmin) SetInStock(ctx context.Context, productID uuid.UUID, inStock bool) (*catalog.ProductDTO, error) {
	return s.stockFn(ctx, productID, inStock)
}

func TestAdminInventoryStockAcceptsJSONPayloads(t *testing.T) {
	productID := uuid.New()
	var got inventory.StockInput
	svc := stubInventoryService{stockFn: func(_ context.Context, input inventory.StockInput) (*inventory.StockResult, error) {
		got = input
		return &inventory.StockResult{ProductID: input.ProductID, Added: len(input.Payloads), Available: int64(len(input.Payloads))}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/inventory", bytes.NewBufferString(
		`{"product_id":"`+productID.String()+`","payloads":[{"username":"a","password":"b"},"gift-code-1"]}`))
	rec := httptest.NewRecorder()
	AdminInventoryStock(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, productID, got.ProductID)
	assert.Nil(t, got.VariantID)
	require.Len(t, got.Payloads, 2)
	assert.JSONEq(t, `{"username":"a","password":"b"}`, string(got.Payloads[0]))
	assert.JSONEq(t, `"gift-code-1"`, string(got.Payloads[1]))
}

func TestAdminOrderDeliverPassesJSONPayload(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	var got orders.DeliverInput
	svc := stubOrdersService{deliverFn: func(_ context.Context, input orders.DeliverInput) (*orders.OrderDTO, error) {
		got = input
		return &orders.OrderDTO{ID: orderID, Status: enums.OrderStatusFulfilled}, nil
	}}

	req := newRequest(t, http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/deliver", map[string]any{
		"payload": map[string]any{"login": "x", "pin": 1234},
		"note":    "enjoy",
	})
	req = withURLParams(asUser(req, adminID, enums.UserRoleAdmin), map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	AdminOrderDeliver(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"login":"x","pin":1234}`, string(got.Payload))
	assert.Equal(t, "enjoy", got.Note)
}

func TestAdminVariantCreate(t *testing.T) {
	productID := uuid.New()
	var got catalog.CreateVariantInput
	svc := stubCatalogAdmin{variantFn: func(_ context.Context, input catalog.CreateVariantInput) (*catalog.VariantDTO, error) {
		got = input
		return &catalog.VariantDTO{ID: uuid.New(), Name: input.Name, Price: "9.99", IsDefault: input.IsDefault}, nil
	}}

	req := newRequest(t, http.MethodPost, "/api/v1/admin/products/"+productID.String()+"/variants", map[string]any{
		"name":       "1 month",
		"price":      "9.99",
		"is_default": true,
	})
	rec := httptest.NewRecorder()
	AdminVariantCreate(svc, nil).ServeHTTP(rec, withURLParams(req, map[string]string{"productId": productID.String()}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, productID, got.ProductID)
	assert.True(t, got.IsDefault)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price))

	req = newRequest(t, http.MethodPost, "/api/v1/admin/products/"+productID.String()+"/variants", map[string]any{
		"name":  "1 month",
		"price": "nine",
	})
	rec = httptest.NewRecorder()
	AdminVariantCreate(svc, nil).ServeHTTP(rec, withURLParams(req, map[string]string{"productId": productID.String()}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProductStockRequiresFlag(t *testing.T) {
	productID := uuid.New()
	svc := stubCatalogAdmin{stockFn: func(_ context.Context, id uuid.UUID, inStock bool) (*catalog.ProductDTO, error) {
		assert.Equal(t, productID, id)
		return &catalog.ProductDTO{ID: id, IsInStock: inStock}, nil
	}}

	req := newRequest(t, http.MethodPut, "/api/v1/admin/products/"+productID.String()+"/stock", map[string]any{"is_in_stock": false})
	rec := httptest.NewRecorder()
	AdminProductStock(svc, nil).ServeHTTP(rec, withURLParams(req, map[string]string{"productId": productID.String()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dto catalog.ProductDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &dto))
	assert.False(t, dto.IsInStock)

	req = newRequest(t, http.MethodPut, "/api/v1/admin/products/"+productID.String()+"/stock", map[string]any{})
	rec = httptest.NewRecorder()
	AdminProductStock(svc, nil).ServeHTTP(rec, withURLParams(req, map[string]string{"productId": productID.String()}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
