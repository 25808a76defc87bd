package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/api/responses"
	"github.com/angelmondragon/premiumcity-backend/api/validators"
	"github.com/angelmondragon/premiumcity-backend/internal/orders"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// OrderPlacer is the purchase entry point.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, input orders.PurchaseInput) (*models.Order, error)
}

type createOrderRequest struct {
	ProductID   string            `json:"product_id" validate:"required,uuid"`
	VariantID   *string           `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Quantity    int               `json:"quantity" validate:"required,min=1"`
	ManualInput types.ManualInput `json:"manual_input,omitempty"`
}

func (req createOrderRequest) toInput(userID uuid.UUID) (orders.PurchaseInput, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return orders.PurchaseInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product_id")
	}
	input := orders.PurchaseInput{
		UserID:      userID,
		ProductID:   productID,
		Quantity:    req.Quantity,
		ManualInput: req.ManualInput,
	}
	if req.VariantID != nil && *req.VariantID != "" {
		variantID, err := uuid.Parse(*req.VariantID)
		if err != nil {
			return orders.PurchaseInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid variant_id")
		}
		input.VariantID = &variantID
	}
	return input, nil
}

// OrderCreate buys one product line with the caller's wallet.
func OrderCreate(engine OrderPlacer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := engine.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.FromModel(order))
	}
}

// OrderList pages through the caller's orders, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OrderDetail returns one order. Customers only see their own.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), orderID, userID, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
