package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/api/responses"
	"github.com/angelmondragon/premiumcity-backend/api/validators"
	"github.com/angelmondragon/premiumcity-backend/internal/inventory"
	"github.com/angelmondragon/premiumcity-backend/internal/orders"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/internal/wallet"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

type deliverOrderRequest struct {
	Payload types.JSONValue `json:"payload" validate:"required"`
	Note    string          `json:"note,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type topupDecisionRequest struct {
	Action  string `json:"action" validate:"required,oneof=approve reject"`
	Comment string `json:"comment,omitempty"`
}

type topupDecisionResponse struct {
	TopupID uuid.UUID         `json:"topup_id"`
	Status  enums.TopupStatus `json:"status"`
	User    *users.UserDTO    `json:"user,omitempty"`
	Topup   *wallet.TopupDTO  `json:"topup,omitempty"`
}

type adjustWalletRequest struct {
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type stockInventoryRequest struct {
	ProductID string            `json:"product_id" validate:"required,uuid"`
	VariantID *string           `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Payloads  []types.JSONValue `json:"payloads" validate:"required,min=1"`
}

// AdminOrders lists every order, optionally filtered by ?status=.
func AdminOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}
		result, err := svc.ListForAdmin(r.Context(), params, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminOrderDeliver hands a manual order's result to the customer.
func AdminOrderDeliver(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		adminID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body deliverOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.DeliverManual(r.Context(), orders.DeliverInput{
			OrderID: orderID,
			AdminID: adminID,
			Payload: body.Payload,
			Note:    validators.CleanText(body.Note, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		adminID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cancelOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), orders.CancelInput{
			OrderID: orderID,
			AdminID: adminID,
			Reason:  validators.CleanText(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminTopups lists top-up requests, optionally filtered by ?status=.
func AdminTopups(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("wallet"))
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.TopupStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseTopupStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}
		result, err := svc.ListAll(r.Context(), params, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminTopupDecide approves or rejects a pending top-up.
func AdminTopupDecide(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("wallet"))
			return
		}
		adminID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		topupID, err := validators.ParseUUIDParam(r, "topupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body topupDecisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParseTopupDecision(body.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		if decision == enums.TopupDecisionApprove {
			user, err := svc.Approve(r.Context(), topupID, adminID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, topupDecisionResponse{
				TopupID: topupID,
				Status:  enums.TopupStatusApproved,
				User:    users.FromModel(user),
			})
			return
		}

		topup, err := svc.Reject(r.Context(), topupID, adminID, validators.CleanText(body.Comment, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto := wallet.FromTopup(topup)
		responses.WriteSuccess(w, topupDecisionResponse{
			TopupID: topupID,
			Status:  topup.Status,
			Topup:   &dto,
		})
	}
}

// AdminWalletAdjust applies a signed balance correction with a reason.
func AdminWalletAdjust(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("wallet"))
			return
		}
		adminID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustWalletRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := money.Parse(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount").
				WithDetails(map[string]any{"field": "amount"}))
			return
		}
		user, err := svc.Adjust(r.Context(), wallet.AdjustInput{
			UserID:  userID,
			AdminID: adminID,
			Amount:  amount,
			Reason:  validators.CleanText(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}

// AdminInventoryStock adds deliverable payloads to an instant product.
func AdminInventoryStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		var body stockInventoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := inventory.StockInput{
			ProductID: uuid.MustParse(body.ProductID),
			Payloads:  body.Payloads,
		}
		if body.VariantID != nil && *body.VariantID != "" {
			variantID := uuid.MustParse(*body.VariantID)
			input.VariantID = &variantID
		}
		result, err := svc.Stock(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
