package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/pagination"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// Service exposes order reads plus the admin fulfillment and cancel actions.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListForAdmin(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*ListResult, error)
	Get(ctx context.Context, orderID uuid.UUID, viewer uuid.UUID, isAdmin bool) (*OrderDTO, error)
	DeliverManual(ctx context.Context, input DeliverInput) (*OrderDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error)
}

// DeliverInput carries what an admin hands over for a manual order.
type DeliverInput struct {
	OrderID uuid.UUID
	AdminID uuid.UUID
	Payload types.JSONValue
	Note    string
}

// CancelInput cancels a pending order and refunds the wallet.
type CancelInput struct {
	OrderID uuid.UUID
	AdminID uuid.UUID
	Reason  string
}

type fulfillmentAlerts interface {
	OrderDelivered(ctx context.Context, user *models.User, order *models.Order, payload, note string)
	OrderCancelled(ctx context.Context, user *models.User, order *models.Order, reason string)
}

type ServiceParams struct {
	DB     db.TxRunner
	Orders Repository
	Users  users.Repository
	Ledger ledger.Service
	Alerts fulfillmentAlerts
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	db     db.TxRunner
	orders Repository
	users  users.Repository
	ledger ledger.Service
	alerts fulfillmentAlerts
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:     p.DB,
		orders: p.Orders,
		users:  p.Users,
		ledger: p.Ledger,
		alerts: p.Alerts,
		logg:   p.Logger,
		now:    now,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.orders.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, listError(err)
	}
	return toListResult(rows, next), nil
}

func (s *service) ListForAdmin(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*ListResult, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, next, err := s.orders.ListAll(ctx, params, status)
	if err != nil {
		return nil, listError(err)
	}
	return toListResult(rows, next), nil
}

// Get returns the order when viewer owns it or is an admin.
func (s *service) Get(ctx context.Context, orderID uuid.UUID, viewer uuid.UUID, isAdmin bool) (*OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if !isAdmin && order.UserID != viewer {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) DeliverManual(ctx context.Context, input DeliverInput) (*OrderDTO, error) {
	payload := input.Payload
	if payload.IsBlank() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload is required")
	}
	if !json.Valid(payload) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload must be JSON")
	}
	note := strings.TrimSpace(input.Note)

	var (
		order *models.Order
		user  *models.User
	)
	err := s.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		var err error
		order, err = repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if order.Status != enums.OrderStatusPendingFulfillment {
			return invalidOrderState(order.Status)
		}

		at := s.now()
		delivered := types.DeliveredData{Payload: payload, Note: note}
		ok, err := repo.MarkFulfilled(ctx, order.ID, delivered, optional(note), at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill order")
		}
		if !ok {
			return invalidOrderState(order.Status)
		}

		order.Status = enums.OrderStatusFulfilled
		order.FulfilledAt = &at
		order.AdminNote = optional(note)
		for i := range order.Items {
			order.Items[i].DeliveryStatus = enums.OrderStatusFulfilled
			order.Items[i].DeliveredData = &delivered
		}

		user, err = s.users.WithTx(tx).FindByID(ctx, order.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"admin_id": input.AdminID.String(),
	}), "order.delivered")
	if s.alerts != nil {
		s.alerts.OrderDelivered(ctx, user, order, payload.Pretty(), note)
	}
	dto := FromModel(order)
	return &dto, nil
}

// Cancel refunds a pending order. Inventory already assigned stays consumed.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = fmt.Sprintf("Cancelled by %s", input.AdminID)
	}

	var (
		order *models.Order
		user  *models.User
	)
	err := s.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		usersRepo := s.users.WithTx(tx)

		var err error
		order, err = repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if order.Status != enums.OrderStatusPendingFulfillment {
			return invalidOrderState(order.Status)
		}

		at := s.now()
		ok, err := repo.MarkCancelled(ctx, order.ID, &reason, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return invalidOrderState(order.Status)
		}

		user, err = usersRepo.FindByIDForUpdate(ctx, order.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		balance, err := ledger.Apply(user.WalletBalance, order.Total)
		if err != nil {
			return err
		}
		if err := usersRepo.UpdateWalletBalance(ctx, user.ID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund wallet")
		}
		user.WalletBalance = balance

		if order.Total.IsPositive() {
			reference := order.ID.String()
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				UserID:       user.ID,
				Type:         enums.WalletTransactionRefund,
				Amount:       order.Total,
				BalanceAfter: balance,
				Reference:    &reference,
				Metadata:     types.JSONMap{"orderNumber": order.OrderNumber, "reason": reason},
			}); err != nil {
				return fmt.Errorf("append ledger: %w", err)
			}
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &at
		order.AdminNote = &reason
		for i := range order.Items {
			order.Items[i].DeliveryStatus = enums.OrderStatusCancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"admin_id": input.AdminID.String(),
	}), "order.cancelled")
	if s.alerts != nil {
		s.alerts.OrderCancelled(ctx, user, order, reason)
	}
	dto := FromModel(order)
	return &dto, nil
}

func toListResult(rows []models.Order, next *pagination.Cursor) *ListResult {
	out := &ListResult{Items: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		out.Items = append(out.Items, FromModel(&rows[i]))
	}
	if next != nil {
		out.Cursor = next.Encode()
	}
	return out
}

func listError(err error) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func invalidOrderState(status enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidOrderState, "order is not awaiting fulfillment").
		WithDetails(map[string]any{"status": status})
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
