package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// OrderDTO is the API shape of an order. Money is rendered as fixed two-decimal strings.
type OrderDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	Total         string              `json:"total"`
	Currency      enums.Currency      `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	AdminNote     *string             `json:"admin_note,omitempty"`
	FulfilledAt   *time.Time          `json:"fulfilled_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []OrderItemDTO      `json:"items"`
}

type OrderItemDTO struct {
	ID             uuid.UUID            `json:"id"`
	ProductID      uuid.UUID            `json:"product_id"`
	VariantID      *uuid.UUID           `json:"variant_id,omitempty"`
	ProductName    string               `json:"product_name"`
	VariantName    string               `json:"variant_name"`
	ProductType    enums.ProductType    `json:"product_type"`
	Quantity       int                  `json:"quantity"`
	UnitPrice      string               `json:"unit_price"`
	ManualInput    types.ManualInput    `json:"manual_input,omitempty"`
	DeliveredData  *types.DeliveredData `json:"delivered_data,omitempty"`
	DeliveryStatus enums.OrderStatus    `json:"delivery_status"`
}

// ListResult is one page of orders.
type ListResult struct {
	Items  []OrderDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status,
		Total:         money.Format(o.Total),
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		AdminNote:     o.AdminNote,
		FulfilledAt:   o.FulfilledAt,
		CancelledAt:   o.CancelledAt,
		CreatedAt:     o.CreatedAt,
		Items:         make([]OrderItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			VariantName:    item.VariantName,
			ProductType:    item.ProductType,
			Quantity:       item.Quantity,
			UnitPrice:      money.Format(item.UnitPrice),
			ManualInput:    item.ManualInput,
			DeliveredData:  item.DeliveredData,
			DeliveryStatus: item.DeliveryStatus,
		})
	}
	return dto
}
