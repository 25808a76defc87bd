package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/api/responses"
	"github.com/angelmondragon/premiumcity-backend/api/validators"
	"github.com/angelmondragon/premiumcity-backend/internal/banks"
	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Position    int    `json:"position,omitempty" validate:"min=0"`
}

type createProductRequest struct {
	CategoryID  string              `json:"category_id" validate:"required,uuid"`
	Name        string              `json:"name" validate:"required,max=160"`
	Description string              `json:"description,omitempty" validate:"max=4000"`
	Type        string              `json:"type" validate:"required,oneof=INSTANT MANUAL instant manual"`
	InputSchema []types.ManualField `json:"input_schema,omitempty" validate:"max=20"`
	IsInStock   *bool               `json:"is_in_stock,omitempty"`
}

type createVariantRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Price     string `json:"price" validate:"required"`
	IsDefault bool   `json:"is_default,omitempty"`
	Position  *int   `json:"position,omitempty" validate:"omitempty,min=0"`
}

type productStockRequest struct {
	IsInStock *bool `json:"is_in_stock" validate:"required"`
}

type createBankAccountRequest struct {
	BankName      string `json:"bank_name" validate:"required,min=2,max=120"`
	AccountName   string `json:"account_name" validate:"required,min=2,max=120"`
	AccountNumber string `json:"account_number" validate:"required,min=4,max=40"`
	Instructions  string `json:"instructions,omitempty" validate:"max=1000"`
}

func AdminCategoryCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		var body createCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), catalog.CreateCategoryInput{
			Name:        validators.CleanText(body.Name, 120),
			Description: validators.CleanText(body.Description, 2000),
			Position:    body.Position,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// AdminProductCreate registers a product; new products start ACTIVE and in
// stock unless is_in_stock is false.
func AdminProductCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inStock := true
		if body.IsInStock != nil {
			inStock = *body.IsInStock
		}
		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			CategoryID:  uuid.MustParse(body.CategoryID),
			Name:        validators.CleanText(body.Name, 160),
			Description: validators.CleanText(body.Description, 4000),
			Type:        enums.ProductType(strings.ToUpper(body.Type)),
			InputSchema: body.InputSchema,
			IsInStock:   inStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminVariantCreate adds a pricing option; is_default moves the default flag.
func AdminVariantCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createVariantRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := money.Parse(body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price").
				WithDetails(map[string]any{"field": "price"}))
			return
		}
		variant, err := svc.CreateVariant(r.Context(), catalog.CreateVariantInput{
			ProductID: productID,
			Name:      validators.CleanText(body.Name, 120),
			Price:     price,
			IsDefault: body.IsDefault,
			Position:  body.Position,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

func AdminProductStock(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body productStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.SetInStock(r.Context(), productID, *body.IsInStock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminBankAccountCreate(svc banks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("banks"))
			return
		}
		var body createBankAccountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Create(r.Context(), banks.CreateAccountInput{
			BankName:      validators.CleanText(body.BankName, 120),
			AccountName:   validators.CleanText(body.AccountName, 120),
			AccountNumber: validators.CleanText(body.AccountNumber, 40),
			Instructions:  validators.CleanText(body.Instructions, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}
