package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable identifier clients branch on.
type Code string

// Transport-level codes.
const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Storefront rejections. Each one aborts the unit of work before anything is
// written and is never worth replaying unchanged.
const (
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeProductUnavailable   Code = "PRODUCT_UNAVAILABLE"
	CodeNoPricingOption      Code = "NO_PRICING_OPTION"
	CodeMissingRequiredField Code = "MISSING_REQUIRED_FIELD"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeInsufficientStock    Code = "INSUFFICIENT_STOCK"
	CodeInvalidTopupState    Code = "INVALID_TOPUP_STATE"
	CodeTopupNotFound        Code = "TOPUP_NOT_FOUND"
	CodeOrderNotFound        Code = "ORDER_NOT_FOUND"
	CodeInvalidOrderState    Code = "INVALID_ORDER_STATE"
)

// Metadata drives how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	Rejection      bool
}

type metaOption func(*Metadata)

var (
	withDetails metaOption = func(m *Metadata) { m.DetailsAllowed = true }
	retryable   metaOption = func(m *Metadata) { m.Retryable = true }
	rejection   metaOption = func(m *Metadata) { m.Rejection = true }
)

func meta(status int, public string, opts ...metaOption) Metadata {
	m := Metadata{HTTPStatus: status, PublicMessage: public}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:     meta(http.StatusForbidden, "access denied"),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found"),
	CodeConflict:      meta(http.StatusConflict, "conflict detected"),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", retryable, withDetails),

	CodeUserNotFound:         meta(http.StatusNotFound, "user not found", rejection),
	CodeProductUnavailable:   meta(http.StatusConflict, "product unavailable", rejection),
	CodeNoPricingOption:      meta(http.StatusUnprocessableEntity, "no pricing option selected", rejection),
	CodeMissingRequiredField: meta(http.StatusBadRequest, "missing required field", rejection, withDetails),
	CodeInsufficientFunds:    meta(http.StatusPaymentRequired, "insufficient wallet balance", rejection, withDetails),
	CodeInsufficientStock:    meta(http.StatusConflict, "insufficient stock for instant delivery", rejection, withDetails),
	CodeInvalidTopupState:    meta(http.StatusConflict, "top-up request already processed", rejection, withDetails),
	CodeTopupNotFound:        meta(http.StatusNotFound, "top-up request not found", rejection),
	CodeOrderNotFound:        meta(http.StatusNotFound, "order not found", rejection),
	CodeInvalidOrderState:    meta(http.StatusConflict, "order state transition disallowed", rejection, withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// IsRejection reports whether the code describes a request the caller must
// correct before resubmitting.
func IsRejection(code Code) bool {
	return metadataByCode[code].Rejection
}

// Error is a coded error with an optional cause and client-safe details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the payload rendered under error.details when the code allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether the outermost coded error in err's chain carries code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
