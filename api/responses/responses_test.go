package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusCreated {
		t.Fatalf("expected status 201 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsDomainCodes(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
		details bool
	}{
		{
			err:     pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "demo"}),
			status:  http.StatusBadRequest,
			message: "bad input",
			details: true,
		},
		{
			err:     pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").WithDetails(map[string]any{"balance": "5.00"}),
			status:  http.StatusPaymentRequired,
			message: "insufficient wallet balance",
			details: true,
		},
		{
			err:     pkgerrors.New(pkgerrors.CodeInvalidTopupState, "top-up request already processed"),
			status:  http.StatusConflict,
			message: "top-up request already processed",
		},
		{
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp: refused"), "load user"),
			status:  http.StatusServiceUnavailable,
			message: "dependency unavailable",
		},
	}

	for _, tc := range cases {
		typed := pkgerrors.As(tc.err)
		t.Run(string(typed.Code()), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), logger.Nop(), w, tc.err)

			if got := w.Code; got != tc.status {
				t.Fatalf("expected status %d but got %d", tc.status, got)
			}
			var body types.ErrorEnvelope
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error envelope: %v", err)
			}
			if body.Error.Code != string(typed.Code()) {
				t.Fatalf("unexpected code %s", body.Error.Code)
			}
			if body.Error.Message != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, body.Error.Message)
			}
			if tc.details && body.Error.Details == nil {
				t.Fatalf("expected details in public payload")
			}
		})
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
}

func TestWriteErrorMarksRetryableFailures(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), w, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("serialization failure"), "create order"))
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After on dependency errors, got %q", got)
	}

	w = httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), w, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock"))
	if got := w.Header().Get("Retry-After"); got != "" {
		t.Fatalf("rejections are not retryable, got Retry-After %q", got)
	}
}
