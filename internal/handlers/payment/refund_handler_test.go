package payment

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func refundRequestFor(body, token string) *http.Request {
	req := jsonRequest(http.MethodPost, "/orders/42/refunds", body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func amountOf(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func TestRefund_Success(t *testing.T) {
	f := newHandlerFixture(t)
	f.refund.On("Refund", mock.Anything, "42", amountOf("10.00"), "damaged").Return(&checkout.RefundResult{
		OrderID:        "42",
		Amount:         decimal.RequireFromString("10.00"),
		Currency:       "GBP",
		CrossReference: "XREF-2",
		Message:        "Refund for 10.00 GBP processed successfully.",
	}, nil)

	rec := f.serve(refundRequestFor(`{"amount":"10.00","reason":"damaged"}`, testAdminToken))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"order_id": "42",
		"amount": "10",
		"currency": "GBP",
		"cross_reference": "XREF-2",
		"message": "Refund for 10.00 GBP processed successfully."
	}`, rec.Body.String())
}

func TestRefund_NumericAmount(t *testing.T) {
	f := newHandlerFixture(t)
	f.refund.On("Refund", mock.Anything, "42", amountOf("2.5"), "").
		Return(&checkout.RefundResult{OrderID: "42", Amount: decimal.RequireFromString("2.5")}, nil)

	rec := f.serve(refundRequestFor(`{"amount":2.5}`, testAdminToken))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefund_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown order",
			err:        domain.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "order not found",
		},
		{
			name:       "amount over refundable",
			err:        domain.ErrInvalidAmount,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid amount",
		},
		{
			name:       "no cross reference",
			err:        checkout.ErrNoCrossReference,
			wantStatus: http.StatusBadRequest,
			wantError:  "order has no gateway cross reference",
		},
		{
			name:       "declined",
			err:        domain.WrapError(domain.ErrorCodeDeclined, "Refund was declined. Amount exceeds", domain.ErrTransactionDeclined),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Refund was declined. Amount exceeds",
		},
		{
			name:       "gateway unreachable",
			err:        fmt.Errorf("refund failed: %w", domain.ErrGatewayUnreachable),
			wantStatus: http.StatusBadGateway,
			wantError:  "no valid response from any gateway entry point",
		},
		{
			name:       "unexpected",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.refund.On("Refund", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := f.serve(refundRequestFor(`{"amount":"5.00"}`, testAdminToken))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.wantError+`"`)
		})
	}
}

func TestRefund_RequiresAdminToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "wrong", token: "guess"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)

			rec := f.serve(refundRequestFor(`{"amount":"5.00"}`, tt.token))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			f.refund.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRefund_MalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.serve(refundRequestFor(`{"amount":"ten"}`, testAdminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}
