package payment

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHostedForm_RendersAutoSubmitForm(t *testing.T) {
	f := newHandlerFixture(t)
	f.hosted.On("PaymentForm", mock.Anything, "42").Return(&checkout.PaymentForm{
		Title:           "Thank you for your order",
		URL:             "https://mms.example.com/Pages/PublicPages/PaymentForm.aspx",
		SubmitLabel:     "Pay now",
		RedirectMessage: "You will be redirected to the payment page",
		Fields: []paymentsense.Field{
			{Name: "HashDigest", Value: "abc123"},
			{Name: "MerchantID", Value: "ABCDEF-1234567"},
		},
	}, nil)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/checkout/hosted/42", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `action="https://mms.example.com/Pages/PublicPages/PaymentForm.aspx"`)
	assert.Contains(t, body, `name="HashDigest" value="abc123"`)
	assert.Contains(t, body, `name="MerchantID" value="ABCDEF-1234567"`)
	assert.Contains(t, body, "Pay now")
	assert.Contains(t, body, `document.getElementById("redirect-form").submit()`)
	assert.Less(t, strings.Index(body, "HashDigest"), strings.Index(body, "MerchantID"))
}

func TestHostedForm_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantText   string
	}{
		{
			name:       "expired",
			err:        domain.ErrPaymentExpired,
			wantStatus: http.StatusOK,
			wantText:   "Sorry, the allowed time for paying this order has expired.",
		},
		{
			name:       "not configured",
			err:        domain.ErrInvalidMerchantID,
			wantStatus: http.StatusOK,
			wantText:   "This module is not configured. Please configure gateway settings.",
		},
		{
			name:       "unknown order",
			err:        domain.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
			wantText:   "An error occurred while processing order#42. Error message: order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.hosted.On("PaymentForm", mock.Anything, "42").Return(nil, tt.err)

			rec := f.serve(httptest.NewRequest(http.MethodGet, "/checkout/hosted/42", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assert.NotContains(t, rec.Body.String(), "<form")
		})
	}
}

func TestHostedCallback_Responses(t *testing.T) {
	tests := []struct {
		name         string
		resp         *checkout.CallbackResponse
		wantStatus   int
		wantType     string
		wantBody     string
		wantLocation string
	}{
		{
			name:       "server notification answer",
			resp:       &checkout.CallbackResponse{Body: "StatusCode=0&Message=Request processed successfully."},
			wantStatus: http.StatusOK,
			wantType:   "text/plain; charset=utf-8",
			wantBody:   "StatusCode=0&Message=Request processed successfully.",
		},
		{
			name: "redirect with notice",
			resp: &checkout.CallbackResponse{Redirect: &checkout.Redirect{
				URL:    "https://shop.example.com/checkout/order-received/42",
				Notice: "Payment failed",
			}},
			wantStatus:   http.StatusFound,
			wantLocation: "https://shop.example.com/checkout/order-received/42?psgw_error=Payment+failed",
		},
		{
			name:       "message page",
			resp:       &checkout.CallbackResponse{Message: "Unsupported Result Delivery Method."},
			wantStatus: http.StatusOK,
			wantType:   "text/html; charset=utf-8",
			wantBody:   "Unsupported Result Delivery Method.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.hosted.On("HandleCallback", mock.Anything, mock.MatchedBy(func(get func(string) string) bool {
				return get("StatusCode") == "0" && get("OrderID") == "WC-42"
			})).Return(tt.resp)

			rec := f.serve(formRequest(http.MethodPost, "/callback/hosted", url.Values{
				"StatusCode": {"0"},
				"OrderID":    {"WC-42"},
			}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			}
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestHostedCallback_QueryStringRedirect(t *testing.T) {
	f := newHandlerFixture(t)
	f.hosted.On("HandleCallback", mock.Anything, mock.MatchedBy(func(get func(string) string) bool {
		return get("CrossReference") == "XREF-1"
	})).Return(&checkout.CallbackResponse{Redirect: &checkout.Redirect{URL: "https://shop.example.com/done"}})

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/callback/hosted?CrossReference=XREF-1", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/done", rec.Header().Get("Location"))
}

func TestHostedCallback_InfoAction(t *testing.T) {
	f := newHandlerFixture(t)
	f.info.On("ConnectionInfo", mock.Anything).
		Return(paymentsense.Info{}.Add("connection", "Successful"), nil)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/callback/hosted?action=connection_info", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connection: Successful", rec.Body.String())
	f.hosted.AssertNotCalled(t, "HandleCallback", mock.Anything, mock.Anything)
}
