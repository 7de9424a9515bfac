package payment

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/memory"
	"github.com/common-repository/paymentsense-gateway/internal/middleware"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/common-repository/paymentsense-gateway/pkg/timeutil"
	"github.com/gorilla/mux"
	"go.uber.org/zap/zaptest"
)

const (
	testAdminToken = "admin-secret"
	testCookie     = "psgw_session"
	testSessionID  = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var testURLs = checkout.URLs{
	PublicURL:        "https://pay.example.com",
	OrderReceivedURL: "https://shop.example.com/checkout/order-received/{order_id}",
	CheckoutURL:      "https://shop.example.com/checkout",
}

type handlerFixture struct {
	orders *memory.OrderStore
	hosted *mockHostedFlow
	direct *mockDirectFlow
	refund *mockRefundFlow
	info   *mockInfoFlow
	router *mux.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	f := &handlerFixture{
		orders: memory.NewOrderStore().WithClock(timeutil.FixedClock{T: testNow}),
		hosted: new(mockHostedFlow),
		direct: new(mockDirectFlow),
		refund: new(mockRefundFlow),
		info:   new(mockInfoFlow),
		router: mux.NewRouter(),
	}
	h := NewHandler(Flows{
		Hosted: f.hosted,
		Direct: f.direct,
		Refund: f.refund,
		Info:   f.info,
		Orders: f.orders,
	}, Options{
		SessionCookie: testCookie,
		SessionTTL:    30 * time.Minute,
		SecureCookies: true,
		URLs:          testURLs,
	}, logger)
	h.RegisterRoutes(f.router, middleware.NewAdminAuth(testAdminToken, logger).Middleware)

	t.Cleanup(func() {
		f.hosted.AssertExpectations(t)
		f.direct.AssertExpectations(t)
		f.refund.AssertExpectations(t)
		f.info.AssertExpectations(t)
	})
	return f
}

func (f *handlerFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
