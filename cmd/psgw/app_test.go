package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/memory"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/config"
	"github.com/common-repository/paymentsense-gateway/internal/middleware"
	pkgmiddleware "github.com/common-repository/paymentsense-gateway/pkg/middleware"
	"github.com/common-repository/paymentsense-gateway/pkg/resilience"
	"github.com/common-repository/paymentsense-gateway/pkg/shutdown"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testAdminToken = "admin-secret"

func newTestApp(t *testing.T, method string) *app {
	t.Helper()

	cfg := &config.Config{Environment: "development"}
	cfg.Server.AdminToken = testAdminToken
	cfg.Server.RateLimitRPS = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Session.CookieName = "psgw_session"
	cfg.Session.TTL = 30 * time.Minute
	cfg.Gateway = config.GatewayConfig{
		Method:              method,
		MerchantID:          "ABCDEF-1234567",
		Password:            "secret",
		PreSharedKey:        "psk",
		HashMethod:          "SHA1",
		TransactionType:     "SALE",
		ResultDelivery:      "POST",
		EntryPoints:         []string{"https://gw1.example.com:4430/"},
		PaymentFormURL:      "https://mms.example.com/Pages/PublicPages/PaymentForm.aspx",
		Currency:            "GBP",
		ConnectTimeout:      time.Second,
		Timeout:             time.Second,
		RetryBackoff:        "none",
		SystemTimeThreshold: 300,
	}
	cfg.Storefront = config.StorefrontConfig{
		PublicURL:        "https://pay.example.com",
		OrderReceivedURL: "https://shop.example.com/order-received/{order_id}",
		CheckoutURL:      "https://shop.example.com/checkout",
	}

	a := &app{
		cfg:      cfg,
		logger:   zaptest.NewLogger(t),
		timeouts: resilience.TestTimeoutConfig(),
	}
	a.initGateway()
	a.orders = memory.NewOrderStore()
	a.challenges = memory.NewChallengeStore(cfg.Session.TTL)
	t.Cleanup(a.closeStores)
	return a
}

func newTestHandler(t *testing.T, a *app) http.Handler {
	t.Helper()
	limiter := pkgmiddleware.NewRateLimiter(a.cfg.Server.RateLimitRPS, a.cfg.Server.RateLimitBurst, false, a.logger)
	t.Cleanup(limiter.Shutdown)
	return a.newHTTPHandler(limiter, shutdown.NewInFlightTracker("http", a.logger))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createOrder(t *testing.T, h http.Handler, body string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	rec := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestNewHTTPHandler_HostedCheckout(t *testing.T) {
	a := newTestApp(t, "hosted")
	h := newTestHandler(t, a)

	createOrder(t, h, `{"id":"1001","currency":"GBP","total":"25.00","email":"jane@example.com"}`)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/checkout/hosted/1001", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `action="`+a.cfg.Gateway.PaymentFormURL+`"`)
	assert.Contains(t, body, `name="HashDigest"`)
	assert.Contains(t, body, `name="OrderID" value="1001"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	// The inline auto-submit script must carry the nonce the CSP allows
	m := regexp.MustCompile(`'nonce-([^']+)'`).FindStringSubmatch(rec.Header().Get("Content-Security-Policy"))
	require.Len(t, m, 2)
	assert.Contains(t, body, `nonce="`+m[1]+`"`)

	// Direct routes are not mounted in hosted mode
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/checkout/direct/1001", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewHTTPHandler_DirectMode(t *testing.T) {
	a := newTestApp(t, "direct")
	h := newTestHandler(t, a)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/checkout/hosted/1001", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/checkout/direct/missing",
		strings.NewReader(`{"card_name":"J Smith","card_number":"4976000000003436","expiry_month":"12","expiry_year":"30","cv2":"452"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestNewHTTPHandler_AdminRoutesRequireToken(t *testing.T) {
	a := newTestApp(t, "hosted")
	h := newTestHandler(t, a)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"currency":"GBP","total":"1.00"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/1001", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_Settings(t *testing.T) {
	a := newTestApp(t, "hosted")
	a.cfg.Gateway.ExtendedPaymentMethodTimeout = 90
	a.cfg.Gateway.OrderPrefix = "WEB-"

	s := a.settings()
	assert.Equal(t, 90*time.Second, s.PaymentMethodTimeout)
	assert.Equal(t, "WEB-", s.OrderPrefix)
	assert.Equal(t, "GBP", s.Currency)
	assert.Equal(t, "https://pay.example.com/callback/hosted", s.Hosted.CallbackURL)
	assert.Equal(t, a.cfg.Storefront.CheckoutURL, s.URLs.CheckoutURL)
}

func TestPrintInfo(t *testing.T) {
	info := paymentsense.Info{}.
		Add("Module Name", "Paymentsense Gateway").
		Add("Gateway Connectivity", true)

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "text", output: "text", want: "Module Name: Paymentsense Gateway\nGateway Connectivity: 1\n"},
		{name: "json", output: "json", want: `{"Module Name":"Paymentsense Gateway","Gateway Connectivity":true}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&buf)

			require.NoError(t, printInfo(cmd, info, tt.output))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "probe", "diagnose", "refund", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestMigrateCmd_List(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "--list"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "001_orders.sql\n", out.String())
}
