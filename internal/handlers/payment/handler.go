// Package payment serves the customer-facing checkout pages, the gateway
// callbacks and the merchant refund and info endpoints over HTTP.
package payment

import (
	"context"
	"net/http"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HostedFlow is the hosted payment form flow
type HostedFlow interface {
	PaymentForm(ctx context.Context, orderID string) (*checkout.PaymentForm, error)
	HandleCallback(ctx context.Context, get func(string) string) *checkout.CallbackResponse
}

// DirectFlow is the direct card payment flow with its 3-D Secure legs
type DirectFlow interface {
	ProcessPayment(ctx context.Context, orderID string, card domain.CardDetails, customerIP, sessionID string) (*checkout.Redirect, error)
	ACSRedirect(ctx context.Context, sessionID, orderID string) (*checkout.ACSForm, error)
	CompleteThreeDSecure(ctx context.Context, orderID, crossReference, paRes string) (*checkout.Redirect, error)
}

// RefundFlow refunds a paid order
type RefundFlow interface {
	Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*checkout.RefundResult, error)
}

// InfoFlow produces the module and connection diagnostics
type InfoFlow interface {
	ConnectionInfo(ctx context.Context) (paymentsense.Info, error)
	ModuleInfo(ctx context.Context, extended, withConnectionInfo bool) (paymentsense.Info, error)
}

// OrderBook creates and reads orders for the merchant endpoints
type OrderBook interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error)
}

// Flows groups the services behind the routes. Flows left nil are not
// routed.
type Flows struct {
	Hosted HostedFlow
	Direct DirectFlow
	Refund RefundFlow
	Info   InfoFlow
	Orders OrderBook
}

// Options tune request handling
type Options struct {
	// SessionCookie names the cookie that ties a 3-D Secure challenge to
	// the browser that started it
	SessionCookie string
	SessionTTL    time.Duration
	SecureCookies bool
	TrustProxy    bool
	URLs          checkout.URLs
}

// Handler serves every payment route
type Handler struct {
	hosted   HostedFlow
	direct   DirectFlow
	refund   RefundFlow
	info     InfoFlow
	orders   OrderBook
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(flows Flows, opts Options, logger *zap.Logger) *Handler {
	if opts.SessionCookie == "" {
		opts.SessionCookie = "psgw_session"
	}
	return &Handler{
		hosted:   flows.Hosted,
		direct:   flows.Direct,
		refund:   flows.Refund,
		info:     flows.Info,
		orders:   flows.Orders,
		validate: validator.New(),
		opts:     opts,
		logger:   logger,
	}
}

// RegisterRoutes mounts the payment routes on r. adminAuth guards the
// merchant-only endpoints.
func (h *Handler) RegisterRoutes(r *mux.Router, adminAuth func(http.Handler) http.Handler) {
	route := func(path string, fn http.HandlerFunc, methods ...string) {
		r.Handle(path, observability.HTTPMiddleware(path, fn)).Methods(methods...)
	}

	if h.hosted != nil {
		route("/checkout/hosted/{orderID}", h.HostedForm, http.MethodGet)
		route("/callback/hosted", h.HostedCallback, http.MethodGet, http.MethodPost)
	}
	if h.direct != nil {
		route("/checkout/direct/{orderID}", h.DirectPayment, http.MethodPost)
		route("/checkout/direct/{orderID}/3ds", h.ThreeDSecureRedirect, http.MethodGet)
		route("/callback/direct", h.DirectCallback, http.MethodPost)
	}
	admin := func(path string, fn http.HandlerFunc, methods ...string) {
		r.Handle(path, observability.HTTPMiddleware(path, adminAuth(fn))).Methods(methods...)
	}
	if h.orders != nil {
		admin("/orders", h.CreateOrder, http.MethodPost)
		admin("/orders/{orderID}", h.GetOrder, http.MethodGet)
	}
	if h.refund != nil {
		admin("/orders/{orderID}/refunds", h.Refund, http.MethodPost)
	}
	if h.info != nil {
		route("/info", h.Info, http.MethodGet)
	}
}
