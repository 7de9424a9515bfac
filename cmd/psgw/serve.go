package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/handlers/payment"
	"github.com/common-repository/paymentsense-gateway/internal/middleware"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	pkgmiddleware "github.com/common-repository/paymentsense-gateway/pkg/middleware"
	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"github.com/common-repository/paymentsense-gateway/pkg/shutdown"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the checkout pages, gateway callbacks and merchant API",
		Long: `Start the HTTP server, the gRPC health server, the metrics server and the
periodic gateway probe. SIGINT or SIGTERM shuts everything down gracefully.

Examples:
  psgw serve
  psgw serve --config /etc/psgw/psgw.yaml
  PSGW_GATEWAY_METHOD=direct PSGW_REDIS_ADDR=localhost:6379 psgw serve`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	a.logger.Info("Starting Paymentsense gateway service",
		zap.String("version", Version),
		zap.String("environment", a.cfg.Environment),
		zap.String("method", a.cfg.Gateway.Method),
	)

	if err := a.initStores(ctx); err != nil {
		return err
	}

	// Registered in start order; the manager stops them in reverse
	sm := shutdown.NewManager(a.logger, a.cfg.Server.ShutdownTimeout)
	if a.db != nil {
		sm.RegisterCloser("database", a.db)
	}
	sm.RegisterCloser("order-store", a.orders)
	sm.RegisterCloser("session-store", a.challenges)

	healthChecker := observability.NewHealthChecker()
	if a.db != nil {
		healthChecker.Register("database", a.db.HealthCheck)
	}
	if hc, ok := a.challenges.(interface{ HealthCheck(context.Context) error }); ok {
		healthChecker.Register("redis", hc.HealthCheck)
	}

	healthServer := observability.NewHealthServer()
	if a.cfg.Server.ProbeInterval > 0 {
		probe := shutdown.NewPeriodicWorker("gateway-probe", a.cfg.Server.ProbeInterval, a.logger)
		probe.Start(ctx, a.probeGateway(healthServer))
		sm.Register("gateway-probe", probe.Shutdown)
	}

	if a.cfg.Metrics.Enabled {
		metricsServer := observability.StartMetricsServer(strconv.Itoa(a.cfg.Metrics.Port), healthChecker, a.logger)
		sm.RegisterHTTPServer("metrics-server", metricsServer)
		a.logger.Info("Metrics server listening", zap.Int("port", a.cfg.Metrics.Port))
	}

	go func() {
		a.logger.Info("gRPC health server listening", zap.String("addr", a.cfg.Server.GRPCAddress()))
		if err := healthServer.Serve(a.cfg.Server.GRPCAddress()); err != nil {
			a.logger.Error("gRPC health server error", zap.Error(err))
		}
	}()
	sm.RegisterNoErr("grpc-health", healthServer.Stop)

	limiter := pkgmiddleware.NewRateLimiter(a.cfg.Server.RateLimitRPS, a.cfg.Server.RateLimitBurst, a.cfg.Server.TrustProxy, a.logger)
	sm.RegisterNoErr("rate-limiter", limiter.Shutdown)

	inflight := shutdown.NewInFlightTracker("http", a.logger)
	server := &http.Server{
		Addr:              a.cfg.Server.Address(),
		Handler:           a.newHTTPHandler(limiter, inflight),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	sm.RegisterHTTPServer("http-server", server)
	// Stops first so new requests are refused while the server drains
	sm.Register("http-inflight", inflight.Shutdown)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	sm.WaitForShutdown(ctx)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// newHTTPHandler wires the flows of the configured payment method into the
// router and wraps it in the middleware chain
func (a *app) newHTTPHandler(limiter *pkgmiddleware.RateLimiter, inflight *shutdown.InFlightTracker) http.Handler {
	settings := a.settings()

	flows := payment.Flows{
		Refund: checkout.NewRefundService(a.gateway, a.orders, settings, a.logger),
		Info:   a.diagnosticsService(),
		Orders: a.orders,
	}
	if a.cfg.Gateway.Method == "direct" {
		flows.Direct = checkout.NewDirectService(a.gateway, a.orders, a.challenges, settings, a.logger)
	} else {
		flows.Hosted = checkout.NewHostedService(a.orders, a.cfg.Credentials(), settings, a.logger)
	}

	isDevelopment := a.cfg.Environment == "development"
	handler := payment.NewHandler(flows, payment.Options{
		SessionCookie: a.cfg.Session.CookieName,
		SessionTTL:    a.cfg.Session.TTL,
		SecureCookies: !isDevelopment,
		TrustProxy:    a.cfg.Server.TrustProxy,
		URLs:          settings.URLs,
	}, a.logger)

	r := mux.NewRouter()
	handler.RegisterRoutes(r, middleware.NewAdminAuth(a.cfg.Server.AdminToken, a.logger).Middleware)
	r.Use(
		middleware.NewRequestLogger(a.logger).Middleware,
		middleware.NewSecurityHeaders(isDevelopment).Middleware,
		limiter.Middleware,
		pkgmiddleware.NewTimeout(a.timeouts, a.logger).Middleware,
		inflight.Middleware,
	)

	if a.cfg.Server.AdminToken == "" {
		a.logger.Warn("server.admin_token is not set - merchant endpoints are disabled")
	}
	return r
}

// probeGateway returns the periodic probe feeding the gRPC health status
func (a *app) probeGateway(hs *observability.HealthServer) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx, cancel := a.timeouts.DiagnosticsContext(ctx)
		defer cancel()

		report, err := a.diagnostics.Run(ctx)
		if err != nil {
			a.logger.Warn("Gateway probe failed", zap.Error(err))
			hs.SetGatewayConnectivity(false)
			return
		}

		hs.SetGatewayConnectivity(report.Connectivity())
		a.logger.Info("Gateway probe completed",
			zap.Bool("connectivity", report.Connectivity()),
			zap.String("system_time", report.SystemTimeStatus),
		)
	}
}
