package main

import (
	"context"
	"fmt"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/database"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/memory"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/postgres"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/redis"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/secrets"
	"github.com/common-repository/paymentsense-gateway/internal/config"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	pkghttp "github.com/common-repository/paymentsense-gateway/pkg/http"
	"github.com/common-repository/paymentsense-gateway/pkg/logging"
	"github.com/common-repository/paymentsense-gateway/pkg/resilience"
	"go.uber.org/zap"
)

var configFile string

// app holds the components every command shares
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	timeouts    *resilience.TimeoutConfig
	transport   *paymentsense.HTTPTransport
	gateway     *paymentsense.Orchestrator
	diagnostics *paymentsense.Diagnostics

	// Set by initStores
	db         *database.PostgreSQLAdapter
	orders     ports.OrderStore
	challenges ports.ChallengeStore
}

// loadApp reads the configuration, resolves the gateway secrets and builds
// the gateway client. Stores are opened separately by the commands that
// need them.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	sm, err := secrets.NewSecretManager(ctx, cfg.SecretManagerConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret manager: %w", err)
	}
	if err := cfg.ResolveSecrets(ctx, sm); err != nil {
		return nil, fmt.Errorf("failed to resolve gateway secrets: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		timeouts: resilience.DefaultTimeoutConfig(),
	}
	a.initGateway()
	return a, nil
}

func (a *app) initGateway() {
	gw := a.cfg.Gateway

	clientCfg := pkghttp.GatewayClientConfig(!gw.TLSInsecureSkipVerify)
	clientCfg.DialTimeout = gw.ConnectTimeout
	clientCfg.TLSHandshakeTimeout = gw.ConnectTimeout
	clientCfg.ResponseHeaderTimeout = gw.Timeout
	client := pkghttp.NewHTTPClient(clientCfg, gw.Timeout)

	a.transport = paymentsense.NewHTTPTransport(client, gw.DisablePort4430, a.logger)
	failover := paymentsense.NewFailoverClient(a.transport, gw.EntryPoints,
		resilience.NewBackoff(gw.RetryBackoff, gw.RetryDelay), a.logger)
	a.gateway = paymentsense.NewOrchestrator(a.cfg.Credentials(), failover, a.logger)
	a.diagnostics = paymentsense.NewDiagnostics(a.gateway, a.transport, paymentsense.DiagnosticsConfig{
		Method:              a.cfg.DiagnosticsMethod(),
		PaymentFormURL:      gw.PaymentFormURL,
		Currency:            gw.Currency,
		UserAgent:           "psgw/" + Version,
		HostedOptions:       a.cfg.HostedFormOptions(),
		SystemTimeThreshold: gw.SystemTimeThreshold,
	}, a.logger)

	a.logger.Info("Gateway client initialized",
		zap.Strings("entry_points", gw.EntryPoints),
		zap.String("method", gw.Method),
		zap.Bool("port_4430_disabled", gw.DisablePort4430),
		zap.String("retry_backoff", gw.RetryBackoff),
	)
}

// initStores opens the order and session stores. Without a database URL or
// Redis address the in-memory stores are used, which only suits a single
// instance.
func (a *app) initStores(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		a.logger.Warn("database.url is not set - using the in-memory order store")
		a.orders = memory.NewOrderStore()
	} else {
		dbCfg := database.DefaultPostgreSQLConfig(a.cfg.Database.URL)
		dbCfg.MaxConns = a.cfg.Database.MaxConns
		dbCfg.MinConns = a.cfg.Database.MinConns
		dbCfg.QueryTimeout = a.timeouts.Store

		db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if a.cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		a.db = db
		a.orders = postgres.NewOrderStore(db, a.logger)
	}

	if a.cfg.Redis.Addr == "" {
		a.logger.Warn("redis.addr is not set - using the in-memory session store")
		a.challenges = memory.NewChallengeStore(a.cfg.Session.TTL)
		return nil
	}

	challenges, err := redis.NewChallengeStore(ctx, redis.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		TTL:      a.cfg.Session.TTL,
	}, a.logger)
	if err != nil {
		a.closeStores()
		return err
	}
	a.challenges = challenges
	return nil
}

func (a *app) closeStores() {
	if a.challenges != nil {
		_ = a.challenges.Close()
	}
	if a.orders != nil {
		_ = a.orders.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// settings maps the configuration onto the checkout flows
func (a *app) settings() checkout.Settings {
	return checkout.Settings{
		Hosted: a.cfg.HostedFormOptions(),
		URLs: checkout.URLs{
			PublicURL:        a.cfg.Storefront.PublicURL,
			OrderReceivedURL: a.cfg.Storefront.OrderReceivedURL,
			CheckoutURL:      a.cfg.Storefront.CheckoutURL,
		},
		PaymentFormURL:       a.cfg.Gateway.PaymentFormURL,
		OrderPrefix:          a.cfg.Gateway.OrderPrefix,
		Currency:             a.cfg.Gateway.Currency,
		PaymentMethodTimeout: time.Duration(a.cfg.Gateway.ExtendedPaymentMethodTimeout) * time.Second,
	}
}

func (a *app) diagnosticsService() *checkout.DiagnosticsService {
	return checkout.NewDiagnosticsService(a.diagnostics, Version, "", a.cfg.Gateway.ExtendedPluginInfo, a.logger)
}
