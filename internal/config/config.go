package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/secrets"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PSGW_GATEWAY_MERCHANT_ID
const EnvPrefix = "PSGW"

// Config holds all application configuration
type Config struct {
	Environment string           `mapstructure:"environment" validate:"oneof=development staging production"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Session     SessionConfig    `mapstructure:"session"`
	Gateway     GatewayConfig    `mapstructure:"gateway"`
	Storefront  StorefrontConfig `mapstructure:"storefront"`
	Secrets     SecretsConfig    `mapstructure:"secrets"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds the HTTP and gRPC listener configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port" validate:"min=1,max=65535"`
	GRPCPort        int           `mapstructure:"grpc_port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" validate:"min=1"`
	ProbeInterval   time.Duration `mapstructure:"probe_interval" validate:"min=0"`
	// AdminToken guards the refund endpoint; empty disables it
	AdminToken      string        `mapstructure:"admin_token"`
}

// DatabaseConfig holds PostgreSQL configuration. An empty URL selects the
// in-memory order store.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns" validate:"min=1"`
	MinConns int32  `mapstructure:"min_conns" validate:"min=0,ltefield=MaxConns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// RedisConfig holds the session store connection. An empty address selects
// the in-process session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// SessionConfig controls how long a 3-D Secure challenge is kept
type SessionConfig struct {
	TTL        time.Duration `mapstructure:"ttl" validate:"min=1s"`
	CookieName string        `mapstructure:"cookie_name" validate:"required"`
}

// GatewayConfig holds the Paymentsense merchant settings
type GatewayConfig struct {
	Method                string   `mapstructure:"method" validate:"oneof=hosted direct"`
	MerchantID            string   `mapstructure:"merchant_id"`
	Password              string   `mapstructure:"password"`
	PasswordSecret        string   `mapstructure:"password_secret"`
	PreSharedKey          string   `mapstructure:"preshared_key"`
	PreSharedKeySecret    string   `mapstructure:"preshared_key_secret"`
	HashMethod            string   `mapstructure:"hash_method" validate:"oneof=MD5 SHA1 HMACMD5 HMACSHA1 HMACSHA256 HMACSHA512"`
	TransactionType       string   `mapstructure:"transaction_type" validate:"oneof=SALE PREAUTH"`
	OrderPrefix           string   `mapstructure:"order_prefix"`
	ResultDelivery        string   `mapstructure:"result_delivery" validate:"oneof=POST SERVER"`
	EntryPoints           []string `mapstructure:"entry_points" validate:"min=1,dive,url"`
	PaymentFormURL        string   `mapstructure:"payment_form_url" validate:"url"`
	Currency              string   `mapstructure:"currency" validate:"len=3"`
	DisablePort4430       bool     `mapstructure:"disable_port_4430"`
	TLSInsecureSkipVerify bool     `mapstructure:"tls_insecure_skip_verify"`

	ConnectTimeout      time.Duration `mapstructure:"connect_timeout" validate:"min=1s"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"min=1s,gtefield=ConnectTimeout"`
	RetryBackoff        string        `mapstructure:"retry_backoff" validate:"oneof=none fixed exponential"`
	RetryDelay          time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	SystemTimeThreshold int64         `mapstructure:"system_time_threshold" validate:"min=1"`

	// Seconds since the order was last modified during which the hosted
	// form can still be opened. 0 is unlimited.
	ExtendedPaymentMethodTimeout int64 `mapstructure:"extended_payment_method_timeout" validate:"min=0"`
	ExtendedPluginInfo           bool  `mapstructure:"extended_plugin_info"`

	EmailAddressEditable bool `mapstructure:"email_address_editable"`
	PhoneNumberEditable  bool `mapstructure:"phone_number_editable"`
	Address1Mandatory    bool `mapstructure:"address1_mandatory"`
	CityMandatory        bool `mapstructure:"city_mandatory"`
	StateMandatory       bool `mapstructure:"state_mandatory"`
	PostcodeMandatory    bool `mapstructure:"postcode_mandatory"`
	CountryMandatory     bool `mapstructure:"country_mandatory"`
}

// StorefrontConfig holds the URLs customers are sent to. "{order_id}" is
// replaced in the templates.
type StorefrontConfig struct {
	// PublicURL is where this service is reachable by the gateway and the ACS
	PublicURL        string `mapstructure:"public_url" validate:"url"`
	OrderReceivedURL string `mapstructure:"order_received_url" validate:"required"`
	CheckoutURL      string `mapstructure:"checkout_url" validate:"url"`
}

// SecretsConfig selects the secret backend for the gateway password and key
type SecretsConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=env local aws vault gcp"`
	LocalPath string        `mapstructure:"local_path"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"min=0"`

	AWSRegion   string `mapstructure:"aws_region"`
	AWSProfile  string `mapstructure:"aws_profile"`
	AWSEndpoint string `mapstructure:"aws_endpoint"`

	VaultAddress    string `mapstructure:"vault_address"`
	VaultAuthMethod string `mapstructure:"vault_auth_method" validate:"omitempty,oneof=token approle kubernetes"`
	VaultToken      string `mapstructure:"vault_token"`
	VaultRoleID     string `mapstructure:"vault_role_id"`
	VaultSecretID   string `mapstructure:"vault_secret_id"`
	VaultK8sRole    string `mapstructure:"vault_k8s_role"`
	VaultMountPath  string `mapstructure:"vault_mount_path"`
	VaultKVVersion  string `mapstructure:"vault_kv_version" validate:"omitempty,oneof=v1 v2"`
	VaultNamespace  string `mapstructure:"vault_namespace"`

	GCPProjectID string `mapstructure:"gcp_project_id" validate:"required_if=Backend gcp"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig holds the Prometheus listener configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=1,max=65535"`
}

// Load reads configFile (optional, YAML) and PSGW_* environment overrides
// on top of the defaults, then validates the result
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("psgw")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/psgw")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Entry points arrive as a comma separated string from the environment
	cfg.Gateway.EntryPoints = splitList(strings.Join(cfg.Gateway.EntryPoints, ","))
	cfg.Gateway.HashMethod = strings.ToUpper(cfg.Gateway.HashMethod)
	cfg.Gateway.TransactionType = strings.ToUpper(cfg.Gateway.TransactionType)
	cfg.Gateway.ResultDelivery = strings.ToUpper(cfg.Gateway.ResultDelivery)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.probe_interval", "5m")
	v.SetDefault("server.admin_token", "")

	// Database
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.migrate", true)

	// Redis
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Session
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.cookie_name", "psgw_session")

	// Gateway
	v.SetDefault("gateway.method", "hosted")
	v.SetDefault("gateway.merchant_id", "")
	v.SetDefault("gateway.password", "")
	v.SetDefault("gateway.password_secret", "")
	v.SetDefault("gateway.preshared_key", "")
	v.SetDefault("gateway.preshared_key_secret", "")
	v.SetDefault("gateway.hash_method", string(domain.HashMethodSHA1))
	v.SetDefault("gateway.transaction_type", string(domain.TransactionTypeSale))
	v.SetDefault("gateway.order_prefix", "WC-")
	v.SetDefault("gateway.result_delivery", paymentsense.DeliveryPOST)
	v.SetDefault("gateway.entry_points", paymentsense.DefaultEntryPoints)
	v.SetDefault("gateway.payment_form_url", paymentsense.DefaultPaymentFormURL)
	v.SetDefault("gateway.currency", "GBP")
	v.SetDefault("gateway.disable_port_4430", false)
	v.SetDefault("gateway.tls_insecure_skip_verify", true)
	v.SetDefault("gateway.connect_timeout", "9s")
	v.SetDefault("gateway.timeout", "12s")
	v.SetDefault("gateway.retry_backoff", "none")
	v.SetDefault("gateway.retry_delay", "0s")
	v.SetDefault("gateway.system_time_threshold", paymentsense.DefaultSystemTimeThreshold)
	v.SetDefault("gateway.extended_payment_method_timeout", 1800)
	v.SetDefault("gateway.extended_plugin_info", true)
	v.SetDefault("gateway.email_address_editable", false)
	v.SetDefault("gateway.phone_number_editable", false)
	v.SetDefault("gateway.address1_mandatory", true)
	v.SetDefault("gateway.city_mandatory", false)
	v.SetDefault("gateway.state_mandatory", false)
	v.SetDefault("gateway.postcode_mandatory", true)
	v.SetDefault("gateway.country_mandatory", false)

	// Storefront
	v.SetDefault("storefront.public_url", "http://localhost:8080")
	v.SetDefault("storefront.order_received_url", "http://localhost:3000/checkout/order-received/{order_id}")
	v.SetDefault("storefront.checkout_url", "http://localhost:3000/checkout")

	// Secrets
	v.SetDefault("secrets.backend", secrets.BackendEnv)
	v.SetDefault("secrets.local_path", "./secrets")
	v.SetDefault("secrets.cache_ttl", "5m")
	v.SetDefault("secrets.aws_region", "eu-west-2")
	v.SetDefault("secrets.vault_auth_method", "token")
	v.SetDefault("secrets.vault_mount_path", "secret")
	v.SetDefault("secrets.vault_kv_version", "v2")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SecretManagerConfig maps the secrets section onto the secret manager factory
func (c *Config) SecretManagerConfig() secrets.Config {
	cfg := secrets.Config{
		Backend:   c.Secrets.Backend,
		LocalPath: c.Secrets.LocalPath,
		CacheTTL:  c.Secrets.CacheTTL,
	}
	switch c.Secrets.Backend {
	case secrets.BackendAWS:
		cfg.AWS = &secrets.AWSSecretsManagerConfig{
			Region:   c.Secrets.AWSRegion,
			Profile:  c.Secrets.AWSProfile,
			Endpoint: c.Secrets.AWSEndpoint,
		}
	case secrets.BackendVault:
		vc := secrets.DefaultVaultConfig(c.Secrets.VaultAddress)
		vc.AuthMethod = c.Secrets.VaultAuthMethod
		vc.Token = c.Secrets.VaultToken
		vc.RoleID = c.Secrets.VaultRoleID
		vc.SecretID = c.Secrets.VaultSecretID
		vc.K8sRole = c.Secrets.VaultK8sRole
		vc.Namespace = c.Secrets.VaultNamespace
		if c.Secrets.VaultMountPath != "" {
			vc.MountPath = c.Secrets.VaultMountPath
		}
		if c.Secrets.VaultKVVersion != "" {
			vc.KVVersion = c.Secrets.VaultKVVersion
		}
		cfg.Vault = vc
	case secrets.BackendGCP:
		cfg.GCP = &secrets.GCPSecretManagerConfig{ProjectID: c.Secrets.GCPProjectID}
	}
	return cfg
}

// ResolveSecrets replaces the gateway password and pre-shared key with the
// values stored at their secret paths. Plain values stay as the fallback.
func (c *Config) ResolveSecrets(ctx context.Context, sm ports.SecretManagerAdapter) error {
	password, err := secrets.Resolve(ctx, sm, c.Gateway.PasswordSecret, c.Gateway.Password)
	if err != nil {
		return fmt.Errorf("gateway password: %w", err)
	}
	key, err := secrets.Resolve(ctx, sm, c.Gateway.PreSharedKeySecret, c.Gateway.PreSharedKey)
	if err != nil {
		return fmt.Errorf("gateway pre-shared key: %w", err)
	}
	c.Gateway.Password = password
	c.Gateway.PreSharedKey = key
	return nil
}

// Credentials returns the merchant credentials. The hash method was
// validated on load.
func (c *Config) Credentials() domain.GatewayCredentials {
	return domain.GatewayCredentials{
		MerchantID:   strings.TrimSpace(c.Gateway.MerchantID),
		Password:     c.Gateway.Password,
		PreSharedKey: c.Gateway.PreSharedKey,
		HashMethod:   domain.HashMethod(c.Gateway.HashMethod),
	}
}

// HostedFormOptions maps the gateway section onto the hosted form builder.
// The callback URL is the public hosted callback route.
func (c *Config) HostedFormOptions() paymentsense.HostedFormOptions {
	return paymentsense.HostedFormOptions{
		TransactionType:      domain.TransactionType(c.Gateway.TransactionType),
		OrderPrefix:          c.Gateway.OrderPrefix,
		CallbackURL:          c.CallbackURL(HostedCallbackPath),
		ResultDelivery:       c.Gateway.ResultDelivery,
		EmailAddressEditable: c.Gateway.EmailAddressEditable,
		PhoneNumberEditable:  c.Gateway.PhoneNumberEditable,
		Address1Mandatory:    c.Gateway.Address1Mandatory,
		CityMandatory:        c.Gateway.CityMandatory,
		PostCodeMandatory:    c.Gateway.PostcodeMandatory,
		StateMandatory:       c.Gateway.StateMandatory,
		CountryMandatory:     c.Gateway.CountryMandatory,
	}
}

// Callback routes served by this service
const (
	HostedCallbackPath = "/callback/hosted"
	DirectCallbackPath = "/callback/direct"
)

// CallbackURL joins the public URL and a route path
func (c *Config) CallbackURL(path string) string {
	return strings.TrimRight(c.Storefront.PublicURL, "/") + path
}

// DiagnosticsMethod maps gateway.method onto the diagnostics variant
func (c *Config) DiagnosticsMethod() paymentsense.Method {
	if c.Gateway.Method == "direct" {
		return paymentsense.MethodDirect
	}
	return paymentsense.MethodHosted
}

// Address returns the HTTP listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC health listen address
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}
