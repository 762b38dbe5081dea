package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps keys to the plain environment variables the deployment
// templates already set.
var legacyEnv = map[string]string{
	"aws.region":             "AWS_REGION",
	"aws.endpoint_override":  "AWS_ENDPOINT_OVERRIDE",
	"tables.orders":          "ORDERS_TABLE",
	"tables.idempotency":     "IDEMPOTENCY_TABLE",
	"tables.users":           "USERS_TABLE",
	"queue.analysis_url":     "ORDERS_QUEUE_URL",
	"server.run_local":       "RUN_LOCAL",
	"shopify.shop_url":       "SHOPIFY_SHOP_URL",
	"shopify.admin_token":    "SHOPIFY_ADMIN_TOKEN",
	"shopify.webhook_secret": "SHOPIFY_WEBHOOK_SECRET",
}

// Load reads configuration from an optional config file, a .env file and the
// environment. Environment variables use the RETURNGUARD_ prefix with dots
// replaced by underscores (RETURNGUARD_TABLES_ORDERS).
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("RETURNGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "RETURNGUARD_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "returnguard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.metrics_namespace", "ReturnGuard")
	v.SetDefault("tables.orders", "orders")
	v.SetDefault("tables.orders_owner_index", "owner_id-index")
	v.SetDefault("tables.idempotency", "idempotency")
	v.SetDefault("tables.idempotency_ttl", 48*time.Hour)
	v.SetDefault("tables.users", "users")
	v.SetDefault("shopify.api_version", "2024-01")
	v.SetDefault("shopify.owner_id", "webhook-user")
	v.SetDefault("shopify.timeout", 10*time.Second)
	v.SetDefault("shopify.cache_ttl", 0)
	v.SetDefault("shopify.breaker.enabled", true)
	v.SetDefault("shopify.breaker.max_requests", 1)
	v.SetDefault("shopify.breaker.interval", time.Minute)
	v.SetDefault("shopify.breaker.timeout", 30*time.Second)
	v.SetDefault("shopify.breaker.min_requests", 5)
	v.SetDefault("shopify.breaker.failure_ratio", 0.5)
	v.SetDefault("messaging.channel", "WhatsApp")
	v.SetDefault("messaging.provider", "mock")
	v.SetDefault("messaging.topic_arn", "")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "returnguard")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("narrative.seed", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// ValidateAPI checks the settings the HTTP API cannot run without.
func (c *Config) ValidateAPI() error {
	var missing []string
	if c.Tables.Orders == "" {
		missing = append(missing, "tables.orders")
	}
	if c.Tables.Idempotency == "" {
		missing = append(missing, "tables.idempotency")
	}
	if c.Tables.Users == "" {
		missing = append(missing, "tables.users")
	}
	if c.Queue.AnalysisURL == "" {
		missing = append(missing, "queue.analysis_url")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "auth.jwt_secret")
	}
	if c.Shopify.WebhookSecret == "" {
		missing = append(missing, "shopify.webhook_secret")
	}
	return missingErr(missing)
}

// ValidateWorker checks the settings the analysis worker cannot run without.
func (c *Config) ValidateWorker() error {
	var missing []string
	if c.Tables.Orders == "" {
		missing = append(missing, "tables.orders")
	}
	if c.Tables.Idempotency == "" {
		missing = append(missing, "tables.idempotency")
	}
	if c.Shopify.ShopURL == "" {
		missing = append(missing, "shopify.shop_url")
	}
	if c.Shopify.AdminToken == "" {
		missing = append(missing, "shopify.admin_token")
	}
	if c.Messaging.Provider == "sns" && c.Messaging.TopicARN == "" {
		missing = append(missing, "messaging.topic_arn")
	}
	return missingErr(missing)
}

func missingErr(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}
