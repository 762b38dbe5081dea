package config

import "time"

// Config is the service configuration shared by the api and worker binaries.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Tables    TablesConfig    `mapstructure:"tables"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Shopify   ShopifyConfig   `mapstructure:"shopify"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	RunLocal bool   `mapstructure:"run_local"`
}

type AWSConfig struct {
	Region           string `mapstructure:"region"`
	EndpointOverride string `mapstructure:"endpoint_override"`
	MetricsNamespace string `mapstructure:"metrics_namespace"`
}

type TablesConfig struct {
	Orders         string        `mapstructure:"orders"`
	OrdersOwnerGSI string        `mapstructure:"orders_owner_index"`
	Idempotency    string        `mapstructure:"idempotency"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	Users          string        `mapstructure:"users"`
}

type QueueConfig struct {
	AnalysisURL string `mapstructure:"analysis_url"`
}

// ShopifyConfig configures the commerce platform client.
type ShopifyConfig struct {
	ShopURL       string        `mapstructure:"shop_url"`
	AdminToken    string        `mapstructure:"admin_token"`
	APIVersion    string        `mapstructure:"api_version"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	OwnerID       string        `mapstructure:"owner_id"` // merchant that owns webhook orders
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MessagingConfig selects the customer messaging channel.
type MessagingConfig struct {
	Channel  string `mapstructure:"channel"`
	Provider string `mapstructure:"provider"` // "mock" or "sns"
	TopicARN string `mapstructure:"topic_arn"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// NarrativeConfig controls the composed narrative. Seed 0 means entropy.
type NarrativeConfig struct {
	Seed uint64 `mapstructure:"seed"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
