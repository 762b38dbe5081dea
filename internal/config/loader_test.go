package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "orders", cfg.Tables.Orders)
	assert.Equal(t, 48*time.Hour, cfg.Tables.IdempotencyTTL)
	assert.Equal(t, "2024-01", cfg.Shopify.APIVersion)
	assert.Equal(t, 10*time.Second, cfg.Shopify.Timeout)
	assert.True(t, cfg.Shopify.Breaker.Enabled)
	assert.Equal(t, "mock", cfg.Messaging.Provider)
	assert.Equal(t, "WhatsApp", cfg.Messaging.Channel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORDERS_TABLE", "legacy-orders")
	t.Setenv("RETURNGUARD_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("RETURNGUARD_SHOPIFY_TIMEOUT", "3s")
	t.Setenv("RETURNGUARD_NARRATIVE_SEED", "42")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "legacy-orders", cfg.Tables.Orders)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 3*time.Second, cfg.Shopify.Timeout)
	assert.Equal(t, uint64(42), cfg.Narrative.Seed)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("messaging:\n  provider: sns\n  topic_arn: arn:aws:sns:us-east-1:123:msgs\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "sns", cfg.Messaging.Provider)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:msgs", cfg.Messaging.TopicARN)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	err = cfg.ValidateAPI()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue.analysis_url")
	assert.Contains(t, err.Error(), "auth.jwt_secret")

	cfg.Queue.AnalysisURL = "https://sqs.local/q"
	cfg.Auth.JWTSecret = "x"
	cfg.Shopify.WebhookSecret = "y"
	assert.NoError(t, cfg.ValidateAPI())

	err = cfg.ValidateWorker()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shopify.shop_url")
}
