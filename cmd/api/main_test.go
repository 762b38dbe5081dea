package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/aws/awsmock"
	"github.com/imrishuroy/returnguard/internal/config"
	"github.com/imrishuroy/returnguard/internal/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Tables: config.TablesConfig{
			Orders:         "orders",
			OrdersOwnerGSI: "owner_id-index",
			Idempotency:    "idempotency",
			Users:          "users",
		},
		Auth:      config.AuthConfig{JWTSecret: "s", Issuer: "returnguard"},
		Messaging: config.MessagingConfig{Provider: "mock", Channel: "WhatsApp"},
		Shopify:   config.ShopifyConfig{WebhookSecret: "w", OwnerID: "webhook-user"},
	}
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clients := &aws.AWSClients{
		DynamoDB:   awsmock.NewDynamoDB(map[string]string{"orders": "order_id"}),
		SQS:        &awsmock.SQS{},
		CloudWatch: &awsmock.CloudWatch{},
		SNS:        &awsmock.SNS{},
	}
	r, err := setupRouter(testConfig(), clients, logger.NewTestLogger(t))
	require.NoError(t, err)

	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/orders", http.StatusUnauthorized},
		{http.MethodPost, "/webhooks/shopify/orders/create", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, w.Code, tc.path)
	}
}

func TestSetupRouter_RequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	_, err := setupRouter(cfg, &aws.AWSClients{}, logger.NewNoOpLogger())
	assert.Error(t, err)
}
