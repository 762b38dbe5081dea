package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/idempotency"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/metrics"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/risk"
	"github.com/imrishuroy/returnguard/internal/shopify"
)

// WebhookConfig groups dependencies for the platform webhook handler.
type WebhookConfig struct {
	Secret      string
	OwnerID     string
	Orders      *orders.Store
	Idempotency *idempotency.Store
	Publisher   *aws.Publisher
	Logger      logger.Logger
}

// RegisterWebhookRoutes registers the Shopify orders/create webhook. The
// route authenticates with the HMAC signature rather than a bearer token.
func RegisterWebhookRoutes(r gin.IRoutes, cfg WebhookConfig) {
	log := cfg.Logger

	r.POST("/webhooks/shopify/orders/create", func(c *gin.Context) {
		ctx := c.Request.Context()

		// The signature covers the raw bytes, so read before decoding.
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
			return
		}
		if !shopify.VerifyWebhook(cfg.Secret, body, c.GetHeader(shopify.HeaderHmac)) {
			metrics.WebhooksReceived.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
			return
		}

		var payload shopify.WebhookOrder
		if err := json.Unmarshal(body, &payload); err != nil || payload.ID == 0 {
			metrics.WebhooksReceived.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}
		if !payload.HasCustomer() {
			metrics.WebhooksReceived.WithLabelValues("ignored").Inc()
			c.JSON(http.StatusOK, gin.H{"received": true, "note": "No customer data"})
			return
		}

		shopifyID := strconv.FormatInt(payload.ID, 10)
		topic := c.GetHeader(shopify.HeaderTopic)
		if topic == "" {
			topic = shopify.TopicOrdersCreate
		}
		// Redeliveries reuse the webhook id; fall back to the order id when
		// the header is missing so a resend of the same order still dedupes.
		deliveryID := c.GetHeader(shopify.HeaderWebhookID)
		if deliveryID == "" {
			deliveryID = "order-" + shopifyID
		}
		key := idempotency.WebhookKey(topic, deliveryID)
		correlationID := c.GetHeader("X-Request-Id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		reqLog := log.With(map[string]interface{}{
			"idempotency_key":  key,
			"shopify_order_id": shopifyID,
			"correlation_id":   correlationID,
		})

		orderID := uuid.NewString()
		displayID := payload.Name
		if displayID == "" {
			displayID = shopifyID
		}
		order := orders.Order{
			OrderID:        orderID,
			OwnerID:        cfg.OwnerID,
			Status:         orders.StatusPending,
			Source:         orders.SourceShopify,
			ShopifyOrderID: shopifyID,
			Input:          risk.Order{OrderID: displayID},
		}
		rec := cfg.Idempotency.NewRecord(key, topic, orderID)

		// Create the idempotency record and the order atomically.
		err = cfg.Orders.CreateWithIdempotencyTransaction(ctx, cfg.Idempotency.TableName(), rec, order, cfg.Idempotency.TTL())
		if err != nil {
			if !idempotency.IsDuplicate(err) {
				reqLog.WithError(err).Error("create order failed", nil)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
				return
			}
			handleDuplicate(c, cfg, reqLog, key, shopifyID, correlationID)
			return
		}

		job := aws.AnalysisJob{
			OrderID:        orderID,
			ShopifyOrderID: shopifyID,
			WebhookID:      key,
			CorrelationID:  correlationID,
		}
		if err := cfg.Publisher.SendAnalysisJob(ctx, job); err != nil {
			// mark idempotency failed so the platform's retry re-enqueues
			_ = cfg.Idempotency.MarkFailed(ctx, key, fmt.Sprintf("sqs_send_failed: %v", err))
			metrics.WebhooksReceived.WithLabelValues("failed").Inc()
			reqLog.WithError(err).Error("enqueue analysis job failed", nil)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed"})
			return
		}

		metrics.WebhooksReceived.WithLabelValues("accepted").Inc()
		reqLog.Info("webhook accepted", map[string]interface{}{"order_id": orderID})
		c.JSON(http.StatusOK, gin.H{"received": true, "order_id": orderID})
	})
}

// handleDuplicate answers a redelivered webhook from its idempotency record.
// A record left FAILED by an enqueue error gets its job sent again.
func handleDuplicate(c *gin.Context, cfg WebhookConfig, log logger.Logger, key, shopifyID, correlationID string) {
	ctx := c.Request.Context()

	rec, err := cfg.Idempotency.Get(ctx, key)
	if err != nil {
		log.WithError(err).Error("idempotency lookup failed", nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
		return
	}
	if rec == nil {
		// the transaction failed on the order put, not the idempotency put
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction_failed_no_idempotency_record"})
		return
	}

	switch rec.Status {
	case idempotency.StatusDone, idempotency.StatusInProgress:
		metrics.WebhooksReceived.WithLabelValues("duplicate").Inc()
		log.Info("duplicate webhook", map[string]interface{}{"status": rec.Status})
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true, "order_id": rec.OrderID})
	case idempotency.StatusFailed:
		job := aws.AnalysisJob{
			OrderID:        rec.OrderID,
			ShopifyOrderID: shopifyID,
			WebhookID:      key,
			CorrelationID:  correlationID,
		}
		if err := cfg.Publisher.SendAnalysisJob(ctx, job); err != nil {
			metrics.WebhooksReceived.WithLabelValues("failed").Inc()
			log.WithError(err).Error("re-enqueue analysis job failed", nil)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed"})
			return
		}
		metrics.WebhooksReceived.WithLabelValues("requeued").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true, "requeued": true, "order_id": rec.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}
