package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/idempotency"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/messaging"
	"github.com/imrishuroy/returnguard/internal/metrics"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/risk"
	"github.com/imrishuroy/returnguard/internal/shopify"
)

// OrderContextFetcher loads the pipeline input for a platform order.
type OrderContextFetcher interface {
	FetchOrderContext(ctx context.Context, orderID string) (risk.Order, error)
}

// Processor handles SQS analysis jobs and drives the order lifecycle
// PENDING -> ANALYZING -> CONFIRMED.
type Processor struct {
	orderStore *orders.Store
	idempStore *idempotency.Store
	commerce   OrderContextFetcher
	analyzer   *risk.Analyzer
	dispatcher messaging.Dispatcher
	cloudwatch *aws.RiskMetrics
	log        logger.Logger
}

// NewProcessor creates a new worker processor with its collaborators injected.
func NewProcessor(
	orderStore *orders.Store,
	idempStore *idempotency.Store,
	commerce OrderContextFetcher,
	analyzer *risk.Analyzer,
	dispatcher messaging.Dispatcher,
	cloudwatch *aws.RiskMetrics,
	log logger.Logger,
) *Processor {
	return &Processor{
		orderStore: orderStore,
		idempStore: idempStore,
		commerce:   commerce,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		cloudwatch: cloudwatch,
		log:        log,
	}
}

// Handle processes an SQS batch. Failed messages are reported individually
// so only they are redelivered; after too many receives SQS moves them to
// the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.WithError(err).Error("analysis job failed", map[string]interface{}{
				"message_id": rec.MessageId,
			})
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var job aws.AnalysisJob
	if err := json.Unmarshal([]byte(rec.Body), &job); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	log := p.log.With(map[string]interface{}{
		"order_id":         job.OrderID,
		"shopify_order_id": job.ShopifyOrderID,
		"webhook_id":       job.WebhookID,
		"correlation_id":   job.CorrelationID,
	})
	log.Info("received analysis job", nil)

	// Step 1: Read the current order
	order, err := p.orderStore.Get(ctx, job.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", job.OrderID)
	}
	if err := p.orderStore.IncrementAttempts(ctx, job.OrderID); err != nil {
		return err
	}

	// Step 2: Move PENDING -> ANALYZING (idempotent)
	err = p.orderStore.UpdateStatus(ctx, job.OrderID, orders.StatusPending, orders.StatusAnalyzing)
	if errors.Is(err, orders.ErrStatusMismatch) {
		current, getErr := p.orderStore.Get(ctx, job.OrderID)
		if getErr != nil || current == nil {
			return fmt.Errorf("re-read order after status mismatch: %v", getErr)
		}
		switch current.Status {
		case orders.StatusConfirmed, orders.StatusReturnRequested:
			log.Info("order already analyzed", nil)
			return p.finishWebhook(ctx, job, current)
		case orders.StatusAnalyzing:
			log.Info("duplicate analysis event", nil)
			return nil
		case orders.StatusFailed:
			return fmt.Errorf("order=%s is already FAILED", job.OrderID)
		default:
			return fmt.Errorf("unexpected status for order=%s: %s", job.OrderID, current.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to update status to ANALYZING: %w", err)
	}

	// Step 3: Fetch the platform context and score it
	input, err := p.commerce.FetchOrderContext(ctx, job.ShopifyOrderID)
	if err != nil {
		return p.fail(ctx, job, fmt.Errorf("fetch order context: %w", err))
	}
	res := p.analyzer.Analyze(input, risk.StyleComposed)

	// Step 4: ANALYZING -> CONFIRMED with the analysis attached
	err = p.orderStore.SaveAnalysis(ctx, job.OrderID, orders.StatusAnalyzing, orders.Analysis{
		Input:        input,
		RiskAnalysis: res.Analysis,
		Message:      res.Message,
	})
	if err != nil {
		return p.fail(ctx, job, fmt.Errorf("save analysis: %w", err))
	}
	metrics.ObserveAnalysis(res.Analysis, orders.SourceShopify)

	// Step 5: deliver the customer message; delivery problems do not undo
	// the analysis
	if res.Message != nil {
		env := messaging.Envelope{OrderID: job.OrderID, CustomerID: input.CustomerID, Message: res.Message}
		if err := p.dispatcher.Send(ctx, env); err != nil {
			log.WithError(err).Warn("customer message not delivered", nil)
		} else if err := p.orderStore.MarkMessageSent(ctx, job.OrderID); err != nil {
			log.WithError(err).Warn("failed to flag message as sent", nil)
		}
	}

	if err := p.cloudwatch.PublishAnalysis(ctx, res.Analysis); err != nil {
		log.WithError(err).Warn("failed to publish cloudwatch metrics", nil)
	}

	// Step 6: Mark idempotency DONE (API created the record)
	if err := p.markDone(ctx, job, res.Analysis.RiskLabel); err != nil {
		return err
	}

	log.Info("order analyzed", map[string]interface{}{
		"risk_score": res.Analysis.RiskScore,
		"risk_label": res.Analysis.RiskLabel,
		"action":     res.Analysis.RecommendedAction,
	})
	return nil
}

// finishWebhook completes the idempotency record of an order analysed by an
// earlier delivery whose final write did not land.
func (p *Processor) finishWebhook(ctx context.Context, job aws.AnalysisJob, o *orders.Order) error {
	if job.WebhookID == "" {
		return nil
	}
	rec, err := p.idempStore.Get(ctx, job.WebhookID)
	if err != nil {
		return fmt.Errorf("failed to read idempotency: %w", err)
	}
	if rec == nil || rec.Status == idempotency.StatusDone {
		return nil
	}
	var label risk.Label
	if o.RiskAnalysis != nil {
		label = o.RiskAnalysis.RiskLabel
	}
	return p.markDone(ctx, job, label)
}

func (p *Processor) markDone(ctx context.Context, job aws.AnalysisJob, label risk.Label) error {
	response, _ := json.Marshal(map[string]interface{}{
		"order_id":   job.OrderID,
		"status":     orders.StatusConfirmed,
		"risk_label": label,
	})
	if err := p.idempStore.MarkDone(ctx, job.WebhookID, string(response), http.StatusOK); err != nil {
		return fmt.Errorf("failed to update idempotency: %w", err)
	}
	return nil
}

// fail records an analysis that did not complete. Retryable causes hand the
// order back to PENDING and leave the webhook record IN_PROGRESS so the
// redelivered message can claim it again; permanent ones mark both FAILED.
// cause is returned either way so the message is reported to SQS.
func (p *Processor) fail(ctx context.Context, job aws.AnalysisJob, cause error) error {
	metrics.AnalysisJobsFailed.Inc()
	note := cause.Error()
	fields := map[string]interface{}{"order_id": job.OrderID}

	if !shopify.IsPermanent(cause) {
		if err := p.orderStore.ReleaseForRetry(ctx, job.OrderID, note); err != nil {
			p.log.WithError(err).Error("failed to release order for retry", fields)
		}
		return cause
	}

	if err := p.orderStore.MarkFailed(ctx, job.OrderID, note); err != nil {
		p.log.WithError(err).Error("failed to mark order FAILED", fields)
	}
	if job.WebhookID != "" {
		if err := p.idempStore.MarkFailed(ctx, job.WebhookID, note); err != nil {
			p.log.WithError(err).Error("failed to mark idempotency FAILED", map[string]interface{}{"key": job.WebhookID})
		}
	}
	return cause
}
