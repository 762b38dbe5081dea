package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/config"
	"github.com/imrishuroy/returnguard/internal/idempotency"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/messaging"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/risk"
	"github.com/imrishuroy/returnguard/internal/shopify"
)

func buildProcessor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Processor, error) {
	clients, err := aws.NewAWSClients(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}

	opts := []shopify.Option{shopify.WithLogger(log)}
	if cfg.Redis.Address != "" && cfg.Shopify.CacheTTL > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, shopify.WithCache(shopify.NewRedisCache(rdb, cfg.Shopify.CacheTTL)))
	}
	commerce := shopify.New(cfg.Shopify, opts...)

	var source risk.Source
	if cfg.Narrative.Seed != 0 {
		source = risk.NewSeededSource(cfg.Narrative.Seed)
	}
	analyzer := risk.NewAnalyzer(risk.NewEngine(), risk.NewNarrator(cfg.Messaging.Channel), risk.NewComposer(source))

	dispatcher, err := messaging.New(cfg.Messaging, clients.SNS, log)
	if err != nil {
		return nil, err
	}

	return NewProcessor(
		orders.NewStore(clients.DynamoDB, cfg.Tables.Orders, cfg.Tables.OrdersOwnerGSI),
		idempotency.NewStore(clients.DynamoDB, cfg.Tables.Idempotency, cfg.Tables.IdempotencyTTL),
		commerce,
		analyzer,
		dispatcher,
		aws.NewRiskMetrics(clients.CloudWatch, cfg.AWS.MetricsNamespace),
		log,
	), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.WithError(err).Error("invalid configuration", nil)
		os.Exit(1)
	}

	ctx := context.Background()
	processor, err := buildProcessor(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to build processor", nil)
		os.Exit(1)
	}

	// If RUN_LOCAL=true, process a single simulated SQS event and exit.
	if cfg.Server.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"order_id":"local-order-1","shopify_order_id":"1","webhook_id":"webhook:orders/create:local-1"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: testBody}},
		}
		resp, _ := processor.Handle(ctx, event)
		if len(resp.BatchItemFailures) > 0 {
			log.Error("local job failed", nil)
			os.Exit(1)
		}
		return
	}

	lambda.Start(processor.Handle)
}
