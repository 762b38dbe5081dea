package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imrishuroy/returnguard/internal/auth"
	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/config"
	"github.com/imrishuroy/returnguard/internal/handlers"
	"github.com/imrishuroy/returnguard/internal/idempotency"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/messaging"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/risk"
	"github.com/imrishuroy/returnguard/internal/service"
	"github.com/imrishuroy/returnguard/internal/users"
)

func setupRouter(cfg *config.Config, clients *aws.AWSClients, log logger.Logger) (*gin.Engine, error) {
	tokens, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	dispatcher, err := messaging.New(cfg.Messaging, clients.SNS, log)
	if err != nil {
		return nil, err
	}

	orderStore := orders.NewStore(clients.DynamoDB, cfg.Tables.Orders, cfg.Tables.OrdersOwnerGSI)
	analyzer := risk.NewAnalyzer(risk.NewEngine(), risk.NewNarrator(cfg.Messaging.Channel), nil)
	svc := service.New(orderStore, analyzer, dispatcher, log)
	userSvc := users.NewService(users.NewStore(clients.DynamoDB, cfg.Tables.Users), tokens)

	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterAuthRoutes(r, userSvc, log)
	handlers.RegisterWebhookRoutes(r, handlers.WebhookConfig{
		Secret:      cfg.Shopify.WebhookSecret,
		OwnerID:     cfg.Shopify.OwnerID,
		Orders:      orderStore,
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.Tables.Idempotency, cfg.Tables.IdempotencyTTL),
		Publisher:   aws.NewPublisher(clients.SQS, cfg.Queue.AnalysisURL),
		Logger:      log,
	})
	handlers.RegisterOrdersRoutes(r.Group("/", auth.RequireAuth(tokens)), svc, log)

	return r, nil
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
	if err := cfg.ValidateAPI(); err != nil {
		log.WithError(err).Error("invalid configuration", nil)
		os.Exit(1)
	}

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWS)
	if err != nil {
		log.WithError(err).Error("failed to init aws clients", nil)
		os.Exit(1)
	}

	r, err := setupRouter(cfg, clients, log)
	if err != nil {
		log.WithError(err).Error("failed to build router", nil)
		os.Exit(1)
	}

	// if RUN_LOCAL is set, run a local HTTP server for development.
	if cfg.Server.RunLocal {
		log.Info("running local server", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := r.Run(cfg.Server.Addr); err != nil {
			log.WithError(err).Error("local server stopped", nil)
			os.Exit(1)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
