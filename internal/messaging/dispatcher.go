// Package messaging delivers generated customer messages.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/config"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/risk"
)

// ErrNoMessage is returned when there is nothing to send.
var ErrNoMessage = errors.New("no message to dispatch")

// Envelope addresses a message to the customer of an order.
type Envelope struct {
	OrderID    string
	CustomerID string
	Message    *risk.GeneratedMessage
}

// Dispatcher sends a message and flips its Sent flag on success.
type Dispatcher interface {
	Send(ctx context.Context, env Envelope) error
}

// New selects the dispatcher named by cfg.Provider.
func New(cfg config.MessagingConfig, snsClient aws.SNSAPI, log logger.Logger) (Dispatcher, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMock(log), nil
	case "sns":
		if cfg.TopicARN == "" {
			return nil, fmt.Errorf("messaging: sns provider requires a topic arn")
		}
		return NewSNS(snsClient, cfg.TopicARN), nil
	default:
		return nil, fmt.Errorf("messaging: unknown provider %q", cfg.Provider)
	}
}

// Mock logs messages instead of delivering them. It is safe for concurrent
// use; only a recording mock keeps the envelopes it was given.
type Mock struct {
	log    logger.Logger
	record bool

	mu   sync.Mutex
	sent []Envelope
}

func NewMock(log logger.Logger) *Mock {
	return &Mock{log: log}
}

// NewRecordingMock returns a Mock that also keeps every envelope for
// inspection with Sent.
func NewRecordingMock(log logger.Logger) *Mock {
	return &Mock{log: log, record: true}
}

func (m *Mock) Send(ctx context.Context, env Envelope) error {
	if env.Message == nil {
		return ErrNoMessage
	}
	m.log.Info("mock message sent", map[string]interface{}{
		"order_id":     env.OrderID,
		"channel":      env.Message.Channel,
		"risk_context": string(env.Message.Metadata.RiskContext),
	})
	env.Message.Sent = true
	if m.record {
		m.mu.Lock()
		m.sent = append(m.sent, env)
		m.mu.Unlock()
	}
	return nil
}

// Sent returns a snapshot of the recorded envelopes.
func (m *Mock) Sent() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Envelope(nil), m.sent...)
}

// SNS publishes messages to a topic; a downstream subscriber owns the actual
// channel (WhatsApp, SMS, email) selected by the channel attribute.
type SNS struct {
	client   aws.SNSAPI
	topicARN string
}

func NewSNS(client aws.SNSAPI, topicARN string) *SNS {
	return &SNS{client: client, topicARN: topicARN}
}

func (s *SNS) Send(ctx context.Context, env Envelope) error {
	if env.Message == nil {
		return ErrNoMessage
	}
	attrs := map[string]snstypes.MessageAttributeValue{
		"channel":      stringAttr(env.Message.Channel),
		"risk_context": stringAttr(string(env.Message.Metadata.RiskContext)),
		"order_id":     stringAttr(env.OrderID),
	}
	if env.CustomerID != "" {
		attrs["customer_id"] = stringAttr(env.CustomerID)
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          sdkaws.String(s.topicARN),
		Message:           sdkaws.String(env.Message.Content),
		Subject:           sdkaws.String("Order " + env.OrderID),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	env.Message.Sent = true
	return nil
}

func stringAttr(v string) snstypes.MessageAttributeValue {
	return snstypes.MessageAttributeValue{
		DataType:    sdkaws.String("String"),
		StringValue: sdkaws.String(v),
	}
}
