// Package service runs merchant-facing operations over the risk pipeline
// and the orders store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/messaging"
	"github.com/imrishuroy/returnguard/internal/metrics"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/returns"
	"github.com/imrishuroy/returnguard/internal/risk"
)

var (
	// ErrNotAnalyzed is returned when a return is filed before the order has
	// a risk analysis.
	ErrNotAnalyzed = errors.New("order has not been analyzed")
	// ErrAlreadyReturned is returned when a second return is filed.
	ErrAlreadyReturned = orders.ErrAlreadyReturned
)

// Service is used by the HTTP handlers.
type Service struct {
	orders     *orders.Store
	analyzer   *risk.Analyzer
	dispatcher messaging.Dispatcher
	log        logger.Logger
	nowFunc    func() time.Time
}

func New(store *orders.Store, analyzer *risk.Analyzer, dispatcher messaging.Dispatcher, log logger.Logger) *Service {
	return &Service{
		orders:     store,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		log:        log,
		nowFunc:    time.Now,
	}
}

// AnalyzeOrder scores a manually submitted order, stores it as CONFIRMED
// and then attempts to deliver the customer message. A failed delivery is
// logged and leaves the stored message unsent.
func (s *Service) AnalyzeOrder(ctx context.Context, ownerID string, in risk.Order) (*orders.Order, error) {
	res := s.analyzer.Analyze(in, risk.StyleFactors)
	id := uuid.NewString()
	log := s.log.With(map[string]interface{}{"order_id": id, "owner_id": ownerID})

	o := orders.Order{
		OrderID:          id,
		OwnerID:          ownerID,
		Status:           orders.StatusConfirmed,
		Source:           orders.SourceManual,
		Input:            in,
		RiskAnalysis:     &res.Analysis,
		GeneratedMessage: res.Message,
	}
	if err := s.orders.Add(ctx, o); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	metrics.ObserveAnalysis(res.Analysis, orders.SourceManual)

	if res.Message != nil {
		env := messaging.Envelope{OrderID: id, CustomerID: in.CustomerID, Message: res.Message}
		if err := s.dispatcher.Send(ctx, env); err != nil {
			log.WithError(err).Warn("customer message not delivered", nil)
		} else if err := s.orders.MarkMessageSent(ctx, id); err != nil {
			log.WithError(err).Warn("failed to flag message as sent", nil)
		}
	}

	log.Info("order analyzed", map[string]interface{}{
		"risk_score": res.Analysis.RiskScore,
		"risk_label": res.Analysis.RiskLabel,
		"action":     res.Analysis.RecommendedAction,
	})
	return s.orders.Get(ctx, id)
}

// ReturnInput is a return filed by a merchant on behalf of a customer.
type ReturnInput struct {
	OrderID       string
	Reason        string
	ItemCondition string
}

// ReturnOutcome is the stored order together with the decision made for it.
type ReturnOutcome struct {
	Decision returns.Decision `json:"decision"`
	Order    *orders.Order    `json:"order"`
}

// FileReturn runs the disposition engine against the stored analysis of an
// order and records the request. Suggesting an exchange counts as a
// prevented return.
func (s *Service) FileReturn(ctx context.Context, ownerID string, in ReturnInput) (*ReturnOutcome, error) {
	o, err := s.orders.GetForOwner(ctx, in.OrderID, ownerID)
	if err != nil {
		return nil, err
	}
	if o.RiskAnalysis == nil {
		return nil, ErrNotAnalyzed
	}
	if o.IsReturned {
		return nil, ErrAlreadyReturned
	}

	info := orders.ReturnInfo{
		Reason:      in.Reason,
		Condition:   returns.ParseCondition(in.ItemCondition),
		RequestedAt: s.nowFunc().UTC(),
	}
	decision, rule := returns.Explain(returns.Request{
		OrderID:      o.OrderID,
		Condition:    info.Condition,
		Reason:       info.Reason,
		RiskAnalysis: *o.RiskAnalysis,
	})
	prevented := decision.Recommendation == returns.SuggestExchange

	if err := s.orders.RecordReturn(ctx, o.OrderID, info, decision, prevented); err != nil {
		return nil, fmt.Errorf("record return: %w", err)
	}
	metrics.ObserveReturnDecision(decision)

	s.log.Info("return decided", map[string]interface{}{
		"order_id":       o.OrderID,
		"rule":           rule,
		"recommendation": decision.Recommendation,
		"prevented":      prevented,
	})

	updated, err := s.orders.Get(ctx, o.OrderID)
	if err != nil {
		return nil, err
	}
	return &ReturnOutcome{Decision: decision, Order: updated}, nil
}

// GetOrder returns one of the merchant's orders.
func (s *Service) GetOrder(ctx context.Context, ownerID, orderID string) (*orders.Order, error) {
	return s.orders.GetForOwner(ctx, orderID, ownerID)
}

// ListOrders returns the merchant's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, ownerID string) ([]orders.Order, error) {
	list, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []orders.Order{}
	}
	return list, nil
}

// Stats summarises the merchant's orders.
func (s *Service) Stats(ctx context.Context, ownerID string) (orders.Stats, error) {
	list, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return orders.Stats{}, err
	}
	return orders.ComputeStats(list), nil
}
