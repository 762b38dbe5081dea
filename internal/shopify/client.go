// Package shopify fetches the order context the risk pipeline needs from the
// Shopify Admin REST API and verifies webhook signatures.
package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/imrishuroy/returnguard/internal/config"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/risk"
)

const (
	defaultAPIVersion  = "2024-01"
	customerOrderLimit = 50
	maxErrorBody       = 1 << 10
)

var (
	ErrNotConfigured = errors.New("shopify credentials not configured")
	ErrOrderNotFound = errors.New("order or customer data not found in shopify")
	ErrCircuitOpen   = errors.New("shopify unavailable: circuit breaker is open")
)

// UpstreamError is a non-2xx answer from the Admin API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify api error: %d - %s", e.StatusCode, e.Body)
}

// IsPermanent reports whether err is an answer that repeating the same
// request cannot change. Rate limiting, 5xx responses, an open breaker and
// transport errors are all worth retrying.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrNotConfigured) {
		return true
	}
	var ue *UpstreamError
	return errors.As(err, &ue) &&
		ue.StatusCode >= http.StatusBadRequest &&
		ue.StatusCode < http.StatusInternalServerError &&
		ue.StatusCode != http.StatusTooManyRequests
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one shop.
type Client struct {
	shopURL    string
	token      string
	apiVersion string

	http    HTTPDoer
	breaker *gobreaker.CircuitBreaker
	cache   Cache
	log     logger.Logger
	nowFunc func() time.Time
}

// Option customises a Client.
type Option func(*Client)

func WithHTTPClient(h HTTPDoer) Option {
	return func(c *Client) { c.http = h }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock overrides the clock used to compute account age.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.nowFunc = now }
}

// New builds a client from configuration. Requests go through a circuit
// breaker unless cfg.Breaker.Enabled is false.
func New(cfg config.ShopifyConfig, opts ...Option) *Client {
	c := &Client{
		shopURL:    strings.TrimRight(cfg.ShopURL, "/"),
		token:      cfg.AdminToken,
		apiVersion: cfg.APIVersion,
		http:       &http.Client{Timeout: cfg.Timeout},
		log:        logger.NewNoOpLogger(),
		nowFunc:    time.Now,
	}
	if c.apiVersion == "" {
		c.apiVersion = defaultAPIVersion
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.log)
	}
	return c
}

func newBreaker(bc config.BreakerConfig, log logger.Logger) *gobreaker.CircuitBreaker {
	failureRatio := bc.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	minRequests := bc.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "shopify",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		// A missing order is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
}

// FetchOrderContext loads an order and its customer's recent history and
// maps them onto the pipeline input. Failures are returned as-is; there are
// no retries.
func (c *Client) FetchOrderContext(ctx context.Context, orderID string) (risk.Order, error) {
	if c.shopURL == "" || c.token == "" {
		return risk.Order{}, ErrNotConfigured
	}

	key := cacheKey(orderID)
	if c.cache != nil {
		if o, ok, err := c.cache.Get(ctx, key); err != nil {
			c.log.WithError(err).Warn("shopify cache read failed", map[string]interface{}{"order_id": orderID})
		} else if ok {
			return o, nil
		}
	}

	var od orderEnvelope
	if err := c.get(ctx, "orders/"+orderID+".json", &od); err != nil {
		return risk.Order{}, err
	}
	if od.Order == nil || od.Order.Customer == nil {
		return risk.Order{}, ErrOrderNotFound
	}

	var history ordersEnvelope
	path := fmt.Sprintf("customers/%d/orders.json?limit=%d", od.Order.Customer.ID, customerOrderLimit)
	if err := c.get(ctx, path, &history); err != nil {
		return risk.Order{}, err
	}

	out := toRiskOrder(*od.Order, history.Orders, c.nowFunc())
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, out); err != nil {
			c.log.WithError(err).Warn("shopify cache write failed", map[string]interface{}{"order_id": orderID})
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	call := func() (interface{}, error) {
		return nil, c.doGet(ctx, endpoint, out)
	}
	if c.breaker == nil {
		_, err := call()
		return err
	}
	_, err := c.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (c *Client) doGet(ctx context.Context, endpoint string, out interface{}) error {
	url := fmt.Sprintf("%s/admin/api/%s/%s", c.shopURL, c.apiVersion, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shopify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode shopify response: %w", err)
	}
	return nil
}

// toRiskOrder derives the pipeline input. A past order counts as a return
// when it carries at least one refund.
func toRiskOrder(o shopifyOrder, history []shopifyOrder, now time.Time) risk.Order {
	pastReturns := 0
	for _, h := range history {
		if len(h.Refunds) > 0 {
			pastReturns++
		}
	}

	cust := o.Customer
	ordersCount := cust.OrdersCount
	totalSpent, _ := strconv.ParseFloat(cust.TotalSpent, 64)
	price, _ := strconv.ParseFloat(o.TotalPrice, 64)

	var avg, rate float64
	if ordersCount > 0 {
		avg = totalSpent / float64(ordersCount)
		rate = float64(pastReturns) / float64(ordersCount) * 100
	}

	ageDays := 0
	if !cust.CreatedAt.IsZero() {
		ageDays = int(now.Sub(cust.CreatedAt).Hours() / 24)
	}

	id := o.Name
	if id == "" {
		id = strconv.FormatInt(o.ID, 10)
	}
	category := "General"
	if len(o.LineItems) > 0 && o.LineItems[0].ProductType != "" {
		category = o.LineItems[0].ProductType
	}
	cod := o.Gateway == "manual"
	payment := "CARD"
	if cod {
		payment = "COD"
	}

	return risk.Order{
		OrderID:               id,
		ProductCategory:       category,
		Price:                 price,
		PaymentMethod:         payment,
		IsCOD:                 cod,
		CustomerID:            strconv.FormatInt(cust.ID, 10),
		CustomerName:          strings.TrimSpace(cust.FirstName),
		AccountAgeDays:        ageDays,
		PastReturns:           pastReturns,
		PastOrders:            &ordersCount,
		ReturnHistoryCount:    &pastReturns,
		ReturnRate:            rate,
		CustomerAvgOrderValue: avg,
	}
}
