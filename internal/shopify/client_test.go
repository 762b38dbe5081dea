package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/returnguard/internal/config"
	"github.com/imrishuroy/returnguard/internal/logger"
)

const orderJSON = `{"order":{"id":450789469,"name":"#1001","total_price":"6000.00","gateway":"manual",
"customer":{"id":207119551,"first_name":"Bob","created_at":"2025-12-01T10:00:00Z","total_spent":"4000.00","orders_count":8},
"line_items":[{"product_type":"Electronics"}]}}`

const historyJSON = `{"orders":[
{"id":1,"refunds":[{"id":11}]},
{"id":2,"refunds":[]},
{"id":3,"refunds":[{"id":33}]},
{"id":4}]}`

var fixedNow = time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

type fakeShop struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newFakeShop(t *testing.T, status int) *fakeShop {
	t.Helper()
	fs := &fakeShop{}
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/2024-01/orders/450789469.json", func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		if r.Header.Get("X-Shopify-Access-Token") != "shpat_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if status != http.StatusOK {
			http.Error(w, "upstream says no", status)
			return
		}
		_, _ = w.Write([]byte(orderJSON))
	})
	mux.HandleFunc("/admin/api/2024-01/customers/207119551/orders.json", func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(historyJSON))
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func testConfig(url string) config.ShopifyConfig {
	return config.ShopifyConfig{
		ShopURL:    url,
		AdminToken: "shpat_test",
		APIVersion: "2024-01",
		Timeout:    2 * time.Second,
		Breaker: config.BreakerConfig{
			Enabled:      true,
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  2,
			FailureRatio: 0.5,
		},
	}
}

func TestFetchOrderContext_DerivesFields(t *testing.T) {
	shop := newFakeShop(t, http.StatusOK)
	c := New(testConfig(shop.srv.URL), WithClock(func() time.Time { return fixedNow }))

	o, err := c.FetchOrderContext(context.Background(), "450789469")
	require.NoError(t, err)

	assert.Equal(t, "#1001", o.OrderID)
	assert.Equal(t, "Electronics", o.ProductCategory)
	assert.Equal(t, 6000.0, o.Price)
	assert.True(t, o.IsCOD)
	assert.Equal(t, "COD", o.PaymentMethod)
	assert.Equal(t, "207119551", o.CustomerID)
	assert.Equal(t, "Bob", o.CustomerName)
	assert.Equal(t, 40, o.AccountAgeDays)
	assert.Equal(t, 2, o.PastReturns)
	require.NotNil(t, o.PastOrders)
	assert.Equal(t, 8, *o.PastOrders)
	require.NotNil(t, o.ReturnHistoryCount)
	assert.Equal(t, 2, *o.ReturnHistoryCount)
	assert.Equal(t, 500.0, o.CustomerAvgOrderValue)
	assert.Equal(t, 25.0, o.ReturnRate)
	assert.Equal(t, int32(2), shop.hits.Load())
}

func TestFetchOrderContext_NotConfigured(t *testing.T) {
	c := New(config.ShopifyConfig{})

	_, err := c.FetchOrderContext(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetchOrderContext_NotFoundDoesNotTripBreaker(t *testing.T) {
	shop := newFakeShop(t, http.StatusNotFound)
	c := New(testConfig(shop.srv.URL))

	for i := 0; i < 5; i++ {
		_, err := c.FetchOrderContext(context.Background(), "450789469")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	}
	assert.Equal(t, int32(5), shop.hits.Load())
}

func TestFetchOrderContext_UpstreamErrorTripsBreaker(t *testing.T) {
	shop := newFakeShop(t, http.StatusBadGateway)
	c := New(testConfig(shop.srv.URL), WithLogger(logger.NewTestLogger(t)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.FetchOrderContext(ctx, "450789469")
		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
		assert.Contains(t, ue.Body, "upstream says no")
	}

	_, err := c.FetchOrderContext(ctx, "450789469")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), shop.hits.Load(), "open breaker must not reach the upstream")
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", fmt.Errorf("fetch order context: %w", ErrOrderNotFound), true},
		{"not configured", ErrNotConfigured, true},
		{"unauthorized", &UpstreamError{StatusCode: http.StatusUnauthorized}, true},
		{"rate limited", &UpstreamError{StatusCode: http.StatusTooManyRequests}, false},
		{"bad gateway", fmt.Errorf("fetch order context: %w", &UpstreamError{StatusCode: http.StatusBadGateway}), false},
		{"breaker open", ErrCircuitOpen, false},
		{"transport", errors.New("dial tcp: connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsPermanent(tc.err))
		})
	}
}

func TestFetchOrderContext_BreakerDisabled(t *testing.T) {
	shop := newFakeShop(t, http.StatusBadGateway)
	cfg := testConfig(shop.srv.URL)
	cfg.Breaker.Enabled = false
	c := New(cfg)

	for i := 0; i < 4; i++ {
		_, err := c.FetchOrderContext(context.Background(), "450789469")
		var ue *UpstreamError
		assert.ErrorAs(t, err, &ue)
	}
	assert.Equal(t, int32(4), shop.hits.Load())
}

func TestFetchOrderContext_UsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	shop := newFakeShop(t, http.StatusOK)
	c := New(testConfig(shop.srv.URL),
		WithClock(func() time.Time { return fixedNow }),
		WithCache(NewRedisCache(rdb, 10*time.Minute)),
	)
	ctx := context.Background()

	first, err := c.FetchOrderContext(ctx, "450789469")
	require.NoError(t, err)
	second, err := c.FetchOrderContext(ctx, "450789469")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), shop.hits.Load(), "second fetch should be served from cache")
	assert.True(t, mr.Exists(cacheKey("450789469")))
	assert.Equal(t, 10*time.Minute, mr.TTL(cacheKey("450789469")))
}

func TestFetchOrderContext_CacheFailureFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	shop := newFakeShop(t, http.StatusOK)
	c := New(testConfig(shop.srv.URL), WithCache(NewRedisCache(rdb, time.Minute)))

	o, err := c.FetchOrderContext(context.Background(), "450789469")
	require.NoError(t, err)
	assert.Equal(t, "#1001", o.OrderID)
}

func TestToRiskOrder_Defaults(t *testing.T) {
	o := toRiskOrder(shopifyOrder{
		ID:         42,
		TotalPrice: "19.99",
		Gateway:    "shopify_payments",
		Customer:   &shopifyCustomer{ID: 7},
		LineItems:  []lineItem{{ProductType: ""}},
	}, nil, fixedNow)

	assert.Equal(t, "42", o.OrderID)
	assert.Equal(t, "General", o.ProductCategory)
	assert.Equal(t, "CARD", o.PaymentMethod)
	assert.False(t, o.IsCOD)
	assert.Equal(t, 0, o.AccountAgeDays)
	assert.Equal(t, 0.0, o.ReturnRate)
	assert.Equal(t, 0.0, o.CustomerAvgOrderValue)
}
