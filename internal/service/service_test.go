package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/returnguard/internal/aws/awsmock"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/messaging"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/returns"
	"github.com/imrishuroy/returnguard/internal/risk"
)

func intPtr(v int) *int { return &v }

type fixture struct {
	svc        *Service
	db         *awsmock.DynamoDB
	dispatcher *messaging.Mock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := awsmock.NewDynamoDB(map[string]string{"orders": "order_id"}).
		WithIndex("owner_id-index", "owner_id")
	log := logger.NewTestLogger(t)
	dispatcher := messaging.NewRecordingMock(log)
	store := orders.NewStore(db, "orders", "owner_id-index")
	svc := New(store, risk.NewAnalyzer(nil, nil, nil), dispatcher, log)
	return fixture{svc: svc, db: db, dispatcher: dispatcher}
}

func highRisk() risk.Order {
	return risk.Order{
		OrderID:         "1001",
		ProductCategory: "Electronics",
		Price:           6000,
		IsCOD:           true,
		PastReturns:     5,
		PastOrders:      intPtr(8),
		AccountAgeDays:  400,
		CustomerID:      "c-1",
	}
}

func lowRisk() risk.Order {
	return risk.Order{OrderID: "1002", Price: 100, ProductCategory: "Books"}
}

func TestAnalyzeOrder_StoresConfirmedWithSentMessage(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.AnalyzeOrder(context.Background(), "owner-1", highRisk())
	require.NoError(t, err)

	assert.NotEmpty(t, o.OrderID)
	assert.Equal(t, "owner-1", o.OwnerID)
	assert.Equal(t, orders.StatusConfirmed, o.Status)
	assert.Equal(t, orders.SourceManual, o.Source)
	assert.Equal(t, "1001", o.Input.OrderID)
	require.NotNil(t, o.RiskAnalysis)
	assert.Equal(t, 90, o.RiskAnalysis.RiskScore)
	assert.Equal(t, risk.LabelHigh, o.RiskAnalysis.RiskLabel)
	require.NotNil(t, o.GeneratedMessage)
	assert.True(t, o.GeneratedMessage.Sent)

	sent := f.dispatcher.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, o.OrderID, sent[0].OrderID)
	assert.Equal(t, "c-1", sent[0].CustomerID)
}

func TestAnalyzeOrder_LowRiskHasNoMessage(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.AnalyzeOrder(context.Background(), "owner-1", lowRisk())
	require.NoError(t, err)

	assert.Equal(t, risk.LabelModerate, o.RiskAnalysis.RiskLabel)
	assert.Nil(t, o.GeneratedMessage)
	assert.Empty(t, f.dispatcher.Sent())
}

func TestAnalyzeOrder_StoreFailureSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.db.Err = errors.New("dynamodb unavailable")

	_, err := f.svc.AnalyzeOrder(context.Background(), "owner-1", highRisk())
	require.Error(t, err)
	assert.Empty(t, f.dispatcher.Sent(), "customer must not be messaged about an order that was never stored")
}

func TestFileReturn_ExchangeIsPrevented(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.AnalyzeOrder(ctx, "owner-1", lowRisk())
	require.NoError(t, err)

	out, err := f.svc.FileReturn(ctx, "owner-1", ReturnInput{
		OrderID:       o.OrderID,
		Reason:        "Wrong_Size",
		ItemCondition: "opened",
	})
	require.NoError(t, err)

	assert.Equal(t, returns.SuggestExchange, out.Decision.Recommendation)
	assert.True(t, out.Decision.AutoApproved)
	assert.Equal(t, orders.StatusReturnRequested, out.Order.Status)
	assert.True(t, out.Order.IsReturned)
	assert.True(t, out.Order.ReturnPrevented)
	require.NotNil(t, out.Order.ReturnRequest)
	assert.Equal(t, returns.ConditionOpenedUnused, out.Order.ReturnRequest.Condition)

	_, err = f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: o.OrderID, Reason: "defective", ItemCondition: "new"})
	assert.ErrorIs(t, err, ErrAlreadyReturned)
}

func TestFileReturn_HighRiskGoesToReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.AnalyzeOrder(ctx, "owner-1", highRisk())
	require.NoError(t, err)

	out, err := f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: o.OrderID, Reason: "defective", ItemCondition: "new"})
	require.NoError(t, err)

	assert.Equal(t, returns.ManualReview, out.Decision.Recommendation)
	assert.False(t, out.Order.ReturnPrevented)
}

func TestFileReturn_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.AnalyzeOrder(ctx, "owner-1", lowRisk())
	require.NoError(t, err)

	_, err = f.svc.FileReturn(ctx, "someone-else", ReturnInput{OrderID: o.OrderID, Reason: "defective"})
	assert.ErrorIs(t, err, orders.ErrNotFound)

	_, err = f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: "missing", Reason: "defective"})
	assert.ErrorIs(t, err, orders.ErrNotFound)

	store := orders.NewStore(f.db, "orders", "owner_id-index")
	require.NoError(t, store.Add(ctx, orders.Order{OrderID: "pending-1", OwnerID: "owner-1", Status: orders.StatusPending}))
	_, err = f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: "pending-1", Reason: "defective"})
	assert.ErrorIs(t, err, ErrNotAnalyzed)
}

func TestFileReturn_ConcurrentRequestsRecordOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.AnalyzeOrder(ctx, "owner-1", lowRisk())
	require.NoError(t, err)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: o.OrderID, Reason: "defective", ItemCondition: "new"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyReturned)
	}
	assert.Equal(t, 1, ok)

	_, err = f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: o.OrderID, Reason: "wrong_size"})
	assert.ErrorIs(t, err, ErrAlreadyReturned)
}

func TestListOrdersAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.ListOrders(ctx, "owner-1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	st, err := f.svc.Stats(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, orders.Stats{SuccessRate: 100}, st)

	first, err := f.svc.AnalyzeOrder(ctx, "owner-1", lowRisk())
	require.NoError(t, err)
	_, err = f.svc.AnalyzeOrder(ctx, "owner-1", highRisk())
	require.NoError(t, err)
	_, err = f.svc.AnalyzeOrder(ctx, "owner-2", highRisk())
	require.NoError(t, err)
	_, err = f.svc.FileReturn(ctx, "owner-1", ReturnInput{OrderID: first.OrderID, Reason: "defective", ItemCondition: "new"})
	require.NoError(t, err)

	list, err = f.svc.ListOrders(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	st, err = f.svc.Stats(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, orders.Stats{TotalOrders: 2, ReturnRequests: 1, PreventedReturns: 1, SuccessRate: 50}, st)
}
