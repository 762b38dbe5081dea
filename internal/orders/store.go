package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/returnguard/internal/aws"
	"github.com/imrishuroy/returnguard/internal/returns"
)

var (
	// ErrStatusMismatch is returned when a conditional status transition fails.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrNotFound is returned when an order does not exist for the caller.
	ErrNotFound = errors.New("order not found")
	// ErrOrderExists is returned when creating an order whose id is taken.
	ErrOrderExists = errors.New("order already exists")
	// ErrAlreadyReturned is returned when a return was already recorded.
	ErrAlreadyReturned = errors.New("return already requested for this order")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	ownerIndex string
	pageSize   int32
	nowFunc    func() time.Time
}

// NewStore creates a new orders Store. ownerIndex is the GSI keyed by owner_id.
func NewStore(client aws.DynamoDBAPI, tableName, ownerIndex string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		ownerIndex: ownerIndex,
		pageSize:   100,
		nowFunc:    time.Now,
	}
}

func (s *Store) stamp(o *Order) {
	now := s.nowFunc().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
}

// Add persists a new order. Returns ErrOrderExists if the order_id is taken.
func (s *Store) Add(ctx context.Context, o Order) error {
	s.stamp(&o)
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrOrderExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// CreateWithIdempotencyTransaction atomically creates:
//   - idempotency record in idempotencyTable (with ConditionExpression attribute_not_exists(idempotency_key))
//   - order record in orders table (with ConditionExpression attribute_not_exists(order_id))
//
// idempotencyItem must marshal to a map containing idempotency_key.
// A TransactionCanceledException is returned wrapped so callers can inspect it.
func (s *Store) CreateWithIdempotencyTransaction(ctx context.Context, idempotencyTable string, idempotencyItem interface{}, order Order, ttlWindow time.Duration) error {
	idempMap, err := attributevalue.MarshalMap(idempotencyItem)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}
	if _, ok := idempMap["expires_at"]; !ok && ttlWindow > 0 {
		expires := s.nowFunc().Add(ttlWindow).Unix()
		idempMap["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)}
	}

	s.stamp(&order)
	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &idempotencyTable,
					Item:                idempMap,
					ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                orderMap,
					ConditionExpression: awsString("attribute_not_exists(order_id)"),
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("transaction canceled (likely idempotency key exists): %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	key := map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetForOwner fetches an order owned by ownerID. Orders belonging to another
// owner are reported as ErrNotFound.
func (s *Store) GetForOwner(ctx context.Context, orderID, ownerID string) (*Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || o.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByOwner returns every order of ownerID, newest first. It follows
// LastEvaluatedKey until the index is exhausted.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.ownerIndex,
		KeyConditionExpression: awsString("owner_id = :o"),
		Limit:                  &s.pageSize,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
	}

	var out []Order
	for {
		page, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query orders: %w", err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns nil on success, ErrStatusMismatch if condition failed.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	}
	return s.conditionalUpdate(ctx, input, ErrStatusMismatch)
}

// SaveAnalysis stores the pipeline output and moves the order from
// expectedStatus to CONFIRMED.
func (s *Store) SaveAnalysis(ctx context.Context, orderID, expectedStatus string, a Analysis) error {
	input, err := attributevalue.Marshal(a.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	analysis, err := attributevalue.Marshal(a.RiskAnalysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	values := map[string]types.AttributeValue{
		":in":       input,
		":ra":       analysis,
		":new":      &types.AttributeValueMemberS{Value: StatusConfirmed},
		":expected": &types.AttributeValueMemberS{Value: expectedStatus},
		":ua":       &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
	}
	expr := "SET #i = :in, risk_analysis = :ra, #s = :new, updated_at = :ua"
	if a.Message != nil {
		msg, err := attributevalue.Marshal(a.Message)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values[":gm"] = msg
		expr += ", generated_message = :gm"
	}

	return s.conditionalUpdate(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("#s = :expected"),
		ExpressionAttributeNames:  map[string]string{"#s": "status", "#i": "input"},
		ExpressionAttributeValues: values,
	}, ErrStatusMismatch)
}

// MarkMessageSent flags the stored customer message as delivered.
func (s *Store) MarkMessageSent(ctx context.Context, orderID string) error {
	return s.conditionalUpdate(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:    awsString("SET generated_message.sent = :t, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(generated_message)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":ua": &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
	}, ErrNotFound)
}

// RecordReturn stores a return request and its decision. prevented marks the
// return as averted by an exchange offer.
func (s *Store) RecordReturn(ctx context.Context, orderID string, info ReturnInfo, d returns.Decision, prevented bool) error {
	req, err := attributevalue.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal return request: %w", err)
	}
	dec, err := attributevalue.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	err = s.conditionalUpdate(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET return_request = :rr, return_decision = :rd, is_returned = :t, return_prevented = :p, #s = :new, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(order_id) AND is_returned <> :t"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rr":  req,
			":rd":  dec,
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":p":   &types.AttributeValueMemberBOOL{Value: prevented},
			":new": &types.AttributeValueMemberS{Value: StatusReturnRequested},
			":ua":  &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
	}, ErrStatusMismatch)
	if !errors.Is(err, ErrStatusMismatch) {
		return err
	}
	// the condition does not say which clause failed
	existing, getErr := s.Get(ctx, orderID)
	if getErr != nil {
		return getErr
	}
	if existing == nil {
		return ErrNotFound
	}
	return ErrAlreadyReturned
}

// MarkFailed moves the order to FAILED regardless of its current status and
// records why.
func (s *Store) MarkFailed(ctx context.Context, orderID, note string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :failed, note = :n, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(order_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ReleaseForRetry hands an ANALYZING order back to PENDING so a redelivered
// job can claim it again. note records the error that interrupted analysis.
func (s *Store) ReleaseForRetry(ctx context.Context, orderID, note string) error {
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :pending, note = :n, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :analyzing"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":   &types.AttributeValueMemberS{Value: StatusPending},
			":analyzing": &types.AttributeValueMemberS{Value: StatusAnalyzing},
			":n":         &types.AttributeValueMemberS{Value: note},
			":ua":        &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
	}
	return s.conditionalUpdate(ctx, input, ErrStatusMismatch)
}

// IncrementAttempts increases the attempts counter by 1 (useful for worker retries)
func (s *Store) IncrementAttempts(ctx context.Context, orderID string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":zero": &types.AttributeValueMemberN{Value: "0"}, ":inc": &types.AttributeValueMemberN{Value: "1"}, ":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

func (s *Store) conditionalUpdate(ctx context.Context, input *dyn.UpdateItemInput, onFail error) error {
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return onFail
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
