package awsmock

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func s(v string) *types.AttributeValueMemberS { return &types.AttributeValueMemberS{Value: v} }

func TestUpdateItem_NestedAndIncrement(t *testing.T) {
	m := NewDynamoDB(map[string]string{"t": "id"})
	m.Seed("t", map[string]types.AttributeValue{
		"id":  s("a"),
		"msg": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"sent": &types.AttributeValueMemberBOOL{Value: false}}},
	})

	_, err := m.UpdateItem(context.Background(), &dyn.UpdateItemInput{
		TableName:        sdkaws.String("t"),
		Key:              map[string]types.AttributeValue{"id": s("a")},
		UpdateExpression: sdkaws.String("SET msg.sent = :t, attempts = if_not_exists(attempts, :zero) + :inc"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":    &types.AttributeValueMemberBOOL{Value: true},
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	it := m.Item("t", "a")
	sent := it["msg"].(*types.AttributeValueMemberM).Value["sent"].(*types.AttributeValueMemberBOOL)
	if !sent.Value {
		t.Fatalf("nested attribute not updated")
	}
	if n := it["attempts"].(*types.AttributeValueMemberN).Value; n != "1" {
		t.Fatalf("expected attempts=1, got %s", n)
	}
}

func TestUpdateItem_ConditionFails(t *testing.T) {
	m := NewDynamoDB(map[string]string{"t": "id"})
	m.Seed("t", map[string]types.AttributeValue{"id": s("a"), "status": s("DONE")})

	_, err := m.UpdateItem(context.Background(), &dyn.UpdateItemInput{
		TableName:                 sdkaws.String("t"),
		Key:                       map[string]types.AttributeValue{"id": s("a")},
		UpdateExpression:          sdkaws.String("SET #s = :new"),
		ConditionExpression:       sdkaws.String("#s = :expected"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":new": s("X"), ":expected": s("PENDING")},
	})
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		t.Fatalf("expected ConditionalCheckFailedException, got %v", err)
	}
}

func TestUpdateItem_NotEqualCondition(t *testing.T) {
	m := NewDynamoDB(map[string]string{"t": "id"})
	m.Seed("t", map[string]types.AttributeValue{"id": s("a")})

	flag := func() error {
		_, err := m.UpdateItem(context.Background(), &dyn.UpdateItemInput{
			TableName:                 sdkaws.String("t"),
			Key:                       map[string]types.AttributeValue{"id": s("a")},
			UpdateExpression:          sdkaws.String("SET done = :t"),
			ConditionExpression:       sdkaws.String("attribute_exists(id) AND done <> :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}},
		})
		return err
	}

	// absent attribute satisfies <>
	if err := flag(); err != nil {
		t.Fatalf("first update: %v", err)
	}
	var ccf *types.ConditionalCheckFailedException
	if err := flag(); !errors.As(err, &ccf) {
		t.Fatalf("expected ConditionalCheckFailedException, got %v", err)
	}
}

func TestQuery_IndexAndPagination(t *testing.T) {
	m := NewDynamoDB(map[string]string{"t": "id"}).WithIndex("owner-index", "owner")
	for _, id := range []string{"a", "b", "c"} {
		m.Seed("t", map[string]types.AttributeValue{"id": s(id), "owner": s("u1")})
	}
	m.Seed("t", map[string]types.AttributeValue{"id": s("d"), "owner": s("u2")})

	in := &dyn.QueryInput{
		TableName:                 sdkaws.String("t"),
		IndexName:                 sdkaws.String("owner-index"),
		KeyConditionExpression:    sdkaws.String("owner = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":o": s("u1")},
		Limit:                     sdkaws.Int32(2),
	}
	page1, err := m.Query(context.Background(), in)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(page1.Items) != 2 || page1.LastEvaluatedKey == nil {
		t.Fatalf("expected a full first page with a cursor, got %d items", len(page1.Items))
	}

	in.ExclusiveStartKey = page1.LastEvaluatedKey
	page2, err := m.Query(context.Background(), in)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(page2.Items) != 1 || page2.LastEvaluatedKey != nil {
		t.Fatalf("expected final page with 1 item, got %d", len(page2.Items))
	}
}
