// Package awsmock provides in-memory fakes of the AWS client interfaces for
// unit tests. The DynamoDB fake understands the small expression grammar the
// stores use: SET assignments (including nested paths and
// if_not_exists(x, :v) + :inc), equality and attribute_(not_)exists
// conditions joined by AND, and single-attribute key conditions on queries.
package awsmock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// DynamoDB is a mutex-guarded map of table -> primary key -> item.
type DynamoDB struct {
	mu sync.Mutex

	// Tables holds the stored items. Tests may seed or inspect it directly.
	Tables map[string]map[string]item
	// keys maps a table name to its partition key attribute.
	keys map[string]string
	// indexes maps a GSI name to its partition key attribute.
	indexes map[string]string

	// Err, when set, is returned from every call.
	Err error

	PutCalls, GetCalls, UpdateCalls, TransactCalls, QueryCalls int
}

// NewDynamoDB creates a fake where keys maps table names to partition key
// attributes, e.g. {"orders": "order_id"}.
func NewDynamoDB(keys map[string]string) *DynamoDB {
	return &DynamoDB{
		Tables:  map[string]map[string]item{},
		keys:    keys,
		indexes: map[string]string{},
	}
}

// WithIndex registers a global secondary index keyed by attr.
func (m *DynamoDB) WithIndex(name, attr string) *DynamoDB {
	m.indexes[name] = attr
	return m
}

// Item returns the stored item or nil.
func (m *DynamoDB) Item(table, pk string) map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tables[table][pk]
}

// Seed stores an item as-is.
func (m *DynamoDB) Seed(table string, it map[string]types.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := m.pkOf(table, it)
	if err != nil {
		panic(err)
	}
	m.table(table)[pk] = it
}

func (m *DynamoDB) table(name string) map[string]item {
	if _, ok := m.Tables[name]; !ok {
		m.Tables[name] = map[string]item{}
	}
	return m.Tables[name]
}

func (m *DynamoDB) pkOf(table string, it item) (string, error) {
	attr, ok := m.keys[table]
	if !ok {
		return "", fmt.Errorf("awsmock: no key configured for table %q", table)
	}
	v, ok := it[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("awsmock: missing %s in item for table %q", attr, table)
	}
	return v.Value, nil
}

func (m *DynamoDB) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	table := *params.TableName
	pk, err := m.pkOf(table, params.Item)
	if err != nil {
		return nil, err
	}
	existing := m.table(table)[pk]
	if !conditionHolds(params.ConditionExpression, existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}
	m.table(table)[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *DynamoDB) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	table := *params.TableName
	pk, err := m.pkOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	it, ok := m.table(table)[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: it}, nil
}

func (m *DynamoDB) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	table := *params.TableName
	pk, err := m.pkOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing := m.table(table)[pk]
	if !conditionHolds(params.ConditionExpression, existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}

	updated := item{}
	for k, v := range existing {
		updated[k] = v
	}
	for k, v := range params.Key {
		updated[k] = v
	}
	if params.UpdateExpression != nil {
		if err := applySet(updated, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	m.table(table)[pk] = updated
	return &dyn.UpdateItemOutput{Attributes: updated}, nil
}

func (m *DynamoDB) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransactCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	// First pass: verify condition expressions
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	canceled := false
	for i, ti := range params.TransactItems {
		p := ti.Put
		if p == nil {
			return nil, errors.New("awsmock: only Put is supported in transactions")
		}
		pk, err := m.pkOf(*p.TableName, p.Item)
		if err != nil {
			return nil, err
		}
		reasons[i] = types.CancellationReason{Code: sdkaws.String("None")}
		if !conditionHolds(p.ConditionExpression, m.table(*p.TableName)[pk], p.ExpressionAttributeNames, p.ExpressionAttributeValues) {
			reasons[i] = types.CancellationReason{Code: sdkaws.String("ConditionalCheckFailed")}
			canceled = true
		}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             sdkaws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	// Second pass: apply all puts
	for _, ti := range params.TransactItems {
		pk, _ := m.pkOf(*ti.Put.TableName, ti.Put.Item)
		m.table(*ti.Put.TableName)[pk] = ti.Put.Item
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// Query supports "attr = :v" key conditions on the base table or a
// registered index. Results are ordered by primary key and paginated by
// Limit / ExclusiveStartKey.
func (m *DynamoDB) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	table := *params.TableName
	if params.KeyConditionExpression == nil {
		return nil, errors.New("awsmock: missing key condition")
	}
	lhs, rhs, ok := strings.Cut(*params.KeyConditionExpression, "=")
	if !ok {
		return nil, fmt.Errorf("awsmock: unsupported key condition %q", *params.KeyConditionExpression)
	}
	attr := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames)
	want := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]
	if params.IndexName != nil {
		if idx, ok := m.indexes[*params.IndexName]; !ok || idx != attr {
			return nil, fmt.Errorf("awsmock: index %q does not cover %s", *params.IndexName, attr)
		}
	}

	pks := make([]string, 0, len(m.table(table)))
	for pk := range m.table(table) {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	start := ""
	if params.ExclusiveStartKey != nil {
		start, _ = m.pkOf(table, params.ExclusiveStartKey)
	}
	limit := 0
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

	out := &dyn.QueryOutput{}
	for _, pk := range pks {
		if start != "" && pk <= start {
			continue
		}
		it := m.Tables[table][pk]
		if !equalValues(it[attr], want) {
			continue
		}
		out.Items = append(out.Items, it)
		if limit > 0 && len(out.Items) == limit {
			out.LastEvaluatedKey = item{m.keys[table]: &types.AttributeValueMemberS{Value: pk}}
			break
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if n, ok := names[token]; ok {
			return n
		}
	}
	return token
}

func conditionHolds(expr *string, existing item, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == nil || *expr == "" {
		return true
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists("):
			if existing != nil {
				return false
			}
		case strings.HasPrefix(clause, "attribute_exists("):
			if existing == nil {
				return false
			}
		case strings.Contains(clause, "<>"):
			// a missing attribute differs from any value
			lhs, rhs, _ := strings.Cut(clause, "<>")
			attr := resolveName(strings.TrimSpace(lhs), names)
			if equalValues(existing[attr], values[strings.TrimSpace(rhs)]) {
				return false
			}
		default:
			lhs, rhs, ok := strings.Cut(clause, "=")
			if !ok || existing == nil {
				return false
			}
			attr := resolveName(strings.TrimSpace(lhs), names)
			if !equalValues(existing[attr], values[strings.TrimSpace(rhs)]) {
				return false
			}
		}
	}
	return true
}

func equalValues(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func applySet(it item, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	body := strings.TrimSpace(expr)
	if !strings.HasPrefix(body, "SET ") {
		return fmt.Errorf("awsmock: unsupported update expression %q", expr)
	}
	for _, assignment := range splitTopLevel(strings.TrimPrefix(body, "SET ")) {
		lhs, rhs, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("awsmock: bad assignment %q", assignment)
		}
		path := strings.Split(strings.TrimSpace(lhs), ".")
		for i := range path {
			path[i] = resolveName(path[i], names)
		}
		v, err := evalValue(it, strings.TrimSpace(rhs), names, values)
		if err != nil {
			return err
		}
		if err := setPath(it, path, v); err != nil {
			return err
		}
	}
	return nil
}

func evalValue(it item, rhs string, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	if !strings.HasPrefix(rhs, "if_not_exists(") {
		v, ok := values[rhs]
		if !ok {
			return nil, fmt.Errorf("awsmock: missing value %s", rhs)
		}
		return v, nil
	}
	// if_not_exists(attr, :default) + :inc
	inner, rest, _ := strings.Cut(strings.TrimPrefix(rhs, "if_not_exists("), ")")
	attr, def, _ := strings.Cut(inner, ",")
	base := it[resolveName(strings.TrimSpace(attr), names)]
	if base == nil {
		base = values[strings.TrimSpace(def)]
	}
	inc := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "+"))
	if inc == "" {
		return base, nil
	}
	a, err := number(base)
	if err != nil {
		return nil, err
	}
	b, err := number(values[inc])
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(a+b, 'f', -1, 64)}, nil
}

func number(v types.AttributeValue) (float64, error) {
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("awsmock: not a number: %T", v)
	}
	return strconv.ParseFloat(n.Value, 64)
}

func setPath(it item, path []string, v types.AttributeValue) error {
	if len(path) == 1 {
		it[path[0]] = v
		return nil
	}
	parent, ok := it[path[0]].(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("awsmock: %s is not a map", path[0])
	}
	child := item{}
	for k, cv := range parent.Value {
		child[k] = cv
	}
	if err := setPath(child, path[1:], v); err != nil {
		return err
	}
	it[path[0]] = &types.AttributeValueMemberM{Value: child}
	return nil
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, last := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[last:]))
}
