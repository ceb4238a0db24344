// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoBackend
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoConfig holds DynamoDB backend configuration
type DynamoConfig struct {
	// TablePrefix is prepended to collection names to form table names
	TablePrefix string
	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack)
	Endpoint string
	// PingTable is described by Ping; defaults to the users collection
	PingTable string
}

// DynamoBackend maps collections to DynamoDB tables and indexes to global secondary indexes
type DynamoBackend struct {
	client      DynamoDBAPI
	tablePrefix string
	pingTable   string
}

// NewDynamoBackend creates a backend from an AWS configuration
func NewDynamoBackend(cfg aws.Config, config DynamoConfig) *DynamoBackend {
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})
	return NewDynamoBackendWithClient(client, config)
}

// NewDynamoBackendWithClient creates a backend over an existing client
func NewDynamoBackendWithClient(client DynamoDBAPI, config DynamoConfig) *DynamoBackend {
	return &DynamoBackend{
		client:      client,
		tablePrefix: config.TablePrefix,
		pingTable:   orDefault(config.PingTable, CollectionUsers),
	}
}

// Name identifies the backend
func (d *DynamoBackend) Name() string {
	return "dynamodb"
}

func (d *DynamoBackend) table(schema *Schema) *string {
	return aws.String(d.tablePrefix + schema.Name)
}

// Get retrieves a document by key
func (d *DynamoBackend) Get(ctx context.Context, schema *Schema, key Key) (Item, error) {
	normalized, err := schema.normalizeKey(key)
	if err != nil {
		return nil, err
	}
	av, err := attributevalue.MarshalMap(map[string]any(normalized))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table(schema),
		Key:       av,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item, nil
}

// Put stores a document
func (d *DynamoBackend) Put(ctx context.Context, schema *Schema, item Item) error {
	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: d.table(schema),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// Query runs a DynamoDB query. Filters are pushed down where the expression language can
// express them; Limit always counts items after filtering, so pages are read until it is met.
func (d *DynamoBackend) Query(ctx context.Context, schema *Schema, criteria Criteria) ([]Item, error) {
	index, err := criteria.Resolve(schema)
	if err != nil {
		return nil, err
	}

	keyCond, err := keyConditionExpression(index, criteria)
	if err != nil {
		return nil, err
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	filter, exact := filterExpression(criteria.Filter)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCriteria, err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 d.table(schema),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!criteria.Descending),
	}
	if criteria.Index != "" {
		input.IndexName = aws.String(criteria.Index)
	}
	// DynamoDB applies Limit before filtering, so it is only passed through unfiltered queries
	if criteria.Limit > 0 && len(criteria.Filter) == 0 {
		input.Limit = aws.Int32(int32(criteria.Limit)) //nolint:gosec // limits are small
	}

	var items []Item
	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}

		var pageItems []Item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		items = append(items, pageItems...)

		if exact && criteria.Limit > 0 && len(items) >= criteria.Limit {
			break
		}
	}

	return selectItems(schema, criteria, items)
}

// Ping describes one table
func (d *DynamoBackend) Ping(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tablePrefix + d.pingTable),
	})
	return err
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (d *DynamoBackend) Close() error {
	return nil
}

func keyConditionExpression(index IndexSchema, criteria Criteria) (expression.KeyConditionBuilder, error) {
	keyCond := expression.Key(index.PartitionKey).Equal(expression.Value(criteria.Key.Partition))

	sortCond, ok := criteria.sortCondition(index)
	if !ok {
		return keyCond, nil
	}
	if err := sortCond.Validate(); err != nil {
		return keyCond, err
	}

	sortKey := expression.Key(index.SortKey)
	var sortExpr expression.KeyConditionBuilder
	switch sortCond.Op {
	case OpEq:
		sortExpr = sortKey.Equal(expression.Value(sortCond.Values[0]))
	case OpLt:
		sortExpr = sortKey.LessThan(expression.Value(sortCond.Values[0]))
	case OpLe:
		sortExpr = sortKey.LessThanEqual(expression.Value(sortCond.Values[0]))
	case OpGt:
		sortExpr = sortKey.GreaterThan(expression.Value(sortCond.Values[0]))
	case OpGe:
		sortExpr = sortKey.GreaterThanEqual(expression.Value(sortCond.Values[0]))
	case OpBetween:
		sortExpr = sortKey.Between(expression.Value(sortCond.Values[0]), expression.Value(sortCond.Values[1]))
	case OpBeginsWith:
		prefix, isString := sortCond.Values[0].(string)
		if !isString {
			return keyCond, fmt.Errorf("%w: begins_with needs a string prefix", ErrInvalidCriteria)
		}
		sortExpr = sortKey.BeginsWith(prefix)
	default:
		return keyCond, fmt.Errorf("%w: %s not allowed on a sort key", ErrInvalidCriteria, sortCond.Op)
	}

	return keyCond.And(sortExpr), nil
}

// filterExpression translates conditions. exact is false when some condition could not be
// pushed down and is only evaluated after reading.
func filterExpression(conditions []Condition) (*expression.ConditionBuilder, bool) {
	exact := true
	var built []expression.ConditionBuilder

	for _, cond := range conditions {
		c, ok := conditionExpression(cond)
		if !ok {
			exact = false
			continue
		}
		built = append(built, c)
	}

	switch len(built) {
	case 0:
		return nil, exact
	case 1:
		return &built[0], exact
	default:
		combined := expression.And(built[0], built[1], built[2:]...)
		return &combined, exact
	}
}

func conditionExpression(cond Condition) (expression.ConditionBuilder, bool) {
	name := expression.Name(cond.Field)

	switch cond.Op {
	case OpEq:
		return name.Equal(expression.Value(cond.Values[0])), true
	case OpNe:
		return expression.Or(name.AttributeNotExists(), name.NotEqual(expression.Value(cond.Values[0]))), true
	case OpLt:
		return name.LessThan(expression.Value(cond.Values[0])), true
	case OpLe:
		return name.LessThanEqual(expression.Value(cond.Values[0])), true
	case OpGt:
		return name.GreaterThan(expression.Value(cond.Values[0])), true
	case OpGe:
		return name.GreaterThanEqual(expression.Value(cond.Values[0])), true
	case OpBetween:
		return name.Between(expression.Value(cond.Values[0]), expression.Value(cond.Values[1])), true
	case OpExists:
		return name.AttributeExists(), true
	case OpBeginsWith:
		if prefix, ok := cond.Values[0].(string); ok {
			return name.BeginsWith(prefix), true
		}
	case OpContains:
		if substr, ok := cond.Values[0].(string); ok {
			return name.Contains(substr), true
		}
	}
	return expression.ConditionBuilder{}, false
}
