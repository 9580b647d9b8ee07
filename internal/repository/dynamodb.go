package repository

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
)

const (
	dynamoCustomerPrefix = "CUSTOMER#"
	dynamoEmailPrefix    = "EMAIL#"
	dynamoCustomerEntity = "customer"
	dynamoEmailEntity    = "email"
)

const (
	conditionNotExists = "attribute_not_exists(pk)"
	conditionExists    = "attribute_exists(pk)"
)

// DynamoDBAPI is the part of dynamodb client used by repository
type DynamoDBAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type customerItem struct {
	PK     string  `dynamodbav:"pk"`
	Entity string  `dynamodbav:"entity"`
	ID     string  `dynamodbav:"id"`
	Name   string  `dynamodbav:"name"`
	Email  string  `dynamodbav:"email"`
	Age    float64 `dynamodbav:"age"`
}

func (i *customerItem) customer() *model.Customer {
	return &model.Customer{
		ID:    i.ID,
		Name:  i.Name,
		Email: i.Email,
		Age:   i.Age,
	}
}

// emailItem guards email uniqueness, it is written in the same transaction as customer item
type emailItem struct {
	PK         string `dynamodbav:"pk"`
	Entity     string `dynamodbav:"entity"`
	CustomerID string `dynamodbav:"customerId"`
}

type dynamoCustomerRepository struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoCustomerRepository builds customer repository on top of single dynamodb table with string hash key pk
func NewDynamoCustomerRepository(client DynamoDBAPI, table string) CustomerRepository {
	return &dynamoCustomerRepository{client: client, table: table}
}

func (r *dynamoCustomerRepository) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var guard emailItem
	found, err := r.getItem(ctx, dynamoEmailPrefix+email, &guard)
	if err != nil {
		return nil, apperrors.NewStoreErr("find by email", err)
	}

	if !found {
		return nil, nil
	}

	c, err := r.findByID(ctx, guard.CustomerID)
	if err != nil {
		return nil, apperrors.NewStoreErr("find by email", err)
	}
	return c, nil
}

func (r *dynamoCustomerRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	customers := make([]*model.Customer, 0)

	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.table),
			FilterExpression:          aws.String("#entity = :entity"),
			ExpressionAttributeNames:  map[string]string{"#entity": "entity"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":entity": &types.AttributeValueMemberS{Value: dynamoCustomerEntity}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewStoreErr("find all", err)
		}

		var items []customerItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, apperrors.NewStoreErr("find all", err)
		}

		for i := range items {
			customers = append(customers, items[i].customer())
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return customers, nil
}

func (r *dynamoCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	id := uuid.NewString()

	item := &customerItem{
		PK:     dynamoCustomerPrefix + id,
		Entity: dynamoCustomerEntity,
		ID:     id,
		Name:   c.Name,
		Email:  c.Email,
		Age:    c.Age,
	}

	customerPut, err := r.put(item, conditionNotExists)
	if err != nil {
		return apperrors.NewStoreErr("create", err)
	}

	guardPut, err := r.put(&emailItem{PK: dynamoEmailPrefix + c.Email, Entity: dynamoEmailEntity, CustomerID: id}, conditionNotExists)
	if err != nil {
		return apperrors.NewStoreErr("create", err)
	}

	if err := r.transact(ctx, customerPut, guardPut); err != nil {
		if isConditionFailedAt(err, 1) {
			return apperrors.NewConflictErr("email", duplicateEmailMessage)
		}
		return apperrors.NewStoreErr("create", err)
	}

	c.ID = id
	return nil
}

func (r *dynamoCustomerRepository) UpdateByID(ctx context.Context, id string, patch *model.CustomerPatch) (*model.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewStoreErr("update by id", err)
	}

	current, err := r.findByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewStoreErr("update by id", err)
	}

	if current == nil {
		return nil, nil
	}

	if patch.IsEmpty() {
		return current, nil
	}

	updated := patch.Apply(*current)

	customerPut, err := r.put(&customerItem{
		PK:     dynamoCustomerPrefix + id,
		Entity: dynamoCustomerEntity,
		ID:     id,
		Name:   updated.Name,
		Email:  updated.Email,
		Age:    updated.Age,
	}, conditionExists)
	if err != nil {
		return nil, apperrors.NewStoreErr("update by id", err)
	}

	writes := []types.TransactWriteItem{customerPut}
	if updated.Email != current.Email {
		guardPut, err := r.put(&emailItem{PK: dynamoEmailPrefix + updated.Email, Entity: dynamoEmailEntity, CustomerID: id}, conditionNotExists)
		if err != nil {
			return nil, apperrors.NewStoreErr("update by id", err)
		}
		writes = append(writes, guardPut, r.delete(dynamoEmailPrefix+current.Email, ""))
	}

	if err := r.transact(ctx, writes...); err != nil {
		if isConditionFailedAt(err, 0) {
			return nil, nil
		}
		return nil, apperrors.NewStoreErr("update by id", err)
	}
	return &updated, nil
}

func (r *dynamoCustomerRepository) DeleteByID(ctx context.Context, id string) (*model.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewStoreErr("delete by id", err)
	}

	current, err := r.findByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewStoreErr("delete by id", err)
	}

	if current == nil {
		return nil, nil
	}

	err = r.transact(ctx, r.delete(dynamoCustomerPrefix+id, conditionExists), r.delete(dynamoEmailPrefix+current.Email, ""))
	if err != nil {
		if isConditionFailedAt(err, 0) {
			return nil, nil
		}
		return nil, apperrors.NewStoreErr("delete by id", err)
	}
	return current, nil
}

func (r *dynamoCustomerRepository) findByID(ctx context.Context, id string) (*model.Customer, error) {
	var item customerItem
	found, err := r.getItem(ctx, dynamoCustomerPrefix+id, &item)
	if err != nil || !found {
		return nil, err
	}
	return item.customer(), nil
}

func (r *dynamoCustomerRepository) getItem(ctx context.Context, pk string, out any) (bool, error) {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            dynamoKey(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}

	if res.Item == nil {
		return false, nil
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *dynamoCustomerRepository) put(item any, condition string) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, err
	}

	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.table),
			Item:                av,
			ConditionExpression: aws.String(condition),
		},
	}, nil
}

func (r *dynamoCustomerRepository) delete(pk string, condition string) types.TransactWriteItem {
	del := &types.Delete{
		TableName: aws.String(r.table),
		Key:       dynamoKey(pk),
	}

	if condition != "" {
		del.ConditionExpression = aws.String(condition)
	}
	return types.TransactWriteItem{Delete: del}
}

func (r *dynamoCustomerRepository) transact(ctx context.Context, items ...types.TransactWriteItem) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return err
}

func dynamoKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
	}
}

// isConditionFailedAt reports whether transaction was cancelled because condition of item idx failed
func isConditionFailedAt(err error, idx int) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}

	if idx >= len(canceled.CancellationReasons) {
		return false
	}
	return aws.ToString(canceled.CancellationReasons[idx].Code) == "ConditionalCheckFailed"
}
