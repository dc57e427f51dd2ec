package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	item, err := attributevalue.MarshalMap(newUserItem(user))
	if err != nil {
		return fmt.Errorf("dynamodb: marshal user: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttrs(repository.UserKey(email)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it userItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal user: %w", err)
	}
	return it.toModel(), nil
}

// UpdateUser builds its SET clause from the ProfileUpdate whitelist only.
// The condition on PK turns an update of a missing profile into
// ErrNotFound instead of an upsert of a half-empty item.
func (s *Store) UpdateUser(ctx context.Context, email string, update model.ProfileUpdate) (*model.User, error) {
	set := expression.Set(expression.Name("updatedAt"), expression.Value(formatTime(s.now())))
	if update.FirstName != nil {
		set = set.Set(expression.Name("firstName"), expression.Value(*update.FirstName))
	}
	if update.LastName != nil {
		set = set.Set(expression.Name("lastName"), expression.Value(*update.LastName))
	}
	if update.DateOfBirth != nil {
		set = set.Set(expression.Name("dateOfBirth"), expression.Value(*update.DateOfBirth))
	}
	if update.Gender != nil {
		set = set.Set(expression.Name("gender"), expression.Value(string(*update.Gender)))
	}
	if update.Phone != nil {
		set = set.Set(expression.Name("phone"), expression.Value(*update.Phone))
	}
	if update.Address != nil {
		set = set.Set(expression.Name("address"), expression.Value(*update.Address))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("dynamodb: build user update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       keyAttrs(repository.UserKey(email)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("dynamodb: update user: %w", err)
	}

	var it userItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal user: %w", err)
	}
	return it.toModel(), nil
}

func (s *Store) DeleteUser(ctx context.Context, email string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttrs(repository.UserKey(email)),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: delete user: %w", err)
	}
	return nil
}

// ListUsers scans for profile items that are not admins. Accounts written
// before roles existed have no role attribute and count as users.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	filter := expression.Name("PK").BeginsWith(repository.UserPrefix).And(
		expression.Name("SK").BeginsWith(repository.ProfilePrefix),
		expression.Or(
			expression.AttributeNotExists(expression.Name("role")),
			expression.Name("role").NotEqual(expression.Value(string(model.RoleAdmin))),
		),
	)

	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("dynamodb: build user scan: %w", err)
	}

	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	users := []model.User{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: scan users: %w", err)
		}

		var items []userItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("dynamodb: unmarshal users: %w", err)
		}
		for _, it := range items {
			users = append(users, *it.toModel())
		}
	}
	return users, nil
}
