package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

func (s *Store) CreateOAuthLink(ctx context.Context, link *model.OAuthLink) error {
	now := s.now()
	link.CreatedAt = now
	link.UpdatedAt = now

	k := repository.OAuthKey(link.Email, link.Provider)
	item, err := attributevalue.MarshalMap(oauthItem{
		PK:         k.PK,
		SK:         k.SK,
		Email:      link.Email,
		Provider:   string(link.Provider),
		ProviderID: link.ProviderID,
		FirstName:  link.FirstName,
		LastName:   link.LastName,
		CreatedAt:  formatTime(now),
		UpdatedAt:  formatTime(now),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: marshal oauth link: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put oauth link: %w", err)
	}
	return nil
}

func (s *Store) GetOAuthLink(ctx context.Context, email string, provider model.Provider) (*model.OAuthLink, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttrs(repository.OAuthKey(email, provider)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get oauth link: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it oauthItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal oauth link: %w", err)
	}
	return it.toModel(), nil
}
