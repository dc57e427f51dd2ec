package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

func (s *Store) CreateChatSession(ctx context.Context, session *model.ChatSession) error {
	now := s.now()
	session.CreatedAt = now
	session.UpdatedAt = now

	k := repository.ChatSessionKey(session.UserID, session.ID)
	item, err := attributevalue.MarshalMap(chatSessionItem{
		PK:        k.PK,
		SK:        k.SK,
		ID:        session.ID,
		UserID:    session.UserID,
		Title:     session.Title,
		CreatedAt: formatTime(now),
		UpdatedAt: formatTime(now),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: marshal chat session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put chat session: %w", err)
	}
	return nil
}

// GetChatSession looks the session up under the user's own partition, so a
// session id belonging to someone else is simply not found.
func (s *Store) GetChatSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttrs(repository.ChatSessionKey(userID, sessionID)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get chat session: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it chatSessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal chat session: %w", err)
	}
	session := it.toModel()
	return &session, nil
}

// ListChatSessions returns the user's sessions, most recently active first.
func (s *Store) ListChatSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	var items []chatSessionItem
	if err := s.queryPrefix(ctx, repository.UserPartition(userID), repository.ChatPrefix, &items); err != nil {
		return nil, fmt.Errorf("dynamodb: query chat sessions: %w", err)
	}

	sessions := make([]model.ChatSession, 0, len(items))
	for _, it := range items {
		sessions = append(sessions, it.toModel())
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *Store) TouchChatSession(ctx context.Context, userID, sessionID string, at time.Time) error {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("updatedAt"), expression.Value(formatTime(at)))).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build session touch: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       keyAttrs(repository.ChatSessionKey(userID, sessionID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueNone,
	})
	if err != nil {
		if isConditionFailed(err) {
			return apperror.NotFound("Chat session")
		}
		return fmt.Errorf("dynamodb: touch chat session: %w", err)
	}
	return nil
}

func (s *Store) CreateChatMessage(ctx context.Context, message *model.ChatMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}

	k := repository.ChatMessageKey(message.SessionID, message.ID)
	item, err := attributevalue.MarshalMap(chatMessageItem{
		PK:        k.PK,
		SK:        k.SK,
		ID:        message.ID,
		SessionID: message.SessionID,
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: formatTime(message.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: marshal chat message: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put chat message: %w", err)
	}
	return nil
}

func (s *Store) ListChatMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	var items []chatMessageItem
	if err := s.queryPrefix(ctx, repository.ChatPartition(sessionID), repository.MessagePrefix, &items); err != nil {
		return nil, fmt.Errorf("dynamodb: query chat messages: %w", err)
	}

	messages := make([]model.ChatMessage, 0, len(items))
	for _, it := range items {
		messages = append(messages, it.toModel())
	}
	// Sort keys are xids and already time-ordered; the explicit sort covers
	// messages from clients that used other id schemes.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// queryPrefix runs PK = pk AND begins_with(SK, prefix) across every page
// and unmarshals all items into out, which must be a pointer to a slice.
func (s *Store) queryPrefix(ctx context.Context, pk, prefix string, out any) error {
	keyCond := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.Key("SK").BeginsWith(prefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return fmt.Errorf("build key condition: %w", err)
	}

	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var all []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		all = append(all, page.Items...)
	}

	if err := attributevalue.UnmarshalListOfMaps(all, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
