// Package dynamodb implements the repository interfaces on AWS DynamoDB.
//
// SINGLE-TABLE DESIGN:
// Users, OAuth links, chat sessions and chat messages all live in one table,
// told apart by the key prefixes in repository/keys.go. Question records live
// in a second table that the external tagging service writes to.
//
// The Store never creates its own client. It receives anything satisfying
// API (the real *dynamodb.Client in production, a fake in tests), which is
// the only seam the tests need.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/vaccine-portal/internal/repository"
)

// API is the subset of *dynamodb.Client the Store calls.
// Query and Scan match dynamodb.QueryAPIClient / ScanAPIClient, so the SDK
// paginators accept anything implementing API.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var (
	_ API              = (*dynamodb.Client)(nil)
	_ repository.Store = (*Store)(nil)
)

// Config names the tables and, optionally, a local endpoint
// (DynamoDB Local / LocalStack) to talk to instead of AWS.
type Config struct {
	Region         string
	Table          string
	QuestionsTable string
	Endpoint       string
}

// Store is the DynamoDB-backed repository.Store.
type Store struct {
	client         API
	table          string
	questionsTable string
	now            func() time.Time
}

// New wraps an existing client.
func New(client API, table, questionsTable string) *Store {
	return &Store{
		client:         client,
		table:          table,
		questionsTable: questionsTable,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Open loads AWS credentials the standard way (env, shared config, IAM role)
// and builds a Store on a fresh client.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: loading AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return New(client, cfg.Table, cfg.QuestionsTable), nil
}

// Close is a no-op: the SDK client holds no resources that need releasing.
// It exists so *Store satisfies repository.Store like the SQLite backend.
func (s *Store) Close() error {
	return nil
}

// keyAttrs converts a composite key to the attribute map DynamoDB expects.
func keyAttrs(k repository.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: k.PK},
		"SK": &types.AttributeValueMemberS{Value: k.SK},
	}
}

// isConditionFailed reports whether err is DynamoDB rejecting a write
// because its ConditionExpression did not hold.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// TIMESTAMPS:
// Stored as RFC 3339 strings so they sort lexicographically and stay
// readable in the console. Parsing is lenient: any record written by an
// older client with a malformed timestamp still loads, with a zero time.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
