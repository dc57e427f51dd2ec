package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/sakif/vaccine-portal/internal/model"
)

// ListQuestions scans the whole analytics table.
func (s *Store) ListQuestions(ctx context.Context) ([]model.Question, error) {
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.questionsTable),
	})

	questions := []model.Question{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: scan questions: %w", err)
		}

		var items []questionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("dynamodb: unmarshal questions: %w", err)
		}
		for _, it := range items {
			questions = append(questions, it.toModel())
		}
	}
	return questions, nil
}
