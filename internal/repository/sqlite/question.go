package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sakif/vaccine-portal/internal/model"
)

func (db *DB) ListQuestions(ctx context.Context) ([]model.Question, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, question, tags, timestamp FROM questions ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var (
			q    model.Question
			tags string
		)
		if err := rows.Scan(&q.ID, &q.Question, &tags, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scanning question: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
			return nil, fmt.Errorf("sqlite: decoding tags of question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
