package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"quizwhiz-service/internal/domain"
)

// HistoryStore persists quiz results in the quiz_history table.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (s *HistoryStore) Append(ctx context.Context, userID string, result domain.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_history (user_id, subject, topic, num_questions, score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, result.Subject, result.Topic, result.NumQuestions, result.Score, result.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *HistoryStore) List(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	query := `SELECT subject, topic, num_questions, score, created_at
		FROM quiz_history WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.Subject, &r.Topic, &r.NumQuestions, &r.Score, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}
