package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"quizwhiz-service/internal/domain"
)

// HistoryStore keeps each user's results as a Redis list of JSON documents.
// New results are pushed to the head: LPUSH quiz:history:{userID} {result}
type HistoryStore struct {
	client     *redis.Client
	maxPerUser int64
}

// NewHistoryStore returns a store that keeps at most maxPerUser results per
// user. Zero keeps everything.
func NewHistoryStore(client *redis.Client, maxPerUser int64) *HistoryStore {
	return &HistoryStore{client: client, maxPerUser: maxPerUser}
}

func (s *HistoryStore) Append(ctx context.Context, userID string, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key(userID), raw)
	if s.maxPerUser > 0 {
		pipe.LTrim(ctx, s.key(userID), 0, s.maxPerUser-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *HistoryStore) List(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.client.LRange(ctx, s.key(userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]domain.Result, 0, len(items))
	for _, item := range items {
		var r domain.Result
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *HistoryStore) key(userID string) string {
	return "quiz:history:" + userID
}
