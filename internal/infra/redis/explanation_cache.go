package redis

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quizwhiz-service/internal/domain"
)

// Explainer produces explanations on a cache miss (usually the AI explainer).
type Explainer interface {
	Explain(ctx context.Context, req domain.ExplanationRequest) (string, error)
}

// ExplanationCache shares explanations across instances through Redis.
// Entries are stored as: SET quiz:explanation:{hash} {text} EX ttl
type ExplanationCache struct {
	client *redis.Client
	next   Explainer
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewExplanationCache(client *redis.Client, next Explainer, ttl time.Duration) *ExplanationCache {
	return &ExplanationCache{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ExplanationCache) Explain(ctx context.Context, req domain.ExplanationRequest) (string, error) {
	key := c.key(req.CacheKey())

	text, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return text, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		text, err := c.client.Get(ctx, key).Result()
		if err == nil {
			return text, nil
		}
		if err != redis.Nil {
			slog.Warn("explanation cache read failed", "error", err)
		}

		text, err = c.next.Explain(ctx, req)
		if err != nil {
			return "", err
		}
		if err := c.client.Set(ctx, key, text, c.ttlWithJitter()).Err(); err != nil {
			slog.Warn("explanation cache write failed", "error", err)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *ExplanationCache) key(hash string) string {
	return "quiz:explanation:" + hash
}

func (c *ExplanationCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
