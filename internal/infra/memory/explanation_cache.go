package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quizwhiz-service/internal/domain"
)

// Explainer produces explanations on a cache miss (usually the AI explainer).
type Explainer interface {
	Explain(ctx context.Context, req domain.ExplanationRequest) (string, error)
}

// ExplanationCache caches explanations with TTL to avoid repeated model calls
// for the same question and answer.
type ExplanationCache struct {
	next  Explainer
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedExplanation
}

type cachedExplanation struct {
	text      string
	expiresAt time.Time
}

func NewExplanationCache(next Explainer, ttl time.Duration) *ExplanationCache {
	return &ExplanationCache{
		next:  next,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedExplanation),
	}
}

// Explain returns a cached explanation or computes it once for concurrent
// callers. Failures are not cached.
func (c *ExplanationCache) Explain(ctx context.Context, req domain.ExplanationRequest) (string, error) {
	key := req.CacheKey()
	if text, ok := c.lookup(key); ok {
		return text, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if text, ok := c.lookup(key); ok {
			return text, nil
		}

		text, err := c.next.Explain(ctx, req)
		if err != nil {
			return "", err
		}

		if c.ttl > 0 {
			c.mu.Lock()
			c.cache[key] = cachedExplanation{
				text:      text,
				expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
			}
			c.mu.Unlock()
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *ExplanationCache) lookup(key string) (string, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.text, true
	}
	return "", false
}

func (c *ExplanationCache) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
