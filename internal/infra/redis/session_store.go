package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizwhiz-service/internal/quiz"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Controllers live in process memory; Redis only marks liveness so other
// instances and operators can see which users have a quiz open.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*quiz.Controller
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*quiz.Controller),
	}
}

func (s *SessionStore) Put(ctx context.Context, id string, c *quiz.Controller) {
	s.mu.Lock()
	s.sessions[id] = c
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(ctx, s.key(id), c.Identity().UserID, s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*quiz.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	return c, ok
}

func (s *SessionStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		_ = s.client.Del(ctx, s.key(id)).Err()
	}
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
