package memory

import (
	"context"
	"sync"

	"quizwhiz-service/internal/domain"
)

// HistoryStore keeps results per user in process memory, newest first.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string][]domain.Result
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string][]domain.Result)}
}

func (s *HistoryStore) Append(_ context.Context, userID string, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.records[userID]
	next := make([]domain.Result, 0, len(list)+1)
	next = append(next, result)
	s.records[userID] = append(next, list...)
	return nil
}

func (s *HistoryStore) List(_ context.Context, userID string, limit int) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.records[userID]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]domain.Result, len(list))
	copy(out, list)
	return out, nil
}
