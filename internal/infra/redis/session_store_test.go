package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/quiz"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr := runMiniredis(t)
	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()

	c := quiz.NewController(domain.Identity{UserID: "u1", Role: domain.RoleStudent}, nil, nil, quiz.DefaultConfig())
	store.Put(ctx, "c-1", c)
	if !mr.Exists("quiz:session:c-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("quiz:session:c-1"); got != "u1" {
		t.Fatalf("liveness key should hold the user id, got %q", got)
	}
	if mr.TTL("quiz:session:c-1") != time.Minute {
		t.Fatalf("expected ttl on liveness key")
	}
	if got, ok := store.Get("c-1"); !ok || got != c {
		t.Fatalf("expected local controller")
	}

	store.Delete(ctx, "c-1")
	if mr.Exists("quiz:session:c-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("c-1"); ok {
		t.Fatalf("expected controller removed")
	}
}

func runMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
