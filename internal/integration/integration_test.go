package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"quizwhiz-service/internal/ai"
	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/cli"
	"quizwhiz-service/internal/curriculum"
	"quizwhiz-service/internal/domain"
	pghistory "quizwhiz-service/internal/infra/postgres"
	infraredis "quizwhiz-service/internal/infra/redis"
	"quizwhiz-service/internal/quiz"
)

const generatedQuiz = `{"questions":[
	{"question":"Which keyword declares a block scoped constant?","options":["const","var"],"correctAnswer":"const"},
	{"question":"Which operator checks strict equality?","options":["===","=="],"correctAnswer":"==="}
]}`

func TestQuizResultEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if err := cli.Migrate(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// a second run finds nothing to apply
	if err := cli.Migrate(ctx, pgURL); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	catalog, err := curriculum.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	generator, err := ai.NewQuestionGenerator(ai.NewMockProvider(generatedQuiz))
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	explainProvider := ai.NewMockProvider(`{"explanation":"const cannot be reassigned."}`)
	explainer := infraredis.NewExplanationCache(redisClient, ai.NewExplainer(explainProvider), time.Hour)

	cfg := quiz.DefaultConfig()
	cfg.ConfirmDelay = 5 * time.Millisecond
	history := pghistory.NewHistoryStore(pool)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(sessions, history, catalog, generator, explainer, cfg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	id, c := service.Open(runCtx, domain.Identity{UserID: "u1", Role: domain.RoleStudent})

	if n, err := redisClient.Exists(ctx, "quiz:session:"+id).Result(); err != nil || n != 1 {
		t.Fatalf("expected liveness key for %s, got %d %v", id, n, err)
	}

	if _, err := service.Begin(id, domain.Parameters{Subject: "JavaScript", Topic: "Variables and Data Types", NumQuestions: 2}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitFor(t, "ready", func() bool { return c.Snapshot().State == quiz.StateReady })
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Select("const"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	waitFor(t, "second question", func() bool { s := c.Snapshot(); return s.Index == 1 && !s.Confirmed })
	if err := c.Select("=="); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	waitFor(t, "finished", func() bool { return c.Snapshot().State == quiz.StateFinished })

	var results []domain.Result
	waitFor(t, "persisted result", func() bool {
		results, _ = service.History(ctx, "u1", 0)
		return len(results) == 1
	})
	if results[0].Subject != "JavaScript" || results[0].Score != 1 || results[0].NumQuestions != 2 {
		t.Fatalf("unexpected persisted result %+v", results[0])
	}

	older := domain.Result{Subject: "Git", Topic: "Basic Commands", NumQuestions: 4, Score: 4, Timestamp: results[0].Timestamp.Add(-time.Hour)}
	if err := history.Append(ctx, "u1", older); err != nil {
		t.Fatalf("append: %v", err)
	}
	results, err = service.History(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(results) != 2 || results[0].Subject != "JavaScript" || results[1].Subject != "Git" {
		t.Fatalf("expected most recent first, got %+v", results)
	}
	if limited, _ := service.History(ctx, "u1", 1); len(limited) != 1 {
		t.Fatalf("limit not applied: %+v", limited)
	}

	for i := 0; i < 2; i++ {
		text, err := service.ExplainQuestion(ctx, id, 0)
		if err != nil || text == "" {
			t.Fatalf("explain: %q %v", text, err)
		}
	}
	if calls := explainProvider.CallCount(); calls != 1 {
		t.Fatalf("second explanation should come from redis, provider called %d times", calls)
	}

	cancel()
	waitFor(t, "liveness key removed", func() bool {
		n, _ := redisClient.Exists(ctx, "quiz:session:"+id).Result()
		return n == 0
	})
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
