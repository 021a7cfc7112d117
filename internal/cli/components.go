package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"quizwhiz-service/internal/ai"
	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/config"
	"quizwhiz-service/internal/curriculum"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/infra/memory"
	pghistory "quizwhiz-service/internal/infra/postgres"
	redisstore "quizwhiz-service/internal/infra/redis"
	"quizwhiz-service/internal/quiz"
)

const (
	defaultSessionTTL     = 10 * time.Minute
	defaultExplanationTTL = 24 * time.Hour
	defaultMaxHistory     = 200
)

// newLogger builds the process logger from the log section.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func quizConfig(cfg config.Config) quiz.Config {
	qc := quiz.DefaultConfig()
	if cfg.Quiz.SecondsPerQuestion > 0 {
		qc.PerQuestion = time.Duration(cfg.Quiz.SecondsPerQuestion) * time.Second
	}
	qc.ConfirmDelay = config.TTLDuration(cfg.Quiz.ConfirmDelay, qc.ConfirmDelay)
	qc.TickInterval = config.TTLDuration(cfg.Quiz.TickInterval, qc.TickInterval)
	qc.GenerationTimeout = config.TTLDuration(cfg.Quiz.GenerationTimeout, qc.GenerationTimeout)
	qc.Limits = domain.Limits{
		Student: config.IntOr(cfg.Quiz.MaxQuestionsStudent, qc.Limits.Student),
		Teacher: config.IntOr(cfg.Quiz.MaxQuestionsTeacher, qc.Limits.Teacher),
	}
	return qc
}

func loadCatalog(cfg config.Config) (*curriculum.Catalog, error) {
	return curriculum.Load(cfg.Curriculum.Path)
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// newHistoryStore prefers postgres, then redis. allowMemory permits the
// in-process fallback used when neither backend is configured.
func newHistoryStore(ctx context.Context, cfg config.Config, client *redis.Client, allowMemory bool) (app.HistoryStore, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pghistory.NewHistoryStore(pool), pool.Close, nil
	}
	if client != nil {
		maxPerUser := cfg.Redis.MaxHistory
		if maxPerUser <= 0 {
			maxPerUser = defaultMaxHistory
		}
		return redisstore.NewHistoryStore(client, maxPerUser), func() {}, nil
	}
	if !allowMemory {
		return nil, nil, fmt.Errorf("no history backend configured: set postgres.url or redis.addr")
	}
	slog.Warn("no history backend configured, results are kept in memory only")
	return memory.NewHistoryStore(), func() {}, nil
}

func newSessionStore(cfg config.Config, client *redis.Client) app.SessionRepository {
	if client != nil {
		return redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, defaultSessionTTL))
	}
	return memory.NewSessionStore()
}

// demoQuestions backs the mock provider so the service runs without an API key.
const demoQuestions = `{"questions":[
	{"question":"Which HTML element marks the main content of a page?","options":["<main>","<section>","<div>","<body>"],"correctAnswer":"<main>"},
	{"question":"Which CSS property turns an element into a flex container?","options":["display: flex","flex: 1","position: flex","float: flex"],"correctAnswer":"display: flex"},
	{"question":"Which git command creates a new branch and switches to it?","options":["git switch -c","git branch -d","git merge","git init"],"correctAnswer":"git switch -c"}
]}`

const demoExplanation = `{"explanation":"Review the topic notes for this question and compare your answer with the correct one."}`

// newAIProviders returns the providers used for generation and for
// explanations. Real providers are shared and wrapped with a breaker and a
// bulkhead.
func newAIProviders(cfg config.Config, logger *slog.Logger) (ai.Provider, ai.Provider, error) {
	var base ai.Provider
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.APIKey == "" {
			return nil, nil, fmt.Errorf("ai.apiKey (or AI_API_KEY) is required for provider %q", cfg.AI.Provider)
		}
		var opts []ai.OpenAIOption
		if cfg.AI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.AI.BaseURL))
		}
		if cfg.AI.Model != "" {
			opts = append(opts, ai.WithModel(cfg.AI.Model))
		}
		base = ai.NewOpenAIProvider(cfg.AI.APIKey, opts...)
	case "google", "gemini":
		if cfg.AI.APIKey == "" {
			return nil, nil, fmt.Errorf("ai.apiKey (or AI_API_KEY) is required for provider %q", cfg.AI.Provider)
		}
		var opts []ai.GoogleOption
		if cfg.AI.BaseURL != "" {
			opts = append(opts, ai.WithGoogleBaseURL(cfg.AI.BaseURL))
		}
		if cfg.AI.Model != "" {
			opts = append(opts, ai.WithGoogleModel(cfg.AI.Model))
		}
		base = ai.NewGoogleProvider(cfg.AI.APIKey, opts...)
	case "", "mock":
		logger.Warn("no AI provider configured, serving canned questions")
		return ai.NewMockProvider(demoQuestions), ai.NewMockProvider(demoExplanation), nil
	default:
		return nil, nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}

	rc := ai.DefaultResilientConfig()
	rc.MaxConcurrent = config.IntOr(cfg.AI.MaxConcurrent, rc.MaxConcurrent)
	rc.Logger = logger
	resilient := ai.NewResilientProvider(base, rc)
	return resilient, resilient, nil
}

// newExplainer wraps the explainer with the redis or in-process cache.
func newExplainer(cfg config.Config, provider ai.Provider, client *redis.Client) app.Explainer {
	explainer := ai.NewExplainer(provider)
	ttl := config.TTLDuration(cfg.Explanations.TTL, defaultExplanationTTL)
	if client != nil {
		return redisstore.NewExplanationCache(client, explainer, ttl)
	}
	return memory.NewExplanationCache(explainer, ttl)
}
