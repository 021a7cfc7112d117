package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"quizwhiz-service/internal/ai"
	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/config"
	transport "quizwhiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable at startup", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
	}

	history, closeHistory, err := newHistoryStore(ctx, cfg, redisClient, true)
	if err != nil {
		return err
	}
	defer closeHistory()

	genProvider, explainProvider, err := newAIProviders(cfg, logger)
	if err != nil {
		return err
	}
	generator, err := ai.NewQuestionGenerator(genProvider, ai.WithGeneratorLogger(logger))
	if err != nil {
		return err
	}

	service := app.NewQuizService(
		newSessionStore(cfg, redisClient),
		history,
		catalog,
		generator,
		newExplainer(cfg, explainProvider, redisClient),
		quizConfig(cfg),
	)

	mux := http.NewServeMux()
	transport.Register(mux, service)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service",
			"port", finalPort,
			"ai_provider", genProvider.Name(),
			"subjects", len(catalog.Subjects()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
