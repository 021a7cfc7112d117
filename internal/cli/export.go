package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"quizwhiz-service/internal/config"
	"quizwhiz-service/internal/export"
)

// NewExportHistoryCmd writes one user's quiz history to a spreadsheet.
func NewExportHistoryCmd(configPath *string) *cobra.Command {
	var userID, out string
	cmd := &cobra.Command{
		Use:   "export-history",
		Short: "Export a user's quiz history to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = userID + "-history.xlsx"
			}
			return runExportHistory(cmd.Context(), *configPath, userID, out)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose history is exported")
	cmd.Flags().StringVar(&out, "out", "", "output file (default <user>-history.xlsx)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runExportHistory(ctx context.Context, configPath, userID, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))

	client := newRedisClient(cfg)
	if client != nil {
		defer client.Close()
	}
	history, closeHistory, err := newHistoryStore(ctx, cfg, client, false)
	if err != nil {
		return err
	}
	defer closeHistory()

	results, err := history.List(ctx, userID, 0)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := export.WriteHistory(f, userID, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("history exported", "user_id", userID, "results", len(results), "file", out)
	return nil
}
