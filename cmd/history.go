package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mkudasov/soltrader/internal/storage"
	"github.com/mkudasov/soltrader/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent trade history",
	Long: `Prints the most recent trades from storage, newest first.
Requires STORAGE_MODE=postgres; console storage does not persist across runs.`,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of trades to print")
}

func runHistory(cmd *cobra.Command, args []string) error {
	// Load .env
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("trade history requires STORAGE_MODE=postgres, got %q", cfg.StorageMode)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.NewPostgresStorage(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	trades, err := store.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	if len(trades) == 0 {
		fmt.Println("No trades recorded.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-5s  %-44s  %12s  %14s  %10s  %s\n",
		"ID", "TIME", "TYPE", "TOKEN", "AMOUNT", "PRICE", "STATUS", "PROFIT")
	for _, trade := range trades {
		fmt.Printf("%-36s  %-20s  %-5s  %-44s  %12d  %14.8f  %10s  %.6f\n",
			trade.ID,
			trade.Timestamp.Format(time.RFC3339),
			trade.Type,
			trade.TokenAddress,
			trade.Amount,
			trade.Price,
			trade.Status,
			trade.Profit)
	}

	return nil
}
