package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/logger"
)

var (
	apiURL string = "http://localhost:8787"
	output string = "text" // "text" or "json"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bizfeed",
	Short: "BizFeed CLI - Operate a BizFeed backend",
	Long: `BizFeed CLI provides operator access to a BizFeed deployment.
Admin commands talk to the database configured in the environment; the feed
command reads through the public API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return logger.Initialize(cfg.Logging.Level, "-")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(broadcastCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(feedCmd)
}

// openDB connects the admin commands; callers defer database.Close
func openDB() error {
	if err := database.Initialize(cfg.Database, false); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
