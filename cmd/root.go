package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/concierge/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Chat concierge service for the site assistant",
	Long:  "Fronts the site chat widget: classifies visitor intent, fetches pages through the harvester scraping service on request, and answers with profile-grounded Claude completions under per-visitor daily quotas.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
