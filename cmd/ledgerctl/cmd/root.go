package cmd

import (
	"context"
	"fmt"
	"os"

	"lv-ledger/internal/config"
	"lv-ledger/internal/db"
	"lv-ledger/internal/store"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator tooling for the trade ledger",
	Long: `ledgerctl manages ledger accounts, reads the closed-trade journal and
smoke-tests a running API.

Commands that touch accounts read the same configuration as the API
(environment, .env, or --config).`,
	SilenceUsage: true,
}

var cfgFile string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_FILE"), "YAML config file")
}

func openStore(ctx context.Context) (store.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Store.Driver == config.DriverMemory {
		fmt.Fprintln(os.Stderr, "warning: STORE_DRIVER=memory, changes are discarded on exit")
	}
	st, err := db.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
