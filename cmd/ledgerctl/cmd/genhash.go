package cmd

import (
	"fmt"

	"lv-ledger/internal/auth"

	"github.com/spf13/cobra"
)

var genhashCmd = &cobra.Command{
	Use:   "genhash <password>",
	Short: "Print the bcrypt hash of a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genhashCmd)
}
