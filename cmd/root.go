package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "soltrader",
	Short: "Automated on-chain trading engine",
	Long: `Automated trading engine that listens for new liquidity pools,
scores them into buy opportunities, and manages the resulting positions
through take-profit, stop-loss and trailing-stop rules.

Pool events arrive over WebSocket, prices are polled in adaptive batches,
and trades are built, signed and submitted through the chain RPC with
blockhash-refreshing retries.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
