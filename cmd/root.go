package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/observability"
	"sol-swap/pkg/types"
)

var metricsServer *observability.Server

var rootCmd = &cobra.Command{
	Use:   "sol-swap",
	Short: "A CLI for Solana token swaps through the Jupiter aggregator",
	Long: `sol-swap quotes and executes Solana token swaps through the Jupiter
aggregator, and lets you inspect wallets, tokens and transactions.

Examples:
  sol-swap quote 1.5 SOL to USDC
  sol-swap swap 1 SOL to BONK
  sol-swap swap --interactive
  sol-swap tokens add 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr
  sol-swap wallet <address>
  sol-swap status <signature> --watch`,
	Version: "0.1.0",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if metricsServer == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("devnet", false, "Use devnet for this invocation")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func printError(err error) {
	fmt.Printf("\nError: %s\n\n", types.UserMessage(err))
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func printHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	color.Green("%s%s", strings.Repeat(" ", pad), title)
	fmt.Println(strings.Repeat("=", width))
}

func printFooter(width int) {
	fmt.Println("\n" + strings.Repeat("=", width) + "\n")
}
