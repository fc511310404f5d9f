package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/chain"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the status of a transaction",
	Long: `Check the confirmation status of a submitted transaction by its signature.

Examples:
  sol-swap status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  sol-swap status <signature> --watch
  sol-swap status <signature> --watch --interval 2`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

var tokenInfoCmd = &cobra.Command{
	Use:   "token <mint>",
	Short: "Show the supply and decimals of a token mint",
	Args:  cobra.ExactArgs(1),
	Run:   runTokenInfo,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tokenInfoCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until finalized")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	signature := strings.TrimSpace(args[0])
	a := mustLoadApp(cmd)
	client := a.chainClient()

	if watchStatus {
		watchSignatureStatus(cmd, a, client, signature)
		return
	}

	status, err := withSpinner(a, " Checking transaction status...", func() (*chain.SignatureStatus, error) {
		return client.GetSignatureStatus(cmd.Context(), signature)
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.json {
		printJSON(status)
		return
	}
	displayStatus(status)
}

func watchSignatureStatus(cmd *cobra.Command, a *app, client *chain.Client, signature string) {
	if a.json {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}
	if watchInterval < 1 {
		watchInterval = 1
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString("%s", signature))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		status, err := client.GetSignatureStatus(cmd.Context(), signature)
		if err != nil {
			color.Red("Error: %v", err)
		} else {
			displayStatus(status)
			if status.Status == "finalized" || status.Err != "" {
				return
			}
		}

		select {
		case <-cmd.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func displayStatus(status *chain.SignatureStatus) {
	printHeader("TRANSACTION STATUS", 70)

	fmt.Printf("\n  Signature:       %s\n", color.CyanString("%s", status.Signature))
	if !status.Found {
		fmt.Printf("  Status:          %s\n", color.YellowString("NOT FOUND"))
		fmt.Println("\n  The node has not seen this transaction yet, or it has expired.")
		printFooter(70)
		return
	}

	fmt.Printf("  Status:          %s\n", getColoredStatus(status))
	fmt.Printf("  Slot:            %d\n", status.Slot)
	if status.Confirmations != nil {
		fmt.Printf("  Confirmations:   %d\n", *status.Confirmations)
	}
	if status.Err != "" {
		fmt.Printf("  Error:           %s\n", color.RedString("%s", status.Err))
	}

	printFooter(70)
}

func getColoredStatus(status *chain.SignatureStatus) string {
	s := strings.ToUpper(status.Status)
	if status.Err != "" {
		return color.RedString("FAILED")
	}

	switch s {
	case "FINALIZED":
		return color.GreenString("%s", s)
	case "CONFIRMED":
		return color.CyanString("%s", s)
	case "PROCESSED":
		return color.YellowString("%s", s)
	default:
		return s
	}
}

func runTokenInfo(cmd *cobra.Command, args []string) {
	mint := strings.TrimSpace(args[0])
	a := mustLoadApp(cmd)

	supply, err := withSpinner(a, " Fetching token supply...", func() (*chain.TokenSupply, error) {
		return a.chainClient().GetTokenSupply(cmd.Context(), mint)
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	tok, known := a.registry.Resolve(mint, a.customTokens())

	if a.json {
		out := map[string]interface{}{
			"mint":      supply.Mint,
			"supply":    supply.Amount,
			"ui_supply": supply.UIAmount,
			"decimals":  supply.Decimals,
		}
		if known {
			out["symbol"] = tok.Symbol
			out["name"] = tok.Name
		}
		printJSON(out)
		return
	}

	printHeader("TOKEN", 70)
	if known {
		fmt.Printf("\n  Token:     %s (%s)\n", color.YellowString("%s", tok.Symbol), tok.Name)
	}
	fmt.Printf("  Mint:      %s\n", color.CyanString("%s", supply.Mint))
	fmt.Printf("  Decimals:  %d\n", supply.Decimals)
	fmt.Printf("  Supply:    %s\n", supply.UIAmount)
	printFooter(70)
}
