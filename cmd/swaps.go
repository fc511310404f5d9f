package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/store"
	"sol-swap/pkg/units"
)

var swapsCmd = &cobra.Command{
	Use:   "swaps [id]",
	Short: "Show submitted swaps and transfers",
	Long: `Show the local journal of swap and SOL transfer submissions, newest first.

Pass an ID (or its first 8 characters) to show one entry.

Examples:
  sol-swap swaps
  sol-swap swaps 3f2a9c1b`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSwaps,
}

func init() {
	rootCmd.AddCommand(swapsCmd)
}

func runSwaps(cmd *cobra.Command, args []string) {
	a := mustLoadApp(cmd)

	if len(args) == 1 {
		rec, err := a.store.GetSwap(args[0])
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if a.json {
			printJSON(rec)
			return
		}
		displaySwapRecord(a, rec)
		return
	}

	swaps := a.store.Swaps()
	if a.json {
		printJSON(swaps)
		return
	}
	if len(swaps) == 0 {
		fmt.Println("\nNo swaps yet.")
		return
	}

	printHeader("SWAPS", 100)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tNETWORK\tPAIR\tAMOUNT IN\tSTATUS")
	for _, rec := range swaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID[:min(8, len(rec.ID))],
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rec.Network,
			pairLabel(a, rec),
			amountLabel(a, rec.InputMint, rec.InAmount),
			statusLabel(rec.Status))
	}
	w.Flush()
	printFooter(100)
}

func displaySwapRecord(a *app, rec store.SwapRecord) {
	printHeader("SWAP", 70)

	fmt.Printf("\n  ID:          %s\n", rec.ID)
	fmt.Printf("  Time:        %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Network:     %s\n", rec.Network)
	fmt.Printf("  Pair:        %s\n", pairLabel(a, rec))
	fmt.Printf("  Amount In:   %s\n", amountLabel(a, rec.InputMint, rec.InAmount))
	if rec.Recipient != "" {
		fmt.Printf("  Recipient:   %s\n", color.CyanString("%s", rec.Recipient))
	} else {
		fmt.Printf("  Quoted Out:  %s\n", amountLabel(a, rec.OutputMint, rec.OutAmount))
	}
	fmt.Printf("  Status:      %s\n", statusLabel(rec.Status))
	if rec.Signature != "" {
		fmt.Printf("  Signature:   %s\n", color.CyanString("%s", rec.Signature))
	}
	if rec.Error != "" {
		fmt.Printf("  Error:       %s\n", color.RedString("%s", rec.Error))
	}

	printFooter(70)
}

func pairLabel(a *app, rec store.SwapRecord) string {
	if rec.Recipient != "" {
		return symbolFor(a, rec.InputMint) + " -> " + shortAddress(rec.Recipient)
	}
	return symbolFor(a, rec.InputMint) + " -> " + symbolFor(a, rec.OutputMint)
}

func shortAddress(address string) string {
	if len(address) > 8 {
		return address[:4] + "..." + address[len(address)-4:]
	}
	return address
}

func symbolFor(a *app, mint string) string {
	if tok, ok := a.registry.Resolve(mint, a.customTokens()); ok {
		return tok.Symbol
	}
	return shortAddress(mint)
}

func amountLabel(a *app, mint, amount string) string {
	tok, ok := a.registry.Resolve(mint, a.customTokens())
	if !ok {
		return amount
	}
	return units.FromSmallestUnitString(amount, tok.Decimals) + " " + tok.Symbol
}

func statusLabel(status store.SwapStatus) string {
	s := strings.ToUpper(string(status))
	if status == store.SwapSubmitted {
		return color.GreenString("%s", s)
	}
	return color.RedString("%s", s)
}
