package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/chain"
)

var signatureLimit int

var walletCmd = &cobra.Command{
	Use:   "wallet <address>",
	Short: "Show a wallet's balance, token holdings and recent transactions",
	Long: `Show the SOL balance, SPL token holdings and recent transactions of an address.

Looked-up addresses are added to the search history.

Examples:
  sol-swap wallet 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM
  sol-swap wallet 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM --limit 25 --devnet`,
	Args: cobra.ExactArgs(1),
	Run:  runWallet,
}

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage favorite addresses",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorite addresses",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		printAddressList(a, "FAVORITES", a.store.Snapshot().Favorites)
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Add an address to favorites",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		address := strings.TrimSpace(args[0])
		if _, err := chain.ParseAddress(address); err != nil {
			printError(err)
			os.Exit(1)
		}
		if err := a.store.AddFavorite(address); err != nil {
			printError(err)
			os.Exit(1)
		}
		printSuccess(fmt.Sprintf("Added %s to favorites", address))
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Remove an address from favorites",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		if err := a.store.RemoveFavorite(strings.TrimSpace(args[0])); err != nil {
			printError(err)
			os.Exit(1)
		}
		printSuccess(fmt.Sprintf("Removed %s from favorites", args[0]))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear searched addresses",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		printAddressList(a, "SEARCH HISTORY", a.store.Snapshot().SearchHistory)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the search history",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		if err := a.store.ClearHistory(); err != nil {
			printError(err)
			os.Exit(1)
		}
		printSuccess("Search history cleared.")
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(historyCmd)
	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesAddCmd)
	favoritesCmd.AddCommand(favoritesRemoveCmd)
	historyCmd.AddCommand(historyClearCmd)

	walletCmd.Flags().IntVar(&signatureLimit, "limit", chain.DefaultSignatureLimit, "Number of recent transactions to show")
}

func mustLoadApp(cmd *cobra.Command) *app {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return a
}

func runWallet(cmd *cobra.Command, args []string) {
	address := strings.TrimSpace(args[0])
	a := mustLoadApp(cmd)

	if _, err := chain.ParseAddress(address); err != nil {
		printError(err)
		os.Exit(1)
	}

	overview, err := withSpinner(a, " Loading wallet...", func() (*chain.Overview, error) {
		return a.chainClient().Overview(cmd.Context(), address, signatureLimit)
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := a.store.AddToHistory(address); err != nil {
		a.log.WithError(err).Debug("failed to update search history")
	}

	if a.json {
		printJSON(overview)
		return
	}
	displayOverview(a, overview)
}

func displayOverview(a *app, ov *chain.Overview) {
	printHeader("WALLET", 90)

	fav := ""
	if a.store.IsFavorite(ov.Address) {
		fav = color.YellowString(" ★")
	}
	fmt.Printf("\n  Address:  %s%s\n", color.CyanString("%s", ov.Address), fav)
	fmt.Printf("  Network:  %s\n", a.network())
	fmt.Printf("  Balance:  %s SOL\n", color.GreenString("%s", ov.SOL))

	color.Cyan("\nTOKENS")
	fmt.Println(strings.Repeat("-", 90))
	if len(ov.Holdings) == 0 {
		fmt.Println("  No token holdings.")
	}
	custom := a.customTokens()
	for _, h := range ov.Holdings {
		symbol := "?"
		if tok, ok := a.registry.Resolve(h.Mint, custom); ok {
			symbol = tok.Symbol
		}
		fmt.Printf("  %-10s  %-24s  %s\n",
			color.YellowString("%s", symbol),
			h.UIAmount,
			color.HiBlackString("%s", h.Mint))
	}

	color.Cyan("\nRECENT TRANSACTIONS")
	fmt.Println(strings.Repeat("-", 90))
	if len(ov.Signatures) == 0 {
		fmt.Println("  No transactions.")
	}
	for _, s := range ov.Signatures {
		when := "unknown time"
		if s.BlockTime != nil {
			when = s.BlockTime.Format("2006-01-02 15:04:05")
		}
		status := color.GreenString("ok")
		if s.Failed {
			status = color.RedString("failed")
		}
		fmt.Printf("  %s  %-6s  %s\n", when, status, color.HiBlackString("%s", truncate(s.Signature, 60)))
	}

	printFooter(90)
}

func printAddressList(a *app, title string, addresses []string) {
	if a.json {
		printJSON(addresses)
		return
	}
	if len(addresses) == 0 {
		fmt.Println("\nNothing here yet.")
		return
	}

	printHeader(title, 60)
	for i, addr := range addresses {
		fmt.Printf("  %2d. %s\n", i+1, color.CyanString("%s", addr))
	}
	printFooter(60)
}
