package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/lookup"
)

var filterQuery string

var listTokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"ls"},
	Short:   "List known tokens",
	Long: `List the built-in tokens and your custom tokens.

Custom tokens are listed first, newest first. You can filter by symbol, name
or mint address.

Examples:
  sol-swap list-tokens
  sol-swap list-tokens --search usd`,
	Run: runListTokens,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage custom tokens",
	Long: `Add, remove and refresh custom tokens.

Custom tokens are resolved through the Jupiter token search API and stored in
the local state file.

Examples:
  sol-swap tokens add 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr
  sol-swap tokens remove 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr
  sol-swap tokens refresh`,
}

var tokensAddCmd = &cobra.Command{
	Use:   "add <mint>",
	Short: "Look up a mint and add it as a custom token",
	Args:  cobra.ExactArgs(1),
	Run:   runTokensAdd,
}

var tokensRemoveCmd = &cobra.Command{
	Use:   "remove <mint>",
	Short: "Remove a custom token",
	Args:  cobra.ExactArgs(1),
	Run:   runTokensRemove,
}

var tokensRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch metadata for every custom token",
	Run:   runTokensRefresh,
}

func init() {
	rootCmd.AddCommand(listTokensCmd)
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensAddCmd)
	tokensCmd.AddCommand(tokensRemoveCmd)
	tokensCmd.AddCommand(tokensRefreshCmd)

	listTokensCmd.Flags().StringVarP(&filterQuery, "search", "s", "", "Filter by symbol, name or mint")
}

func runListTokens(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	tokens := catalog.Filter(filterQuery, a.registry.Merge(a.store.CustomTokens()))

	if a.json {
		printJSON(tokensOutput(tokens))
		return
	}
	displayTokens(tokens)
}

func runTokensAdd(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.registry.IsPreset(strings.TrimSpace(args[0])) {
		printSuccess(fmt.Sprintf("%s is a built-in token.", args[0]))
		return
	}

	lc, closeLookup := a.lookupClient()
	defer closeLookup()

	tok, err := withSpinner(a, " Looking up token...", func() (catalog.Token, error) {
		return lc.LookupOne(cmd.Context(), args[0])
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := a.store.AddCustomToken(tok); err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.json {
		printJSON(tokensOutput([]catalog.Token{tok}))
		return
	}
	color.Green("\n✓ Added %s (%s)", tok.Symbol, tok.Name)
	fmt.Printf("  Mint:      %s\n", color.HiBlackString("%s", tok.Mint))
	fmt.Printf("  Decimals:  %d\n\n", tok.Decimals)
}

func runTokensRemove(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	mint := strings.TrimSpace(args[0])
	if _, ok := a.registry.Resolve(mint, a.store.CustomTokens()); !ok || a.registry.IsPreset(mint) {
		printError(fmt.Errorf("'%s' is not a custom token", mint))
		os.Exit(1)
	}

	if err := a.store.RemoveCustomToken(mint); err != nil {
		printError(err)
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Removed %s", mint))
}

func runTokensRefresh(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	current := a.store.CustomTokens()
	if len(current) == 0 {
		printSuccess("No custom tokens to refresh.")
		return
	}

	mints := make([]string, len(current))
	for i, t := range current {
		mints[i] = t.Mint
	}

	lc, closeLookup := a.lookupClient()
	defer closeLookup()

	fresh, _ := withSpinner(a, " Refreshing token metadata...", func() ([]catalog.Token, error) {
		return lc.LookupBatch(cmd.Context(), mints), nil
	})

	// keep order and anything the search no longer returns
	byMint := make(map[string]catalog.Token, len(fresh))
	for _, t := range fresh {
		byMint[t.Mint] = t
	}
	next := make([]catalog.Token, len(current))
	for i, t := range current {
		if f, ok := byMint[t.Mint]; ok {
			next[i] = f
		} else {
			next[i] = t
		}
	}

	if err := a.store.ReplaceCustomTokens(next); err != nil {
		printError(err)
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Refreshed %d of %d custom tokens (max %d per refresh).", len(byMint), len(current), lookup.MaxBatch))
}

func tokensOutput(tokens []catalog.Token) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, map[string]interface{}{
			"mint":     t.Mint,
			"symbol":   t.Symbol,
			"name":     t.Name,
			"decimals": t.Decimals,
			"logo_uri": t.LogoURI,
			"kind":     t.Kind.String(),
		})
	}
	return out
}

func displayTokens(tokens []catalog.Token) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	printHeader("KNOWN TOKENS", 90)

	custom := 0
	for _, token := range tokens {
		kind := ""
		if token.Kind == catalog.KindCustom {
			kind = color.MagentaString(" custom")
			custom++
		}

		fmt.Printf("  %-10s  %2d decimals  %-24s %s%s\n",
			color.YellowString("%s", token.Symbol),
			token.Decimals,
			truncate(token.Name, 24),
			color.HiBlackString("%s", token.Mint),
			kind)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens (%d custom)\n\n", len(tokens), custom)
}

// truncate shortens s to n runes, ending in "..." when cut
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
