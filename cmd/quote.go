package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sol-swap/pkg/parser"
	"sol-swap/pkg/quote"
	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

var slippageBps int

// price impact thresholds for coloring, as fractions
var (
	mediumImpact = decimal.RequireFromString("0.01")
	highImpact   = decimal.RequireFromString("0.03")
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Get a swap quote without executing it",
	Long: `Ask the Jupiter aggregator for the best route and show the expected output.

Tokens can be given by symbol or by mint address. Unknown mints are looked up
and remembered as custom tokens.

Examples:
  sol-swap quote 1.5 SOL to USDC
  sol-swap quote 100 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN
  sol-swap quote 1 SOL to BONK --slippage 100`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().IntVar(&slippageBps, "slippage", 0, "Slippage tolerance in basis points (default from config)")
}

func runQuote(cmd *cobra.Command, args []string) {
	swapReq, err := parser.ParseArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	engine, snap, err := fetchQuote(cmd.Context(), a, swapReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer engine.Close()

	if a.json {
		printJSON(quoteOutput(snap, a.network()))
		return
	}
	displayQuote(snap, a.network())
}

// newEngine builds a quote engine for the pair, applying config and flags
func newEngine(a *app, inputMint, outputMint string, opts ...quote.Option) (*quote.Engine, error) {
	slippage := a.cfg.SlippageBps
	if slippageBps > 0 {
		slippage = slippageBps
	}

	base := []quote.Option{
		quote.WithSlippageBps(slippage),
		quote.WithDebounce(a.cfg.QuoteDebounce),
		quote.WithFetchTimeout(a.cfg.HTTPTimeout),
		quote.WithLogger(a.log),
		quote.WithMetrics(a.metrics),
	}
	return quote.NewEngine(a.jupiterClient(), a.registry, a.customTokens(), inputMint, outputMint, append(base, opts...)...)
}

// fetchQuote resolves both tokens and waits for a quote. The caller owns the
// returned engine.
func fetchQuote(ctx context.Context, a *app, swapReq *types.SwapRequest) (*quote.Engine, quote.Snapshot, error) {
	in, err := a.resolveToken(ctx, swapReq.SourceToken)
	if err != nil {
		return nil, quote.Snapshot{}, err
	}
	out, err := a.resolveToken(ctx, swapReq.DestToken)
	if err != nil {
		return nil, quote.Snapshot{}, err
	}

	engine, err := newEngine(a, in.Mint, out.Mint)
	if err != nil {
		return nil, quote.Snapshot{}, err
	}

	engine.SetAmount(swapReq.Amount)
	if snap := engine.Snapshot(); snap.State == quote.StateFailed {
		engine.Close()
		return nil, snap, snap.Err
	}
	engine.Refresh()

	snap, err := withSpinner(a, " Fetching quote...", func() (quote.Snapshot, error) {
		return engine.WaitSettled(ctx)
	})
	if err != nil {
		engine.Close()
		return nil, snap, err
	}
	if snap.State != quote.StateReady {
		engine.Close()
		if snap.Err == nil {
			return nil, snap, types.ErrInvalidAmount
		}
		return nil, snap, snap.Err
	}
	return engine, snap, nil
}

func quoteOutput(snap quote.Snapshot, network string) map[string]interface{} {
	return map[string]interface{}{
		"network":          network,
		"input_mint":       snap.Input.Token.Mint,
		"input_symbol":     snap.Input.Token.Symbol,
		"input_amount":     snap.InputAmountDisplay(),
		"output_mint":      snap.Output.Token.Mint,
		"output_symbol":    snap.Output.Token.Symbol,
		"output_amount":    snap.OutputAmountDisplay(),
		"minimum_received": snap.MinimumReceivedDisplay(),
		"exchange_rate":    snap.ExchangeRate(),
		"price_impact_pct": snap.PriceImpactPercent(),
		"slippage_bps":     snap.Quote.SlippageBps,
		"route_hops":       snap.RouteHops(),
		"status":           "quote_generated",
	}
}

func displayQuote(snap quote.Snapshot, network string) {
	in, out := snap.Input.Token, snap.Output.Token

	printHeader("SWAP QUOTE", 60)

	fmt.Printf("\n  From:              %s %s\n", snap.InputAmountDisplay(), color.YellowString("%s", in.Symbol))
	fmt.Printf("  To:                ~%s %s\n", snap.OutputAmountDisplay(), color.YellowString("%s", out.Symbol))
	fmt.Printf("  Minimum Received:  %s %s\n", snap.MinimumReceivedDisplay(), out.Symbol)
	fmt.Printf("  Rate:              1 %s = %s %s\n", in.Symbol, units.FormatFixed(snap.ExchangeRate(), 6), out.Symbol)
	fmt.Printf("  Price Impact:      %s\n", priceImpact(snap))
	fmt.Printf("  Slippage:          %s%%\n", units.Ratio(fmt.Sprint(snap.Quote.SlippageBps), "100"))
	fmt.Printf("  Route:             %d hop(s)\n", snap.RouteHops())
	fmt.Printf("  Network:           %s\n", network)

	printFooter(60)
}

func priceImpact(snap quote.Snapshot) string {
	pct := units.FormatFixed(snap.PriceImpactPercent(), 2) + "%"
	impact := snap.Quote.PriceImpactFraction()
	switch {
	case impact.GreaterThanOrEqual(highImpact):
		return color.RedString("%s", pct)
	case impact.GreaterThanOrEqual(mediumImpact):
		return color.YellowString("%s", pct)
	default:
		return color.GreenString("%s", pct)
	}
}
