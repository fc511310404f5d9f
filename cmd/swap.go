package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/chain"
	"sol-swap/pkg/parser"
	"sol-swap/pkg/quote"
	"sol-swap/pkg/signer"
	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

var (
	noConfirm   bool
	interactive bool
)

// stdin is shared by prompts and the interactive session
var stdin = bufio.NewReader(os.Stdin)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Quote, sign and submit a token swap",
	Long: `Swap tokens on Solana through the Jupiter aggregator.

The transaction is signed with the key in SOL_SWAP_PRIVATE_KEY (base58) and
broadcast to the configured RPC endpoint.

Interactive mode keeps a live quote while you type:
  <amount>        set the amount to sell
  from <token>    select the token to sell
  to <token>      select the token to buy
  flip            swap the two sides
  refresh         re-quote immediately
  swap            sign and submit the current quote
  quit            leave

Examples:
  sol-swap swap 1 SOL to USDC
  sol-swap swap 0.5 SOL to BONK --slippage 100 --yes
  sol-swap swap --interactive
  sol-swap swap --interactive 10 USDC to SOL`,
	Run: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run a live quoting session")
	swapCmd.Flags().IntVar(&slippageBps, "slippage", 0, "Slippage tolerance in basis points (default from config)")
}

func runSwap(cmd *cobra.Command, args []string) {
	if interactive {
		runInteractive(cmd, args)
		return
	}

	if len(args) == 0 {
		printError(fmt.Errorf("expected: sol-swap swap <amount> <token> to <token>"))
		os.Exit(1)
	}

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
	ctx := cmd.Context()

	engine, snap, err := fetchQuote(ctx, a, swapReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer engine.Close()

	if !a.json {
		displayQuote(snap, a.network())
	}

	submitter, address := newSubmitter(a, engine)
	if address != "" && !a.json {
		fmt.Printf("Wallet: %s\n", color.CyanString("%s", address))
	}

	res, err := submitter.Submit(ctx, address)
	if err != nil {
		if errors.Is(err, types.ErrSigningRejected) {
			fmt.Println("\nSwap cancelled.")
			return
		}
		printError(err)
		os.Exit(1)
	}

	displayResult(a, res)
}

// newSubmitter wires the signer and returns the connected wallet address,
// empty when no key is configured
func newSubmitter(a *app, engine *quote.Engine) (*swap.Submitter, string) {
	chainClient := a.chainClient()

	var (
		txSigner swap.Signer
		address  string
	)
	kp, err := signer.NewKeypairSigner(signer.Config{
		PrivateKey:    a.cfg.PrivateKey,
		SkipPreflight: a.cfg.SkipPreflight,
		Commitment:    chain.ParseCommitment(a.cfg.Commitment),
		Confirm:       confirmTransaction(a),
	}, chainClient.RPC(), a.log)
	switch {
	case err == nil:
		txSigner, address = kp, kp.Address()
	case !errors.Is(err, types.ErrNotConnected):
		a.log.WithError(err).Warn("private key could not be loaded")
	}

	return swap.NewSubmitter(engine, a.jupiterClient(), txSigner, a.store, a.log, a.metrics), address
}

// confirmTransaction shows the transaction before it is signed
func confirmTransaction(a *app) signer.ConfirmFunc {
	return func(summary signer.TxSummary) bool {
		if noConfirm || a.json {
			return true
		}
		fmt.Printf("\n  Fee Payer:         %s\n", summary.FeePayer)
		fmt.Printf("  Instructions:      %d\n", summary.Instructions)
		fmt.Printf("  Signers:           %d\n", summary.Signers)
		return confirm("Sign and submit this transaction?")
	}
}

func explorerURL(a *app, signature string) string {
	explorer := "https://solscan.io/tx/" + signature
	if a.devnet {
		explorer += "?cluster=devnet"
	}
	return explorer
}

func displayResult(a *app, res *types.SwapResult) {
	explorer := explorerURL(a, res.Signature)

	if a.json {
		printJSON(map[string]interface{}{
			"signature":   res.Signature,
			"input_mint":  res.InputMint,
			"output_mint": res.OutputMint,
			"in_amount":   res.InAmount,
			"out_amount":  res.OutAmount,
			"explorer":    explorer,
			"status":      "submitted",
		})
		return
	}

	color.Green("\n✓ Swap submitted successfully!")
	fmt.Printf("  Signature: %s\n", color.CyanString("%s", res.Signature))
	fmt.Printf("  Explorer:  %s\n", explorer)
	fmt.Println("\nYou can monitor the transaction using:")
	color.Cyan("  sol-swap status %s --watch\n", res.Signature)
}

func runInteractive(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	ctx := cmd.Context()

	from, to, amount := catalog.MintSOL, catalog.MintUSDC, ""
	if len(args) > 0 {
		swapReq, err := parser.ParseArgs(args)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		in, err := a.resolveToken(ctx, swapReq.SourceToken)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		out, err := a.resolveToken(ctx, swapReq.DestToken)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		from, to, amount = in.Mint, out.Mint, swapReq.Amount
	}

	engine, err := newEngine(a, from, to, quote.WithOnChange(printSnapshot))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer engine.Close()

	a.store.OnCustomTokensChanged(func(saved []catalog.Token) {
		engine.CatalogChanged(withUnsaved(saved, a.unsaved))
	})
	submitter, address := newSubmitter(a, engine)

	color.Green("\nInteractive swap on %s. Type 'help' for commands.\n", a.network())
	if address == "" {
		color.Yellow("No wallet configured: quotes only.\n")
	}
	if amount != "" {
		engine.SetAmount(amount)
	} else {
		printSnapshot(engine.Snapshot())
	}

	for {
		line, err := stdin.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if quit := handleLine(ctx, a, engine, submitter, address, line); quit {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printError(err)
			}
			return
		}
	}
}

func handleLine(ctx context.Context, a *app, engine *quote.Engine, submitter *swap.Submitter, address, line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Println("  <amount> | from <token> | to <token> | flip | refresh | swap | quit")
	case "flip":
		engine.Flip()
	case "refresh", "r":
		engine.Refresh()
	case "from", "to":
		if len(fields) != 2 {
			color.Red("usage: %s <token>", fields[0])
			return false
		}
		tok, err := a.resolveToken(ctx, fields[1])
		if err != nil {
			color.Red("%s", types.UserMessage(err))
			return false
		}
		if a.isUnsaved(tok.Mint) {
			engine.CatalogChanged(a.customTokens())
		}
		if strings.EqualFold(fields[0], "from") {
			err = engine.SetInputToken(tok.Mint)
		} else {
			err = engine.SetOutputToken(tok.Mint)
		}
		if err != nil {
			color.Red("%s", types.UserMessage(err))
		}
	case "swap":
		res, err := submitter.Submit(ctx, address)
		if err != nil {
			color.Red("%s", types.UserMessage(err))
			return false
		}
		displayResult(a, res)
	default:
		engine.SetAmount(line)
	}
	return false
}

// printSnapshot renders one engine state change as a status line
func printSnapshot(snap quote.Snapshot) {
	pair := fmt.Sprintf("%s -> %s", symbolOf(snap.Input), symbolOf(snap.Output))

	switch snap.State {
	case quote.StateIdle:
		fmt.Printf("  %s  enter an amount\n", pair)
	case quote.StateDebouncing:
		fmt.Printf("  %s  %s ...\n", pair, snap.AmountText)
	case quote.StateFetching:
		fmt.Printf("  %s  %s  fetching quote\n", pair, snap.AmountText)
	case quote.StateReady:
		fmt.Printf("  %s  %s %s -> %s %s  (min %s, impact %s)\n",
			pair,
			snap.InputAmountDisplay(), snap.Input.Token.Symbol,
			color.GreenString("%s", snap.OutputAmountDisplay()), snap.Output.Token.Symbol,
			snap.MinimumReceivedDisplay(), priceImpact(snap))
	case quote.StateFailed:
		fmt.Printf("  %s  %s\n", pair, color.RedString("%s", types.UserMessage(snap.Err)))
	}
}

func symbolOf(sel quote.Selection) string {
	if sel.Orphaned {
		return sel.Token.Symbol + color.YellowString("(removed)")
	}
	return sel.Token.Symbol
}

func confirm(question string) bool {
	fmt.Printf("\n%s (y/N): ", question)

	response, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
