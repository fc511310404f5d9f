package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/chain"
	"sol-swap/pkg/signer"
	"sol-swap/pkg/store"
	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

var sendCmd = &cobra.Command{
	Use:   "send <address> <amount>",
	Short: "Send SOL to another address",
	Long: `Transfer native SOL from the configured wallet to another address.

The balance must cover the amount plus the network fee. Transfers are
recorded in the local journal next to swaps.

Examples:
  sol-swap send 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM 0.25
  sol-swap send 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM 1 --devnet --yes`,
	Args: cobra.ExactArgs(2),
	Run:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSend(cmd *cobra.Command, args []string) {
	recipient := strings.TrimSpace(args[0])
	amount := strings.TrimSpace(args[1])

	if _, err := chain.ParseAddress(recipient); err != nil {
		printError(err)
		os.Exit(1)
	}
	if _, ok := units.ParseAmount(amount); !ok {
		printError(types.ErrInvalidAmount)
		os.Exit(1)
	}

	a := mustLoadApp(cmd)
	chainClient := a.chainClient()

	kp, err := signer.NewKeypairSigner(signer.Config{
		PrivateKey:    a.cfg.PrivateKey,
		SkipPreflight: a.cfg.SkipPreflight,
		Commitment:    chain.ParseCommitment(a.cfg.Commitment),
		Confirm:       confirmTransaction(a),
	}, chainClient.RPC(), a.log)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !a.json {
		printHeader("SEND SOL", 60)
		fmt.Printf("\n  From:     %s\n", color.CyanString("%s", kp.Address()))
		fmt.Printf("  To:       %s\n", color.CyanString("%s", recipient))
		fmt.Printf("  Amount:   %s SOL\n", color.YellowString("%s", amount))
		fmt.Printf("  Network:  %s\n", a.network())
		printFooter(60)
	}

	transfer, err := kp.SendSOL(cmd.Context(), chainClient.RPC(), recipient, amount)
	if rec, ok := transferRecord(recipient, amount, transfer, err); ok {
		rec.Network = a.network()
		if _, jerr := a.store.RecordSwap(rec); jerr != nil {
			a.log.WithError(jerr).Warn("failed to record transfer")
		}
	}
	if err != nil {
		if errors.Is(err, types.ErrSigningRejected) {
			fmt.Println("\nTransfer cancelled.")
			return
		}
		printError(err)
		os.Exit(1)
	}

	displayTransfer(a, transfer)
}

// transferRecord builds the journal entry for a send attempt. Input errors
// and declined prompts are not recorded.
func transferRecord(recipient, amount string, transfer *signer.Transfer, err error) (store.SwapRecord, bool) {
	if err != nil && (errors.Is(err, types.ErrValidation) ||
		errors.Is(err, types.ErrSigningRejected) ||
		errors.Is(err, types.ErrInsufficientFunds)) {
		return store.SwapRecord{}, false
	}

	rec := store.SwapRecord{
		InputMint:  catalog.MintSOL,
		OutputMint: catalog.MintSOL,
		InAmount:   units.ToSmallestUnit(amount, signer.SOLDecimals).String(),
		Recipient:  recipient,
	}
	if err != nil {
		rec.Status = store.SwapFailed
		rec.Error = err.Error()
	} else {
		rec.Status = store.SwapSubmitted
		rec.Signature = transfer.Signature
		rec.InAmount = strconv.FormatUint(transfer.Lamports, 10)
	}
	rec.OutAmount = rec.InAmount
	return rec, true
}

func displayTransfer(a *app, transfer *signer.Transfer) {
	explorer := explorerURL(a, transfer.Signature)
	sol := units.FromSmallestUnitString(strconv.FormatUint(transfer.Lamports, 10), signer.SOLDecimals)

	if a.json {
		printJSON(map[string]interface{}{
			"signature": transfer.Signature,
			"from":      transfer.From,
			"to":        transfer.To,
			"lamports":  transfer.Lamports,
			"amount":    sol,
			"explorer":  explorer,
			"status":    "submitted",
		})
		return
	}

	color.Green("\n✓ Sent %s SOL", sol)
	fmt.Printf("  Signature: %s\n", color.CyanString("%s", transfer.Signature))
	fmt.Printf("  Explorer:  %s\n", explorer)
	fmt.Println("\nYou can monitor the transaction using:")
	color.Cyan("  sol-swap status %s --watch\n", transfer.Signature)
}
