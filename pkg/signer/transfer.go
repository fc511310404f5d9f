package signer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"sol-swap/pkg/chain"
	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

// SignatureFee is the fee of a transaction with one signature, in lamports
const SignatureFee = 5000

// SOLDecimals is the number of decimals of native SOL
const SOLDecimals = 9

// Node is the part of the RPC client a native transfer needs
type Node interface {
	Sender
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Transfer is a submitted native SOL transfer
type Transfer struct {
	Signature string
	From      string
	To        string
	Lamports  uint64
}

// SendSOL transfers amountText SOL from the signer to recipient. The
// balance must cover the amount plus the signature fee.
func (s *KeypairSigner) SendSOL(ctx context.Context, node Node, recipient, amountText string) (*Transfer, error) {
	to, err := chain.ParseAddress(recipient)
	if err != nil {
		return nil, err
	}
	if to.Equals(s.publicKey) {
		return nil, fmt.Errorf("%w: cannot send to your own address", types.ErrValidation)
	}

	amount := units.ToSmallestUnit(amountText, SOLDecimals)
	if amount.Sign() <= 0 || !amount.IsUint64() {
		return nil, types.ErrInvalidAmount
	}
	lamports := amount.Uint64()

	balance, err := node.GetBalance(ctx, s.publicKey, s.opts.PreflightCommitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Value < lamports || balance.Value-lamports < SignatureFee {
		return nil, fmt.Errorf("%w: have %s SOL, need %s SOL including fees",
			types.ErrInsufficientFunds,
			units.FromSmallestUnit(new(big.Int).SetUint64(balance.Value), SOLDecimals),
			units.FromSmallestUnit(new(big.Int).Add(amount, big.NewInt(SignatureFee)), SOLDecimals))
	}

	recent, err := node.GetLatestBlockhash(ctx, s.opts.PreflightCommitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	if recent == nil || recent.Value == nil {
		return nil, fmt.Errorf("failed to get recent blockhash: empty response")
	}

	tx, err := s.BuildTransfer(recent.Value.Blockhash, to, lamports)
	if err != nil {
		return nil, err
	}

	if s.confirm != nil && !s.confirm(Summarize(tx)) {
		return nil, types.ErrSigningRejected
	}

	sig, err := s.signAndSend(ctx, node, tx)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"to":       to.String(),
		"lamports": lamports,
	}).Info("transfer submitted")

	return &Transfer{
		Signature: sig,
		From:      s.publicKey.String(),
		To:        to.String(),
		Lamports:  lamports,
	}, nil
}

// BuildTransfer returns an unsigned system transfer paid by the signer
func (s *KeypairSigner) BuildTransfer(blockhash solana.Hash, to solana.PublicKey, lamports uint64) (*solana.Transaction, error) {
	ix := system.NewTransferInstruction(lamports, s.publicKey, to).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(s.publicKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}
