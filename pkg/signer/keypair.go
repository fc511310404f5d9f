// Package signer signs and broadcasts aggregator-built transactions with a
// local keypair.
package signer

import (
	"context"
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"sol-swap/pkg/logging"
	"sol-swap/pkg/types"
)

// TxSummary is shown to the user before signing
type TxSummary struct {
	FeePayer     string
	Instructions int
	Signers      int
	Versioned    bool
}

// ConfirmFunc asks the user to approve a transaction. Returning false
// declines the signature.
type ConfirmFunc func(TxSummary) bool

// Sender broadcasts a signed transaction
type Sender interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// KeypairSigner holds a base58 private key
type KeypairSigner struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	sender     Sender
	opts       rpc.TransactionOpts
	confirm    ConfirmFunc
	log        *logrus.Logger
}

// Config configures a KeypairSigner
type Config struct {
	PrivateKey    string // base58
	SkipPreflight bool
	Commitment    rpc.CommitmentType
	Confirm       ConfirmFunc
}

// NewKeypairSigner parses the private key and binds the signer to sender
func NewKeypairSigner(cfg Config, sender Sender, log *logrus.Logger) (*KeypairSigner, error) {
	if cfg.PrivateKey == "" {
		return nil, types.ErrNotConnected
	}

	privateKey, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	return &KeypairSigner{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		sender:     sender,
		opts: rpc.TransactionOpts{
			SkipPreflight:       cfg.SkipPreflight,
			PreflightCommitment: commitment,
		},
		confirm: cfg.Confirm,
		log:     logging.OrDiscard(log),
	}, nil
}

// Address returns the signer's public key
func (s *KeypairSigner) Address() string {
	return s.publicKey.String()
}

// SignAndSubmit decodes a base64 transaction, asks for confirmation, signs
// it and broadcasts it. The returned string is the transaction signature.
func (s *KeypairSigner) SignAndSubmit(ctx context.Context, base64Tx string) (string, error) {
	tx, err := Decode(base64Tx)
	if err != nil {
		return "", err
	}

	if s.confirm != nil && !s.confirm(Summarize(tx)) {
		return "", types.ErrSigningRejected
	}

	return s.signAndSend(ctx, s.sender, tx)
}

func (s *KeypairSigner) signAndSend(ctx context.Context, sender Sender, tx *solana.Transaction) (string, error) {
	// the aggregator fills signature slots with placeholders
	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := sender.SendTransactionWithOpts(ctx, tx, s.opts)
	if err != nil {
		s.log.WithError(err).Warn("transaction broadcast failed")
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	s.log.WithField("signature", sig.String()).Info("transaction submitted")
	return sig.String(), nil
}

// Decode parses a base64 wire transaction
func Decode(base64Tx string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(base64Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return tx, nil
}

// Summarize describes tx for a confirmation prompt
func Summarize(tx *solana.Transaction) TxSummary {
	summary := TxSummary{
		Instructions: len(tx.Message.Instructions),
		Signers:      int(tx.Message.Header.NumRequiredSignatures),
		Versioned:    tx.Message.IsVersioned(),
	}
	if len(tx.Message.AccountKeys) > 0 {
		summary.FeePayer = tx.Message.AccountKeys[0].String()
	}
	return summary
}
