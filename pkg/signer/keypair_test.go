package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swap/pkg/types"
)

type fakeSender struct {
	sent []*solana.Transaction
	opts rpc.TransactionOpts
	err  error
}

func (f *fakeSender) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if f.err != nil {
		return solana.Signature{}, f.err
	}
	f.sent = append(f.sent, tx)
	f.opts = opts
	return tx.Signatures[0], nil
}

// unsignedTransfer builds a base64 transaction paid by payer with one zeroed
// signature slot, the way the aggregator returns it
func unsignedTransfer(t *testing.T, payer solana.PublicKey) string {
	t.Helper()
	ix := system.NewTransferInstruction(1000, payer, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{7, 7, 7}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	tx.Signatures = []solana.Signature{{}}

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func newSigner(t *testing.T, sender Sender, confirm ConfirmFunc) (*KeypairSigner, solana.PrivateKey) {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	s, err := NewKeypairSigner(Config{
		PrivateKey:    key.String(),
		SkipPreflight: true,
		Commitment:    rpc.CommitmentFinalized,
		Confirm:       confirm,
	}, sender, nil)
	require.NoError(t, err)
	return s, key
}

func TestSignAndSubmit(t *testing.T) {
	sender := &fakeSender{}
	var summary TxSummary
	s, key := newSigner(t, sender, func(sum TxSummary) bool {
		summary = sum
		return true
	})

	sig, err := s.SignAndSubmit(context.Background(), unsignedTransfer(t, key.PublicKey()))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	tx := sender.sent[0]
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, tx.Signatures[0].String(), sig)

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, tx.Signatures[0].Verify(key.PublicKey(), msg))

	assert.True(t, sender.opts.SkipPreflight)
	assert.Equal(t, rpc.CommitmentFinalized, sender.opts.PreflightCommitment)

	assert.Equal(t, key.PublicKey().String(), summary.FeePayer)
	assert.Equal(t, 1, summary.Instructions)
	assert.Equal(t, 1, summary.Signers)
	assert.Equal(t, key.PublicKey().String(), s.Address())
}

func TestSignAndSubmit_Declined(t *testing.T) {
	sender := &fakeSender{}
	s, key := newSigner(t, sender, func(TxSummary) bool { return false })

	_, err := s.SignAndSubmit(context.Background(), unsignedTransfer(t, key.PublicKey()))
	assert.ErrorIs(t, err, types.ErrSigningRejected)
	assert.Empty(t, sender.sent)
}

func TestSignAndSubmit_ForeignPayerCannotBeSigned(t *testing.T) {
	sender := &fakeSender{}
	s, _ := newSigner(t, sender, nil)

	_, err := s.SignAndSubmit(context.Background(), unsignedTransfer(t, solana.NewWallet().PublicKey()))
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestSignAndSubmit_BadPayload(t *testing.T) {
	s, _ := newSigner(t, &fakeSender{}, nil)

	_, err := s.SignAndSubmit(context.Background(), "%%%not-base64")
	assert.Error(t, err)

	_, err = s.SignAndSubmit(context.Background(), base64.StdEncoding.EncodeToString([]byte{1}))
	assert.Error(t, err)
}

func TestSignAndSubmit_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("blockhash not found")}
	s, key := newSigner(t, sender, nil)

	_, err := s.SignAndSubmit(context.Background(), unsignedTransfer(t, key.PublicKey()))
	assert.ErrorContains(t, err, "blockhash not found")
}

func TestNewKeypairSigner(t *testing.T) {
	_, err := NewKeypairSigner(Config{}, &fakeSender{}, nil)
	assert.ErrorIs(t, err, types.ErrNotConnected)

	_, err = NewKeypairSigner(Config{PrivateKey: "0OIl"}, &fakeSender{}, nil)
	assert.Error(t, err)
}
