package swap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swap/pkg/observability"
	"sol-swap/pkg/store"
	"sol-swap/pkg/types"
)

type fakeSource struct {
	quote  *types.SwapQuote
	resets int
}

func (f *fakeSource) AcceptedQuote() (*types.SwapQuote, error) {
	if f.quote == nil {
		return nil, types.ErrNoQuote
	}
	return f.quote, nil
}

func (f *fakeSource) Reset() {
	f.resets++
	f.quote = nil
}

type fakeBuilder struct {
	calls int
	user  string
	tx    string
	err   error
}

func (f *fakeBuilder) BuildSwapTransaction(ctx context.Context, quote *types.SwapQuote, userPublicKey string) (string, error) {
	f.calls++
	f.user = userPublicKey
	return f.tx, f.err
}

type fakeSigner struct {
	received string
	sig      string
	err      error
}

func (f *fakeSigner) SignAndSubmit(ctx context.Context, base64Tx string) (string, error) {
	f.received = base64Tx
	return f.sig, f.err
}

func readyQuote() *types.SwapQuote {
	return &types.SwapQuote{
		InputMint:  "So11111111111111111111111111111111111111112",
		OutputMint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		InAmount:   "1500000000",
		OutAmount:  "210450000",
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, err)
	require.NoError(t, s.WaitHydrated(context.Background()))
	return s
}

func TestSubmitSuccess(t *testing.T) {
	source := &fakeSource{quote: readyQuote()}
	builder := &fakeBuilder{tx: "dHg="}
	signer := &fakeSigner{sig: "5sig"}
	journal := openStore(t)
	metrics := observability.NewMetrics()

	res, err := NewSubmitter(source, builder, signer, journal, nil, metrics).Submit(context.Background(), "wallet")
	require.NoError(t, err)

	assert.Equal(t, "5sig", res.Signature)
	assert.Equal(t, "210450000", res.OutAmount)
	assert.Equal(t, "wallet", builder.user)
	assert.Equal(t, "dHg=", signer.received)
	assert.Equal(t, 1, source.resets)

	swaps := journal.Swaps()
	require.Len(t, swaps, 1)
	assert.Equal(t, store.SwapSubmitted, swaps[0].Status)
	assert.Equal(t, "5sig", swaps[0].Signature)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("ok")))
}

func TestSubmitWithoutQuoteMakesNoCall(t *testing.T) {
	builder := &fakeBuilder{}
	journal := openStore(t)

	_, err := NewSubmitter(&fakeSource{}, builder, &fakeSigner{}, journal, nil, nil).Submit(context.Background(), "wallet")
	assert.ErrorIs(t, err, types.ErrNoQuote)
	assert.Zero(t, builder.calls)
	assert.Empty(t, journal.Swaps())
}

func TestSubmitWithoutWalletMakesNoCall(t *testing.T) {
	builder := &fakeBuilder{}
	source := &fakeSource{quote: readyQuote()}

	_, err := NewSubmitter(source, builder, &fakeSigner{}, nil, nil, nil).Submit(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrNotConnected)
	assert.Zero(t, builder.calls)
	assert.NotNil(t, source.quote)
}

func TestSubmitFailuresKeepInput(t *testing.T) {
	tests := []struct {
		name       string
		builder    *fakeBuilder
		signer     *fakeSigner
		want       error
		outcome    string
		signerUsed bool
	}{
		{
			name:    "build failed",
			builder: &fakeBuilder{err: fmt.Errorf("%w: %w", types.ErrBuildFailed, errors.New("stale quote"))},
			signer:  &fakeSigner{},
			want:    types.ErrBuildFailed,
			outcome: "build_failed",
		},
		{
			name:       "user declined",
			builder:    &fakeBuilder{tx: "dHg="},
			signer:     &fakeSigner{err: types.ErrSigningRejected},
			want:       types.ErrSigningRejected,
			outcome:    "rejected",
			signerUsed: true,
		},
		{
			name:       "broadcast failed",
			builder:    &fakeBuilder{tx: "dHg="},
			signer:     &fakeSigner{err: &types.RPCError{Method: "sendTransaction", Code: -32002, Message: "blockhash not found"}},
			outcome:    "failed",
			signerUsed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{quote: readyQuote()}
			journal := openStore(t)
			metrics := observability.NewMetrics()

			_, err := NewSubmitter(source, tt.builder, tt.signer, journal, nil, metrics).Submit(context.Background(), "wallet")
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, tt.signerUsed, tt.signer.received != "")

			assert.Zero(t, source.resets)
			assert.NotNil(t, source.quote)

			swaps := journal.Swaps()
			require.Len(t, swaps, 1)
			assert.Equal(t, store.SwapFailed, swaps[0].Status)
			assert.Equal(t, err.Error(), swaps[0].Error)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues(tt.outcome)))
		})
	}
}
