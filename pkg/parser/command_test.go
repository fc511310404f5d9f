package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swap/pkg/types"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		input string
		want  types.SwapRequest
	}{
		{"swap 1 SOL to USDC", types.SwapRequest{Amount: "1", SourceToken: "SOL", DestToken: "USDC"}},
		{"1.5 sol for bonk", types.SwapRequest{Amount: "1.5", SourceToken: "sol", DestToken: "bonk"}},
		{"  SWAP   .5  wsol   TO  usdt ", types.SwapRequest{Amount: ".5", SourceToken: "SOL", DestToken: "usdt"}},
		{
			"100 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
			types.SwapRequest{Amount: "100", SourceToken: "USDC", DestToken: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSwapCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseSwapCommandRejects(t *testing.T) {
	for _, input := range []string{"", "swap SOL to USDC", "1 SOL USDC", "abc SOL to USDC"} {
		_, err := ParseSwapCommand(input)
		assert.Error(t, err, input)
	}

	_, err := ParseSwapCommand("0 SOL to USDC")
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestParseArgs(t *testing.T) {
	got, err := ParseArgs([]string{"2", "SOL", "to", "JUP"})
	require.NoError(t, err)
	assert.Equal(t, "2", got.Amount)
	assert.Equal(t, "JUP", got.DestToken)
}
