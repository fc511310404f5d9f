package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// QuoteParams is what the quote engine asks the aggregator for
type QuoteParams struct {
	InputMint   string
	OutputMint  string
	Amount      string // smallest units
	SlippageBps int
}

// SwapQuote is a priced route returned by the aggregator. It is valid only
// for the exact (InputMint, OutputMint, InAmount) triple it was fetched for.
type SwapQuote struct {
	InputMint            string            `json:"inputMint"`
	InAmount             string            `json:"inAmount"`
	OutputMint           string            `json:"outputMint"`
	OutAmount            string            `json:"outAmount"`
	OtherAmountThreshold string            `json:"otherAmountThreshold"`
	SwapMode             string            `json:"swapMode"`
	SlippageBps          int               `json:"slippageBps"`
	PriceImpactPct       string            `json:"priceImpactPct"`
	RoutePlan            []json.RawMessage `json:"routePlan"`
	ContextSlot          uint64            `json:"contextSlot,omitempty"`

	// raw holds the aggregator response verbatim so /swap receives the
	// quote exactly as it was priced
	raw json.RawMessage
}

type swapQuoteFields SwapQuote

// UnmarshalJSON decodes the known fields and keeps the original bytes
func (q *SwapQuote) UnmarshalJSON(data []byte) error {
	var fields swapQuoteFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*q = SwapQuote(fields)
	q.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the original aggregator payload when available
func (q SwapQuote) MarshalJSON() ([]byte, error) {
	if len(q.raw) > 0 {
		return q.raw, nil
	}
	return json.Marshal(swapQuoteFields(q))
}

// RouteHopCount returns the number of hops in the route
func (q *SwapQuote) RouteHopCount() int {
	return len(q.RoutePlan)
}

// PriceImpactFraction parses PriceImpactPct; 0.012 means 1.2%
func (q *SwapQuote) PriceImpactFraction() decimal.Decimal {
	d, err := decimal.NewFromString(q.PriceImpactPct)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MinimumReceived is the output amount after slippage, in smallest units
func (q *SwapQuote) MinimumReceived() string {
	return q.OtherAmountThreshold
}

// Matches reports whether the quote was fetched for the given triple
func (q *SwapQuote) Matches(inputMint, outputMint, inAmount string) bool {
	return q.InputMint == inputMint && q.OutputMint == outputMint && q.InAmount == inAmount
}

// SwapResult is reported after a successful submission
type SwapResult struct {
	Signature  string
	InputMint  string
	OutputMint string
	InAmount   string
	OutAmount  string
}

// SwapRequest is a parsed "<amount> <from> to <to>" command. Tokens are
// kept as typed: a symbol or a mint address.
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}
