package quote

import (
	"sol-swap/pkg/catalog"
	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

// State is the engine's position in the quote lifecycle
type State int

const (
	StateIdle       State = iota // no valid amount
	StateDebouncing              // waiting for input to settle
	StateFetching                // request in flight
	StateReady                   // quote available
	StateFailed                  // last request or validation failed
)

func (s State) String() string {
	switch s {
	case StateDebouncing:
		return "debouncing"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Settled reports whether no quote work is pending
func (s State) Settled() bool {
	return s != StateDebouncing && s != StateFetching
}

// Selection is one side of the pair. Orphaned is set when the token left
// the catalog; the last-known descriptor is kept.
type Selection struct {
	Token    catalog.Token
	Orphaned bool
}

// Snapshot is a copy of the engine state
type Snapshot struct {
	RequestID  uint64
	State      State
	AmountText string
	Input      Selection
	Output     Selection
	Quote      *types.SwapQuote
	Err        error

	version uint64
}

// InputAmountDisplay is the quoted input amount in human units
func (s Snapshot) InputAmountDisplay() string {
	if s.Quote == nil {
		return ""
	}
	return units.FromSmallestUnitString(s.Quote.InAmount, s.Input.Token.Decimals)
}

// OutputAmountDisplay is the quoted output amount in human units, or empty
// without a quote
func (s Snapshot) OutputAmountDisplay() string {
	if s.Quote == nil {
		return ""
	}
	return units.FromSmallestUnitString(s.Quote.OutAmount, s.Output.Token.Decimals)
}

// MinimumReceivedDisplay is the slippage-adjusted output in human units
func (s Snapshot) MinimumReceivedDisplay() string {
	if s.Quote == nil {
		return ""
	}
	return units.FromSmallestUnitString(s.Quote.MinimumReceived(), s.Output.Token.Decimals)
}

// PriceImpactPercent renders the price impact as a percentage
func (s Snapshot) PriceImpactPercent() string {
	if s.Quote == nil {
		return ""
	}
	return s.Quote.PriceImpactFraction().Shift(2).String()
}

// ExchangeRate is output units per input unit
func (s Snapshot) ExchangeRate() string {
	if s.Quote == nil {
		return ""
	}
	return units.Ratio(s.OutputAmountDisplay(), s.InputAmountDisplay())
}

// RouteHops is the number of hops in the quoted route
func (s Snapshot) RouteHops() int {
	if s.Quote == nil {
		return 0
	}
	return s.Quote.RouteHopCount()
}
