package store

import (
	"time"

	"sol-swap/pkg/catalog"
)

const (
	// MaxHistory caps the searched-address history
	MaxHistory = 20

	// MaxSwaps caps the swap journal
	MaxSwaps = 100
)

// SwapStatus is the outcome of one submission attempt
type SwapStatus string

const (
	SwapSubmitted SwapStatus = "submitted" // signature returned by the node
	SwapFailed    SwapStatus = "failed"    // build, sign or broadcast failed
)

// SwapRecord is one journal entry: a swap, or a SOL transfer when
// Recipient is set
type SwapRecord struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Network    string     `json:"network"`
	InputMint  string     `json:"input_mint"`
	OutputMint string     `json:"output_mint"`
	InAmount   string     `json:"in_amount"`
	OutAmount  string     `json:"out_amount"`
	Recipient  string     `json:"recipient,omitempty"` // set for native transfers
	Signature  string     `json:"signature,omitempty"`
	Status     SwapStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// State is the persisted document. Every slice is newest first.
type State struct {
	Favorites     []string        `json:"favorites"`
	SearchHistory []string        `json:"searchHistory"`
	IsDevnet      bool            `json:"isDevnet"`
	CustomTokens  []catalog.Token `json:"customTokens"`
	Swaps         []SwapRecord    `json:"swaps"`
}

func (s State) clone() State {
	out := State{IsDevnet: s.IsDevnet}
	out.Favorites = append([]string{}, s.Favorites...)
	out.SearchHistory = append([]string{}, s.SearchHistory...)
	out.CustomTokens = append([]catalog.Token{}, s.CustomTokens...)
	out.Swaps = append([]SwapRecord{}, s.Swaps...)
	return out
}

// Network names the active cluster
func (s State) Network() string {
	if s.IsDevnet {
		return "devnet"
	}
	return "mainnet"
}
