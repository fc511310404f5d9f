package parser

import (
	"fmt"
	"regexp"
	"strings"

	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

// <amount> <token> to <token>; tokens are symbols or base58 mints
var swapPattern = regexp.MustCompile(`(?i)^(\d+\.?\d*|\.\d+)\s+([A-Za-z0-9$._-]+)\s+(?:TO|FOR|->)\s+([A-Za-z0-9$._-]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "1.5 sol for bonk"
//   - "100 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.Join(strings.Fields(command), " ")
	if len(command) >= 5 && strings.EqualFold(command[:5], "swap ") {
		command = command[5:]
	}

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 SOL to USDC')")
	}

	req := &types.SwapRequest{
		Amount:      matches[1],
		SourceToken: NormalizeTokenSymbol(matches[2]),
		DestToken:   NormalizeTokenSymbol(matches[3]),
	}
	if err := ValidateSwapRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseArgs joins cobra positional args and parses them as a swap command
func ParseArgs(args []string) (*types.SwapRequest, error) {
	return ParseSwapCommand(strings.Join(args, " "))
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if _, ok := units.ParseAmount(req.Amount); !ok {
		return types.ErrInvalidAmount
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	return nil
}

// NormalizeTokenSymbol maps common aliases. Mint addresses are case
// sensitive and returned as given.
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)

	aliases := map[string]string{
		"WSOL": "SOL",
		"$WIF": "WIF",
	}

	if normalized, exists := aliases[strings.ToUpper(symbol)]; exists {
		return normalized
	}

	return symbol
}
