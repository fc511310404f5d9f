package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the quote pipeline
var (
	// ErrValidation is the parent of every input error caught before a network call
	ErrValidation = errors.New("validation error")

	// ErrInvalidAddress is returned for text that cannot be a Solana address
	ErrInvalidAddress = fmt.Errorf("%w: not a valid Solana mint address", ErrValidation)

	// ErrInvalidAmount is returned when an amount is missing or not positive
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than 0", ErrValidation)

	// ErrSameToken is returned when both sides of a swap use the same mint
	ErrSameToken = fmt.Errorf("%w: input and output token must differ", ErrValidation)

	ErrTokenNotFound   = errors.New("token not found")
	ErrNoRoute         = errors.New("no route found")
	ErrNotConnected    = errors.New("wallet not connected")
	ErrNoQuote         = errors.New("no quote available")
	ErrBuildFailed     = errors.New("failed to build swap transaction")
	ErrSigningRejected = errors.New("signing rejected")

	// ErrInsufficientFunds is returned when a transfer exceeds the balance
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// NetworkError wraps a transport failure (DNS, TCP, timeout, unreadable body)
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServiceError is a non-2xx response from a REST service
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: service returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

// RPCError is a JSON-RPC error object returned by the Solana node
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s failed (code %d): %s", e.Method, e.Code, e.Message)
}

// UserMessage renders an error as a single human-readable line. Each error
// class gets a distinct message so the user can tell what to do next.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	var svcErr *ServiceError
	var rpcErr *RPCError

	switch {
	case errors.Is(err, ErrNoRoute):
		return "No route found for this pair and amount"
	case errors.Is(err, ErrNotConnected):
		return "Connect a wallet first (set SOL_SWAP_PRIVATE_KEY)"
	case errors.Is(err, ErrNoQuote):
		return "Wait for a quote before swapping"
	case errors.Is(err, ErrSigningRejected):
		return "Transaction was not signed"
	case errors.As(err, &netErr):
		return "Network error, check your connection and try again"
	case errors.Is(err, ErrInsufficientFunds):
		return "Not enough SOL to cover the amount and the network fee"
	case errors.Is(err, ErrBuildFailed):
		return "The aggregator could not build a transaction for this quote, fetch a new quote and retry"
	case errors.Is(err, ErrTokenNotFound):
		return "Token not found, it is not listed on Jupiter"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.As(err, &svcErr):
		return fmt.Sprintf("Service error (HTTP %d)", svcErr.StatusCode)
	case errors.As(err, &rpcErr):
		return rpcErr.Message
	default:
		return err.Error()
	}
}
