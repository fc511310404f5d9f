package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorsShareParent(t *testing.T) {
	for _, err := range []error{ErrInvalidAddress, ErrInvalidAmount, ErrSameToken} {
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.NotErrorIs(t, ErrNoRoute, ErrValidation)
}

func TestNetworkErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("quote: %w", &NetworkError{Op: "quote", Err: context.DeadlineExceeded})

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "network error during quote")
}

func TestUserMessageIsDistinctPerClass(t *testing.T) {
	errs := []error{
		ErrNoRoute,
		ErrNotConnected,
		ErrNoQuote,
		ErrSigningRejected,
		fmt.Errorf("%w: have 0.1 SOL", ErrInsufficientFunds),
		fmt.Errorf("%w: %w", ErrBuildFailed, errors.New("bad quote")),
		fmt.Errorf("%w: mint", ErrTokenNotFound),
		ErrSameToken,
		&NetworkError{Op: "quote", Err: errors.New("dial tcp")},
		&ServiceError{Op: "quote", StatusCode: 429},
		&RPCError{Method: "getBalance", Code: -32602, Message: "Invalid param"},
	}

	seen := make(map[string]error, len(errs))
	for _, err := range errs {
		msg := UserMessage(err)
		assert.NotEmpty(t, msg)
		if prev, dup := seen[msg]; dup {
			t.Errorf("%v and %v share message %q", prev, err, msg)
		}
		seen[msg] = err
	}

	assert.Equal(t, "Service error (HTTP 429)", UserMessage(&ServiceError{StatusCode: 429}))
	assert.Equal(t, "Invalid param", UserMessage(&RPCError{Message: "Invalid param"}))
	assert.Empty(t, UserMessage(nil))
}

func TestUserMessage_NetworkDropWhileBuilding(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrBuildFailed, &NetworkError{Op: "swap", Err: errors.New("connection reset")})

	assert.Equal(t, UserMessage(&NetworkError{}), UserMessage(err))
	assert.NotEqual(t, UserMessage(ErrBuildFailed), UserMessage(err))
}
