package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sol-swap/pkg/logging"
	"sol-swap/pkg/types"
)

const (
	DefaultBaseURL     = "https://quote-api.jup.ag/v6"
	DefaultSlippageBps = 50
	DefaultTimeout     = 20 * time.Second
)

// Aggregator error codes that mean the pair or amount has no route
var noRouteCodes = map[string]bool{
	"COULD_NOT_FIND_ANY_ROUTE": true,
	"NO_ROUTES_FOUND":          true,
	"TOKEN_NOT_TRADABLE":       true,
}

// JupiterClient talks to the Jupiter swap aggregator REST API
type JupiterClient struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// apiError is the aggregator's error body
type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

type swapRequest struct {
	QuoteResponse             *types.SwapQuote `json:"quoteResponse"`
	UserPublicKey             string           `json:"userPublicKey"`
	WrapAndUnwrapSol          bool             `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool             `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string           `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// NewJupiterClient creates a new aggregator client. An empty baseURL uses
// the public v6 endpoint.
func NewJupiterClient(baseURL string, timeout time.Duration, log *logrus.Logger) *JupiterClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &JupiterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logging.OrDiscard(log),
	}
}

// GetQuote prices an exact-input swap. ErrNoRoute is returned when the
// aggregator has no path for the pair and amount.
func (c *JupiterClient) GetQuote(ctx context.Context, params types.QuoteParams) (*types.SwapQuote, error) {
	slippage := params.SlippageBps
	if slippage <= 0 {
		slippage = DefaultSlippageBps
	}

	q := url.Values{}
	q.Set("inputMint", params.InputMint)
	q.Set("outputMint", params.OutputMint)
	q.Set("amount", params.Amount)
	q.Set("slippageBps", strconv.Itoa(slippage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"input":  params.InputMint,
		"output": params.OutputMint,
		"amount": params.Amount,
	}).Debug("requesting quote")

	status, body, err := c.do(req, "quote")
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError("quote", status, body)
	}

	var quote types.SwapQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if len(quote.RoutePlan) == 0 {
		return nil, types.ErrNoRoute
	}

	return &quote, nil
}

// BuildSwapTransaction asks the aggregator to serialize a transaction for
// quote, paid by userPublicKey. The result is a base64 transaction that still
// needs the user's signature.
func (c *JupiterClient) BuildSwapTransaction(ctx context.Context, quote *types.SwapQuote, userPublicKey string) (string, error) {
	if quote == nil {
		return "", types.ErrNoQuote
	}

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:             quote,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrBuildFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrBuildFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req, "swap")
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrBuildFailed, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: %w", types.ErrBuildFailed, c.statusError("swap", status, body))
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", types.ErrBuildFailed, err)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("%w: empty transaction", types.ErrBuildFailed)
	}

	return resp.SwapTransaction, nil
}

func (c *JupiterClient) do(req *http.Request, op string) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("op", op).Warn("aggregator request failed")
		return 0, nil, &types.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &types.NetworkError{Op: op, Err: err}
	}
	return resp.StatusCode, body, nil
}

// statusError turns a non-2xx response into ErrNoRoute or a ServiceError
func (c *JupiterClient) statusError(op string, status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if noRouteCodes[apiErr.ErrorCode] {
			return fmt.Errorf("%w: %s", types.ErrNoRoute, apiErr.ErrorCode)
		}
	}

	message := apiErr.Error
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	c.log.WithFields(logrus.Fields{
		"op":     op,
		"status": status,
	}).Warn("aggregator returned error status")

	return &types.ServiceError{Op: op, StatusCode: status, Message: message}
}
