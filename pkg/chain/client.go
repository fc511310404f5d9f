// Package chain reads wallet and token state from a Solana JSON-RPC node.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sol-swap/pkg/logging"
	"sol-swap/pkg/observability"
	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

const (
	MainnetRPC = "https://api.mainnet-beta.solana.com"
	DevnetRPC  = "https://api.devnet.solana.com"

	// DefaultSignatureLimit is how many recent signatures a wallet view shows
	DefaultSignatureLimit = 10

	lamportsDecimals = 9
)

// Client wraps the solana-go RPC client
type Client struct {
	rpc        *rpc.Client
	endpoint   string
	commitment rpc.CommitmentType
	log        *logrus.Logger
	metrics    *observability.Metrics
}

// Holding is one SPL token account with a positive balance
type Holding struct {
	Account  string `json:"account"`
	Mint     string `json:"mint"`
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"uiAmount"`
}

// SignatureInfo is one entry of an address's transaction history
type SignatureInfo struct {
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"blockTime,omitempty"`
	Status    string     `json:"status"`
	Failed    bool       `json:"failed"`
	Memo      string     `json:"memo,omitempty"`
}

// TokenSupply is the total supply of a mint
type TokenSupply struct {
	Mint     string `json:"mint"`
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"uiAmount"`
}

// SignatureStatus is the confirmation state of a submitted transaction
type SignatureStatus struct {
	Signature     string  `json:"signature"`
	Found         bool    `json:"found"`
	Slot          uint64  `json:"slot,omitempty"`
	Confirmations *uint64 `json:"confirmations,omitempty"`
	Status        string  `json:"status,omitempty"`
	Err           string  `json:"err,omitempty"`
}

// Overview bundles everything the wallet view shows
type Overview struct {
	Address    string          `json:"address"`
	Lamports   uint64          `json:"lamports"`
	SOL        string          `json:"sol"`
	Holdings   []Holding       `json:"holdings"`
	Signatures []SignatureInfo `json:"signatures"`
}

// parsedTokenAccount mirrors the jsonParsed shape of an SPL token account
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// NewClient creates an RPC client for endpoint
func NewClient(endpoint, commitment string, log *logrus.Logger, metrics *observability.Metrics) *Client {
	if endpoint == "" {
		endpoint = MainnetRPC
	}
	return &Client{
		rpc:        rpc.New(endpoint),
		endpoint:   endpoint,
		commitment: ParseCommitment(commitment),
		log:        logging.OrDiscard(log),
		metrics:    metrics,
	}
}

// RPC exposes the underlying client for transaction submission
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// Endpoint returns the node URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ParseCommitment maps a config string to a commitment level; the default is
// confirmed
func ParseCommitment(s string) rpc.CommitmentType {
	switch s {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

// ParseAddress validates a base58 public key before any call is made
func ParseAddress(address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: invalid address %q: %v", types.ErrValidation, address, err)
	}
	return pk, nil
}

// GetBalance returns the lamport balance of address
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	pk, err := ParseAddress(address)
	if err != nil {
		return 0, err
	}

	res, err := c.rpc.GetBalance(ctx, pk, c.commitment)
	if err = c.wrap("getBalance", err); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetTokenHoldings lists SPL token accounts owned by address with a
// positive balance
func (c *Client) GetTokenHoldings(ctx context.Context, address string) ([]Holding, error) {
	owner, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	programID := solana.TokenProgramID
	res, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Encoding:   solana.EncodingJSONParsed,
			Commitment: c.commitment,
		},
	)
	if err = c.wrap("getTokenAccountsByOwner", err); err != nil {
		return nil, err
	}

	holdings := make([]Holding, 0, len(res.Value))
	for _, acct := range res.Value {
		if acct == nil || acct.Account.Data == nil {
			continue
		}
		raw := acct.Account.Data.GetRawJSON()
		if raw == nil {
			continue
		}

		var parsed parsedTokenAccount
		if err := json.Unmarshal(raw, &parsed); err != nil {
			c.log.WithError(err).WithField("account", acct.Pubkey.String()).Debug("skipping unparsable token account")
			continue
		}

		info := parsed.Parsed.Info
		amount, ok := new(big.Int).SetString(info.TokenAmount.Amount, 10)
		if !ok || amount.Sign() <= 0 || info.Mint == "" {
			continue
		}

		holdings = append(holdings, Holding{
			Account:  acct.Pubkey.String(),
			Mint:     info.Mint,
			Amount:   amount.String(),
			Decimals: info.TokenAmount.Decimals,
			UIAmount: units.FromSmallestUnit(amount, info.TokenAmount.Decimals),
		})
	}
	return holdings, nil
}

// GetRecentSignatures returns up to limit signatures for address, newest
// first. A limit <= 0 uses DefaultSignatureLimit.
func (c *Client) GetRecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	pk, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSignatureLimit
	}

	res, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pk, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err = c.wrap("getSignaturesForAddress", err); err != nil {
		return nil, err
	}

	out := make([]SignatureInfo, 0, len(res))
	for _, s := range res {
		if s == nil {
			continue
		}
		info := SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Status:    string(s.ConfirmationStatus),
			Failed:    s.Err != nil,
		}
		if s.BlockTime != nil {
			t := s.BlockTime.Time()
			info.BlockTime = &t
		}
		if s.Memo != nil {
			info.Memo = *s.Memo
		}
		out = append(out, info)
	}
	return out, nil
}

// GetTokenSupply returns the total supply of mint
func (c *Client) GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error) {
	pk, err := ParseAddress(mint)
	if err != nil {
		return nil, err
	}

	res, err := c.rpc.GetTokenSupply(ctx, pk, c.commitment)
	if err = c.wrap("getTokenSupply", err); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrTokenNotFound, mint)
	}

	return &TokenSupply{
		Mint:     mint,
		Amount:   res.Value.Amount,
		Decimals: res.Value.Decimals,
		UIAmount: units.FromSmallestUnitString(res.Value.Amount, res.Value.Decimals),
	}, nil
}

// GetSignatureStatus looks up a transaction signature, searching the full
// history when the node has it
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signature: %v", types.ErrValidation, err)
	}

	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err = c.wrap("getSignatureStatuses", err); err != nil {
		return nil, err
	}

	status := &SignatureStatus{Signature: signature}
	if len(res.Value) == 0 || res.Value[0] == nil {
		return status, nil
	}

	v := res.Value[0]
	status.Found = true
	status.Slot = v.Slot
	status.Confirmations = v.Confirmations
	status.Status = string(v.ConfirmationStatus)
	if v.Err != nil {
		status.Err = fmt.Sprintf("%v", v.Err)
	}
	return status, nil
}

// Overview fetches balance, holdings and recent signatures concurrently
func (c *Client) Overview(ctx context.Context, address string, limit int) (*Overview, error) {
	if _, err := ParseAddress(address); err != nil {
		return nil, err
	}

	ov := &Overview{Address: address}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lamports, err := c.GetBalance(gctx, address)
		if err != nil {
			return err
		}
		ov.Lamports = lamports
		ov.SOL = units.FromSmallestUnit(new(big.Int).SetUint64(lamports), lamportsDecimals)
		return nil
	})
	g.Go(func() error {
		holdings, err := c.GetTokenHoldings(gctx, address)
		if err != nil {
			return err
		}
		ov.Holdings = holdings
		return nil
	})
	g.Go(func() error {
		sigs, err := c.GetRecentSignatures(gctx, address, limit)
		if err != nil {
			return err
		}
		ov.Signatures = sigs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}

// wrap classifies an RPC failure: a JSON-RPC error object becomes
// RPCError, anything else is a transport failure
func (c *Client) wrap(method string, err error) error {
	c.metrics.RecordRPC(method, err)
	if err == nil {
		return nil
	}

	var rpcErr *jrpc.RPCError
	if errors.As(err, &rpcErr) {
		c.log.WithFields(logrus.Fields{
			"method": method,
			"code":   rpcErr.Code,
		}).Debug("rpc returned error object")
		return &types.RPCError{Method: method, Code: rpcErr.Code, Message: rpcErr.Message}
	}

	c.log.WithError(err).WithField("method", method).Warn("rpc call failed")
	return &types.NetworkError{Op: method, Err: err}
}
