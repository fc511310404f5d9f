// Package lookup resolves token metadata for arbitrary mint addresses through
// the Jupiter token search API.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/observability"
	"sol-swap/pkg/types"
)

const (
	DefaultSearchURL = "https://lite-api.jup.ag/ultra/v1/search"
	DefaultTimeout   = 15 * time.Second

	// MaxBatch is the most mints the search API accepts in one query
	MaxBatch = 100

	minAddressLen = 32
	maxAddressLen = 44
)

var fallbackColors = []string{
	"#9945FF", "#14F195", "#2775CA", "#F7931A",
	"#E0B354", "#26A17B", "#EF4444", "#60A5FA",
}

// mintInfo is the subset of a search record we read
type mintInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Icon     *string `json:"icon"`
	Decimals uint8   `json:"decimals"`
}

func (m mintInfo) toToken() catalog.Token {
	tok := catalog.Token{
		Mint:     m.ID,
		Symbol:   m.Symbol,
		Name:     m.Name,
		Decimals: m.Decimals,
		Color:    FallbackColor(m.ID),
		Kind:     catalog.KindCustom,
	}
	if m.Icon != nil {
		tok.LogoURI = *m.Icon
	}
	return tok
}

// Client looks up token metadata
type Client struct {
	searchURL string
	http      *http.Client
	cache     *Cache
	log       *logrus.Logger
	metrics   *observability.Metrics
}

// Option configures Client
type Option func(*Client)

// WithSearchURL overrides the search endpoint
func WithSearchURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.searchURL = u
		}
	}
}

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithCache enables the Redis metadata cache
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a lookup client
func NewClient(opts ...Option) *Client {
	c := &Client{
		searchURL: DefaultSearchURL,
		http:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrDiscard(c.log)
	return c
}

// ValidateAddress trims text and checks it has the shape of a base58
// address: 32 to 44 characters and no whitespace.
func ValidateAddress(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minAddressLen || len(trimmed) > maxAddressLen {
		return "", types.ErrInvalidAddress
	}
	if strings.ContainsAny(trimmed, " \t\r\n\v\f") {
		return "", types.ErrInvalidAddress
	}
	return trimmed, nil
}

// FallbackColor picks a stable palette color for a mint
func FallbackColor(mint string) string {
	var hash uint32
	for i := 0; i < len(mint); i++ {
		hash = hash*31 + uint32(mint[i])
	}
	return fallbackColors[hash%uint32(len(fallbackColors))]
}

// LookupOne resolves a single mint. The search API matches fuzzily on symbol
// and name, so only a record whose id equals the mint counts.
func (c *Client) LookupOne(ctx context.Context, text string) (catalog.Token, error) {
	mint, err := ValidateAddress(text)
	if err != nil {
		c.metrics.RecordLookup("invalid")
		return catalog.Token{}, err
	}

	if tok, ok := c.fromCache(ctx, mint); ok {
		c.metrics.RecordLookup("cached")
		return tok, nil
	}

	results, err := c.search(ctx, mint)
	if err != nil {
		c.metrics.RecordLookup("error")
		return catalog.Token{}, err
	}

	for _, r := range results {
		if strings.EqualFold(r.ID, mint) {
			tok := r.toToken()
			c.toCache(ctx, tok)
			c.metrics.RecordLookup("ok")
			return tok, nil
		}
	}

	c.metrics.RecordLookup("not_found")
	return catalog.Token{}, fmt.Errorf("%w: %s", types.ErrTokenNotFound, mint)
}

// LookupBatch resolves up to MaxBatch mints in one round trip. Unknown mints
// are skipped and any failure yields an empty result.
func (c *Client) LookupBatch(ctx context.Context, mints []string) []catalog.Token {
	if len(mints) == 0 {
		return nil
	}
	if len(mints) > MaxBatch {
		c.log.WithField("requested", len(mints)).Debug("batch lookup truncated")
		mints = mints[:MaxBatch]
	}

	wanted := make(map[string]struct{}, len(mints))
	for _, m := range mints {
		wanted[strings.ToLower(m)] = struct{}{}
	}

	results, err := c.search(ctx, strings.Join(mints, ","))
	if err != nil {
		c.log.WithError(err).Debug("batch lookup failed")
		c.metrics.RecordLookup("batch_error")
		return nil
	}

	out := make([]catalog.Token, 0, len(results))
	for _, r := range results {
		if _, ok := wanted[strings.ToLower(r.ID)]; !ok {
			continue
		}
		tok := r.toToken()
		c.toCache(ctx, tok)
		out = append(out, tok)
	}
	c.metrics.RecordLookup("batch_ok")
	return out
}

func (c *Client) search(ctx context.Context, query string) ([]mintInfo, error) {
	endpoint := c.searchURL + "?query=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("token search request failed")
		return nil, &types.NetworkError{Op: "token search", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.NetworkError{Op: "token search", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithField("status", resp.StatusCode).Warn("token search returned error status")
		return nil, &types.ServiceError{
			Op:         "token search",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var results []mintInfo
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return results, nil
}

func (c *Client) fromCache(ctx context.Context, mint string) (catalog.Token, bool) {
	tok, err := c.cache.Get(ctx, mint)
	switch {
	case err == nil:
		c.metrics.RecordCache("hit")
		return tok.AsCustom(), true
	case errors.Is(err, ErrCacheDisabled):
	case errors.Is(err, errCacheMiss):
		c.metrics.RecordCache("miss")
	default:
		c.metrics.RecordCache("error")
		c.log.WithError(err).Debug("token cache read failed")
	}
	return catalog.Token{}, false
}

func (c *Client) toCache(ctx context.Context, tok catalog.Token) {
	if err := c.cache.Set(ctx, tok); err != nil && !errors.Is(err, ErrCacheDisabled) {
		c.metrics.RecordCache("error")
		c.log.WithError(err).Debug("token cache write failed")
	}
}
