// Package quote keeps a swap quote in sync with user input.
//
// Every input change bumps a monotonic request id, clears the current quote
// and restarts a debounce timer. When the timer fires the engine asks the
// aggregator for a quote; a response is applied only if its id is still the
// current one, so an older request can never overwrite a newer result.
// In-flight requests are not cancelled, they are dropped on arrival.
package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/observability"
	"sol-swap/pkg/types"
	"sol-swap/pkg/units"
)

// ErrQuoteMismatch is reported when a response was priced for a different
// pair or amount than the one requested
var ErrQuoteMismatch = errors.New("quote does not match the requested pair and amount")

const (
	DefaultDebounce     = 600 * time.Millisecond
	DefaultSlippageBps  = 50
	DefaultFetchTimeout = 20 * time.Second
)

// Fetcher prices a swap
type Fetcher interface {
	GetQuote(ctx context.Context, params types.QuoteParams) (*types.SwapQuote, error)
}

// Timer is a pending debounce callback
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Engine is the debounced quote state machine. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	fetcher  Fetcher
	registry *catalog.Registry
	custom   []catalog.Token

	debounce     time.Duration
	slippageBps  int
	fetchTimeout time.Duration
	afterFunc    AfterFunc

	seq     uint64
	timer   Timer
	snap    Snapshot
	settled chan struct{}
	closed  bool

	notifyMu     sync.Mutex
	lastNotified uint64
	onChange     func(Snapshot)

	log     *logrus.Logger
	metrics *observability.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithDebounce sets the quiet period before a request is sent
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// WithSlippageBps sets the slippage tolerance sent with every request
func WithSlippageBps(bps int) Option {
	return func(e *Engine) {
		if bps > 0 {
			e.slippageBps = bps
		}
	}
}

// WithFetchTimeout bounds a single aggregator request
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithAfterFunc replaces the timer scheduler
func WithAfterFunc(f AfterFunc) Option {
	return func(e *Engine) {
		e.afterFunc = f
	}
}

// WithOnChange registers a callback for every visible state change. It runs
// outside the engine lock, never concurrently with itself, and never
// receives a snapshot older than one it already saw.
func WithOnChange(fn func(Snapshot)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine for the inputMint -> outputMint pair. Both
// mints must resolve in the registry or the custom list.
func NewEngine(fetcher Fetcher, registry *catalog.Registry, custom []catalog.Token, inputMint, outputMint string, opts ...Option) (*Engine, error) {
	e := &Engine{
		fetcher:      fetcher,
		registry:     registry,
		custom:       append([]catalog.Token{}, custom...),
		debounce:     DefaultDebounce,
		slippageBps:  DefaultSlippageBps,
		fetchTimeout: DefaultFetchTimeout,
		afterFunc:    realAfterFunc,
		settled:      make(chan struct{}),
	}
	close(e.settled)

	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrDiscard(e.log)

	in, ok := registry.Resolve(inputMint, e.custom)
	if !ok {
		return nil, fmt.Errorf("%w: input %s", types.ErrTokenNotFound, inputMint)
	}
	out, ok := registry.Resolve(outputMint, e.custom)
	if !ok {
		return nil, fmt.Errorf("%w: output %s", types.ErrTokenNotFound, outputMint)
	}

	e.snap = Snapshot{
		State:  StateIdle,
		Input:  Selection{Token: in},
		Output: Selection{Token: out},
	}
	return e, nil
}

// SetAmount updates the input amount text
func (e *Engine) SetAmount(text string) {
	e.update(func() {
		e.snap.AmountText = text
	}, false)
}

// SetInputToken selects the token to sell
func (e *Engine) SetInputToken(mint string) error {
	tok, err := e.resolve(mint)
	if err != nil {
		return err
	}
	e.update(func() {
		e.snap.Input = Selection{Token: tok}
	}, false)
	return nil
}

// SetOutputToken selects the token to buy
func (e *Engine) SetOutputToken(mint string) error {
	tok, err := e.resolve(mint)
	if err != nil {
		return err
	}
	e.update(func() {
		e.snap.Output = Selection{Token: tok}
	}, false)
	return nil
}

// Flip swaps the two sides. The new amount is the previous quote's output,
// or empty when there was none.
func (e *Engine) Flip() {
	e.update(func() {
		seed := ""
		if e.snap.State == StateReady && e.snap.Quote != nil {
			seed = e.snap.OutputAmountDisplay()
		}
		e.snap.Input, e.snap.Output = e.snap.Output, e.snap.Input
		e.snap.AmountText = seed
	}, false)
}

// Refresh re-requests a quote for the current input immediately
func (e *Engine) Refresh() {
	e.update(func() {}, true)
}

// Reset clears the amount and quote, typically after a successful swap
func (e *Engine) Reset() {
	e.mu.Lock()
	e.seq++
	e.stopTimerLocked()
	e.snap.RequestID = e.seq
	e.snap.AmountText = ""
	e.snap.Quote = nil
	e.snap.Err = nil
	e.setStateLocked(StateIdle)
	snap := e.snap
	e.mu.Unlock()

	e.notify(snap)
}

// CatalogChanged re-resolves both selections against a new custom list. A
// selection that no longer resolves keeps its descriptor and is flagged
// orphaned. A decimals change invalidates the quote.
func (e *Engine) CatalogChanged(custom []catalog.Token) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.custom = append([]catalog.Token{}, custom...)

	invalidate := false
	for _, sel := range []*Selection{&e.snap.Input, &e.snap.Output} {
		tok, ok := e.registry.Resolve(sel.Token.Mint, e.custom)
		if !ok {
			sel.Orphaned = true
			continue
		}
		if tok.Decimals != sel.Token.Decimals {
			invalidate = true
		}
		sel.Token = tok
		sel.Orphaned = false
	}

	if invalidate {
		e.invalidateLocked(false)
	} else {
		e.snap.version++
	}
	snap := e.snap
	e.mu.Unlock()

	e.notify(snap)
}

// AcceptedQuote returns the quote a swap may be built from
func (e *Engine) AcceptedQuote() (*types.SwapQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap.State != StateReady || e.snap.Quote == nil {
		return nil, types.ErrNoQuote
	}
	return e.snap.Quote, nil
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// WaitSettled blocks until the engine is neither debouncing nor fetching
func (e *Engine) WaitSettled(ctx context.Context) (Snapshot, error) {
	for {
		e.mu.Lock()
		if e.snap.State.Settled() {
			snap := e.snap
			e.mu.Unlock()
			return snap, nil
		}
		ch := e.settled
		e.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return e.Snapshot(), ctx.Err()
		}
	}
}

// Close stops the pending timer; responses still in flight are dropped
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.seq++
	e.stopTimerLocked()
	if !e.snap.State.Settled() {
		e.setStateLocked(StateIdle)
	}
}

func (e *Engine) resolve(mint string) (catalog.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tok, ok := e.registry.Resolve(mint, e.custom)
	if !ok {
		return catalog.Token{}, fmt.Errorf("%w: %s", types.ErrTokenNotFound, mint)
	}
	return tok, nil
}

// update applies an input change and reschedules
func (e *Engine) update(apply func(), immediate bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	apply()
	fetch := e.invalidateLocked(immediate)
	snap := e.snap
	e.mu.Unlock()

	e.notify(snap)
	if fetch != nil {
		go fetch()
	}
}

// invalidateLocked starts a new request generation. With immediate set it
// returns the fetch to run instead of arming the debounce timer.
func (e *Engine) invalidateLocked(immediate bool) func() {
	e.seq++
	id := e.seq
	e.stopTimerLocked()

	e.snap.RequestID = id
	e.snap.Quote = nil
	e.snap.Err = nil

	amount := units.ToSmallestUnit(e.snap.AmountText, e.snap.Input.Token.Decimals)
	if amount.Sign() <= 0 {
		e.setStateLocked(StateIdle)
		return nil
	}

	if e.snap.Input.Token.Mint == e.snap.Output.Token.Mint {
		e.snap.Err = types.ErrSameToken
		e.setStateLocked(StateFailed)
		return nil
	}

	params := types.QuoteParams{
		InputMint:   e.snap.Input.Token.Mint,
		OutputMint:  e.snap.Output.Token.Mint,
		Amount:      amount.String(),
		SlippageBps: e.slippageBps,
	}

	if immediate {
		e.setStateLocked(StateFetching)
		return func() { e.fetch(id, params) }
	}

	e.setStateLocked(StateDebouncing)
	e.timer = e.afterFunc(e.debounce, func() { e.fire(id, params) })
	return nil
}

// fire runs on the timer goroutine
func (e *Engine) fire(id uint64, params types.QuoteParams) {
	e.mu.Lock()
	if id != e.seq {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.setStateLocked(StateFetching)
	snap := e.snap
	e.mu.Unlock()

	e.notify(snap)
	e.fetch(id, params)
}

func (e *Engine) fetch(id uint64, params types.QuoteParams) {
	e.metrics.RecordQuoteRequest()

	ctx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
	q, err := e.fetcher.GetQuote(ctx, params)
	cancel()
	if err == nil && (q == nil || !q.Matches(params.InputMint, params.OutputMint, params.Amount)) {
		err = ErrQuoteMismatch
	}

	e.mu.Lock()
	if id != e.seq {
		e.mu.Unlock()
		e.metrics.RecordStaleDrop()
		e.log.WithField("request_id", id).Debug("dropping stale quote response")
		return
	}

	if err != nil {
		e.snap.Err = err
		e.setStateLocked(StateFailed)
		e.metrics.RecordQuoteFailure(failureReason(err))
	} else {
		e.snap.Quote = q
		e.setStateLocked(StateReady)
	}
	snap := e.snap
	e.mu.Unlock()

	e.notify(snap)
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// setStateLocked records a transition and keeps the settled channel in step
func (e *Engine) setStateLocked(s State) {
	wasSettled := e.snap.State.Settled()
	e.snap.State = s
	e.snap.version++

	switch {
	case wasSettled && !s.Settled():
		e.settled = make(chan struct{})
	case !wasSettled && s.Settled():
		close(e.settled)
	}
}

func (e *Engine) notify(snap Snapshot) {
	if e.onChange == nil {
		return
	}

	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	if snap.version <= e.lastNotified {
		return
	}
	e.lastNotified = snap.version
	e.onChange(snap)
}

func failureReason(err error) string {
	var netErr *types.NetworkError
	var svcErr *types.ServiceError
	switch {
	case errors.Is(err, types.ErrNoRoute):
		return "no_route"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &svcErr):
		return "service"
	case errors.Is(err, ErrQuoteMismatch):
		return "mismatch"
	default:
		return "other"
	}
}
