package quote

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/observability"
	"sol-swap/pkg/types"
)

const popcat = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

// fakeClock records debounce timers so tests decide when they fire
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	d     time.Duration
	f     func()
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.done
	t.done = true
	return wasPending
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.done {
			out = append(out, t)
		}
	}
	return out
}

// fireAll runs every pending timer on the calling goroutine
func (c *fakeClock) fireAll() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// stubFetcher answers immediately
type stubFetcher struct {
	mu      sync.Mutex
	calls   []types.QuoteParams
	respond func(types.QuoteParams) (*types.SwapQuote, error)
}

func (f *stubFetcher) GetQuote(ctx context.Context, p types.QuoteParams) (*types.SwapQuote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return quoteFor(p, "210450000"), nil
	}
	return respond(p)
}

func (f *stubFetcher) recorded() []types.QuoteParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.QuoteParams{}, f.calls...)
}

// blockingFetcher holds each request until the test replies
type blockingFetcher struct {
	calls chan pendingCall
}

type pendingCall struct {
	params types.QuoteParams
	reply  chan *types.SwapQuote
}

func (f *blockingFetcher) GetQuote(ctx context.Context, p types.QuoteParams) (*types.SwapQuote, error) {
	c := pendingCall{params: p, reply: make(chan *types.SwapQuote, 1)}
	f.calls <- c
	return <-c.reply, nil
}

func quoteFor(p types.QuoteParams, outAmount string) *types.SwapQuote {
	return &types.SwapQuote{
		InputMint:            p.InputMint,
		OutputMint:           p.OutputMint,
		InAmount:             p.Amount,
		OutAmount:            outAmount,
		OtherAmountThreshold: "209397750",
		SlippageBps:          p.SlippageBps,
		PriceImpactPct:       "0.0012",
		RoutePlan:            []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`{}`)},
	}
}

func newTestEngine(t *testing.T, fetcher Fetcher, clock *fakeClock, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithAfterFunc(clock.AfterFunc)}, opts...)
	e, err := NewEngine(fetcher, catalog.Default(), nil, catalog.MintSOL, catalog.MintUSDC, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestDebounceThenReady(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1.5")
	snap := e.Snapshot()
	assert.Equal(t, StateDebouncing, snap.State)
	assert.Empty(t, fetcher.recorded())
	require.Len(t, clock.pending(), 1)
	assert.Equal(t, DefaultDebounce, clock.pending()[0].d)

	clock.fireAll()

	calls := fetcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, types.QuoteParams{
		InputMint:   catalog.MintSOL,
		OutputMint:  catalog.MintUSDC,
		Amount:      "1500000000",
		SlippageBps: DefaultSlippageBps,
	}, calls[0])

	snap = e.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.NoError(t, snap.Err)
	assert.Equal(t, "210.45", snap.OutputAmountDisplay())
	assert.Equal(t, "1.5", snap.InputAmountDisplay())
	assert.Equal(t, "140.3", snap.ExchangeRate())
	assert.Equal(t, "0.12", snap.PriceImpactPercent())
	assert.Equal(t, "209.39775", snap.MinimumReceivedDisplay())
	assert.Equal(t, 2, snap.RouteHops())

	q, err := e.AcceptedQuote()
	require.NoError(t, err)
	assert.Equal(t, "1500000000", q.InAmount)
}

func TestRapidTypingSendsOneRequest(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1")
	e.SetAmount("1.")
	e.SetAmount("1.5")
	assert.Len(t, clock.pending(), 1, "timers are replaced, never stacked")

	clock.fireAll()
	calls := fetcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "1500000000", calls[0].Amount)
}

func TestNonPositiveAmountGoesIdle(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("2")
	clock.fireAll()
	require.Equal(t, StateReady, e.Snapshot().State)

	for _, text := range []string{"0", "-1", "abc", "", "0.0000000001"} {
		e.SetAmount(text)
		snap := e.Snapshot()
		assert.Equal(t, StateIdle, snap.State, "amount %q", text)
		assert.Nil(t, snap.Quote)
		assert.NoError(t, snap.Err)
		assert.Empty(t, clock.pending())
	}
	assert.Len(t, fetcher.recorded(), 1)

	_, err := e.AcceptedQuote()
	assert.ErrorIs(t, err, types.ErrNoQuote)
}

func TestOutputChangeMidDebounceNeverRequestsOldPair(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1")
	stale := clock.pending()[0]
	require.NoError(t, e.SetOutputToken(catalog.MintBONK))

	clock.fireAll()
	// a stopped timer that fires anyway must not send anything
	stale.f()

	calls := fetcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, catalog.MintBONK, calls[0].OutputMint)
	assert.Equal(t, catalog.MintBONK, e.Snapshot().Quote.OutputMint)
}

func TestLateOlderResponseIsDropped(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &blockingFetcher{calls: make(chan pendingCall)}
	metrics := observability.NewMetrics()
	e := newTestEngine(t, fetcher, clock, WithMetrics(metrics))

	e.SetAmount("1")
	done1 := make(chan struct{})
	go func() {
		clock.fireAll()
		close(done1)
	}()
	r1 := <-fetcher.calls
	assert.Equal(t, StateFetching, e.Snapshot().State)

	e.SetAmount("2")
	assert.Equal(t, StateDebouncing, e.Snapshot().State)
	done2 := make(chan struct{})
	go func() {
		clock.fireAll()
		close(done2)
	}()
	r2 := <-fetcher.calls
	assert.Equal(t, "2000000000", r2.params.Amount)

	r2.reply <- quoteFor(r2.params, "280000000")
	<-done2
	require.Equal(t, StateReady, e.Snapshot().State)

	r1.reply <- quoteFor(r1.params, "140000000")
	<-done1

	snap := e.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "2000000000", snap.Quote.InAmount)
	assert.Equal(t, "280", snap.OutputAmountDisplay())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QuoteStaleDrops))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.QuoteRequests))
}

func TestFailuresStayDistinguishable(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	metrics := observability.NewMetrics()
	e := newTestEngine(t, fetcher, clock, WithMetrics(metrics))

	fetcher.respond = func(types.QuoteParams) (*types.SwapQuote, error) { return nil, types.ErrNoRoute }
	e.SetAmount("1")
	clock.fireAll()

	snap := e.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.ErrorIs(t, snap.Err, types.ErrNoRoute)
	_, err := e.AcceptedQuote()
	assert.ErrorIs(t, err, types.ErrNoQuote)

	fetcher.mu.Lock()
	fetcher.respond = func(types.QuoteParams) (*types.SwapQuote, error) {
		return nil, &types.NetworkError{Op: "quote", Err: context.DeadlineExceeded}
	}
	fetcher.mu.Unlock()
	e.Refresh()
	snap, err = e.WaitSettled(context.Background())
	require.NoError(t, err)

	var netErr *types.NetworkError
	assert.ErrorAs(t, snap.Err, &netErr)
	assert.NotErrorIs(t, snap.Err, types.ErrNoRoute)
	assert.NotEqual(t, types.UserMessage(types.ErrNoRoute), types.UserMessage(snap.Err))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QuoteFailures.WithLabelValues("no_route")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QuoteFailures.WithLabelValues("network")))
}

func TestSameTokenFailsWithoutRequest(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1")
	require.NoError(t, e.SetOutputToken(catalog.MintSOL))

	snap := e.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.ErrorIs(t, snap.Err, types.ErrSameToken)
	assert.ErrorIs(t, snap.Err, types.ErrValidation)
	assert.Empty(t, clock.pending())
	assert.Empty(t, fetcher.recorded())
}

func TestFlip(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1.5")
	clock.fireAll()
	require.Equal(t, StateReady, e.Snapshot().State)

	e.Flip()
	snap := e.Snapshot()
	assert.Equal(t, catalog.MintUSDC, snap.Input.Token.Mint)
	assert.Equal(t, catalog.MintSOL, snap.Output.Token.Mint)
	assert.Equal(t, "210.45", snap.AmountText)
	assert.Equal(t, StateDebouncing, snap.State)
	assert.Nil(t, snap.Quote)

	clock.fireAll()
	calls := fetcher.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, catalog.MintUSDC, calls[1].InputMint)
	assert.Equal(t, "210450000", calls[1].Amount)
}

func TestFlipWithoutQuoteGoesIdle(t *testing.T) {
	clock := &fakeClock{}
	e := newTestEngine(t, &stubFetcher{}, clock)

	e.SetAmount("3")
	e.Flip()

	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.AmountText)
	assert.Equal(t, catalog.MintUSDC, snap.Input.Token.Mint)
	assert.Empty(t, clock.pending())
}

func TestRefreshSkipsDebounce(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1")
	before := e.Snapshot().RequestID
	e.Refresh()
	assert.Empty(t, clock.pending())

	snap, err := e.WaitSettled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, snap.State)
	assert.Greater(t, snap.RequestID, before)
	assert.Len(t, fetcher.recorded(), 1)
}

func TestReset(t *testing.T) {
	clock := &fakeClock{}
	e := newTestEngine(t, &stubFetcher{}, clock)

	e.SetAmount("1")
	clock.fireAll()
	e.Reset()

	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.AmountText)
	assert.Nil(t, snap.Quote)
	assert.Equal(t, catalog.MintSOL, snap.Input.Token.Mint)
}

func TestCatalogChangedOrphansRemovedToken(t *testing.T) {
	clock := &fakeClock{}
	custom := []catalog.Token{{Mint: popcat, Symbol: "POPCAT", Decimals: 9}}
	e, err := NewEngine(&stubFetcher{}, catalog.Default(), custom, catalog.MintSOL, popcat, WithAfterFunc(clock.AfterFunc))
	require.NoError(t, err)
	defer e.Close()

	e.SetAmount("1")
	clock.fireAll()
	require.Equal(t, StateReady, e.Snapshot().State)

	e.CatalogChanged(nil)
	snap := e.Snapshot()
	assert.True(t, snap.Output.Orphaned)
	assert.Equal(t, "POPCAT", snap.Output.Token.Symbol)
	assert.False(t, snap.Input.Orphaned)
	assert.Equal(t, StateReady, snap.State)

	e.CatalogChanged(custom)
	assert.False(t, e.Snapshot().Output.Orphaned)
}

func TestCatalogChangedDecimalsInvalidates(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	custom := []catalog.Token{{Mint: popcat, Symbol: "POPCAT", Decimals: 9}}
	e, err := NewEngine(fetcher, catalog.Default(), custom, popcat, catalog.MintUSDC, WithAfterFunc(clock.AfterFunc))
	require.NoError(t, err)
	defer e.Close()

	e.SetAmount("1")
	clock.fireAll()
	require.Equal(t, StateReady, e.Snapshot().State)

	custom[0].Decimals = 6
	e.CatalogChanged(custom)
	snap := e.Snapshot()
	assert.Equal(t, StateDebouncing, snap.State)
	assert.Nil(t, snap.Quote)

	clock.fireAll()
	calls := fetcher.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "1000000000", calls[0].Amount)
	assert.Equal(t, "1000000", calls[1].Amount)
}

func TestUnknownToken(t *testing.T) {
	e := newTestEngine(t, &stubFetcher{}, &fakeClock{})
	assert.ErrorIs(t, e.SetInputToken("missing"), types.ErrTokenNotFound)

	_, err := NewEngine(&stubFetcher{}, catalog.Default(), nil, "missing", catalog.MintSOL)
	assert.ErrorIs(t, err, types.ErrTokenNotFound)
}

func TestWaitSettledHonorsContext(t *testing.T) {
	clock := &fakeClock{}
	e := newTestEngine(t, &stubFetcher{}, clock)

	e.SetAmount("1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	snap, err := e.WaitSettled(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateDebouncing, snap.State)
}

func TestOnChangeSequence(t *testing.T) {
	clock := &fakeClock{}
	var (
		mu     sync.Mutex
		states []State
	)
	e := newTestEngine(t, &stubFetcher{}, clock, WithOnChange(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	}))

	e.SetAmount("1")
	clock.fireAll()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateDebouncing, StateFetching, StateReady}, states)
}

func TestRealTimer(t *testing.T) {
	fetcher := &stubFetcher{}
	e, err := NewEngine(fetcher, catalog.Default(), nil, catalog.MintSOL, catalog.MintUSDC, WithDebounce(5*time.Millisecond))
	require.NoError(t, err)
	defer e.Close()

	e.SetAmount("0.25")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snap, err := e.WaitSettled(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "250000000", fetcher.recorded()[0].Amount)
}

func TestCloseStopsPendingWork(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("1")
	e.Close()
	assert.Empty(t, clock.pending())
	assert.Equal(t, StateIdle, e.Snapshot().State)

	e.SetAmount("5")
	assert.Empty(t, clock.pending())
	assert.Empty(t, fetcher.recorded())
}

func TestSmallestUnitsSentAsIntegers(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	e := newTestEngine(t, fetcher, clock)

	e.SetAmount("18446744073.709551615")
	clock.fireAll()

	n, ok := new(big.Int).SetString(fetcher.recorded()[0].Amount, 10)
	require.True(t, ok)
	assert.Equal(t, "18446744073709551615", n.String())
}

func TestMismatchedQuoteIsRejected(t *testing.T) {
	clock := &fakeClock{}
	fetcher := &stubFetcher{}
	metrics := observability.NewMetrics()
	e := newTestEngine(t, fetcher, clock, WithMetrics(metrics))

	fetcher.respond = func(p types.QuoteParams) (*types.SwapQuote, error) {
		q := quoteFor(p, "210450000")
		q.InAmount = "1"
		return q, nil
	}
	e.SetAmount("1")
	clock.fireAll()

	snap, err := e.WaitSettled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.ErrorIs(t, snap.Err, ErrQuoteMismatch)
	assert.Nil(t, snap.Quote)

	_, err = e.AcceptedQuote()
	assert.ErrorIs(t, err, types.ErrNoQuote)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QuoteFailures.WithLabelValues("mismatch")))
}
