package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swap/config"
	"sol-swap/pkg/catalog"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/store"
)

const popcat = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

// newTestApp builds an app whose state file is corrupt, so every write fails
func newTestApp(t *testing.T, searchURL string) *app {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	st, err := store.Open(path, nil)
	require.NoError(t, err)
	require.Error(t, st.WaitHydrated(context.Background()))

	return &app{
		cfg: &config.Config{
			TokenSearchURL: searchURL,
			HTTPTimeout:    time.Second,
			SlippageBps:    50,
			QuoteDebounce:  time.Millisecond,
		},
		log:      logging.Discard(),
		store:    st,
		registry: catalog.Default(),
		json:     true,
	}
}

func TestResolveToken_UnsavedLookupReachesEngine(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"id":%q,"name":"Popcat","symbol":"POPCAT","icon":null,"decimals":9}]`, popcat)
	}))
	t.Cleanup(srv.Close)

	a := newTestApp(t, srv.URL)
	ctx := context.Background()

	tok, err := a.resolveToken(ctx, popcat)
	require.NoError(t, err)
	assert.Equal(t, popcat, tok.Mint)
	assert.Empty(t, a.store.CustomTokens())
	assert.True(t, a.isUnsaved(popcat))

	engine, err := newEngine(a, catalog.MintSOL, tok.Mint)
	require.NoError(t, err)
	defer engine.Close()

	snap := engine.Snapshot()
	assert.Equal(t, popcat, snap.Output.Token.Mint)
	assert.Equal(t, catalog.KindCustom, snap.Output.Token.Kind)

	// the symbol now resolves from the run's list without a second lookup
	again, err := a.resolveToken(ctx, "popcat")
	require.NoError(t, err)
	assert.Equal(t, popcat, again.Mint)
	assert.EqualValues(t, 1, calls.Load())
}

func TestWithUnsaved(t *testing.T) {
	saved := []catalog.Token{{Mint: "A", Symbol: "AAA", Kind: catalog.KindCustom}}
	unsaved := []catalog.Token{{Mint: "A", Symbol: "OLD"}, {Mint: "B", Symbol: "BBB"}, {Mint: "B", Symbol: "DUP"}}

	got := withUnsaved(saved, unsaved)
	require.Len(t, got, 2)
	assert.Equal(t, "AAA", got[0].Symbol)
	assert.Equal(t, "BBB", got[1].Symbol)
	assert.Equal(t, catalog.KindCustom, got[1].Kind)
	assert.Len(t, saved, 1)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short ascii", "Solana", 24, "Solana"},
		{"long ascii", "abcdefghij", 8, "abcde..."},
		{"multibyte kept whole", "ドージコイン", 6, "ドージコイン"},
		{"multibyte cut on rune boundary", "ドージコインウィズハット", 8, "ドージコイ..."},
		{"emoji", "🐶🐶🐶🐶🐶🐶", 5, "🐶🐶..."},
		{"tiny width", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), tt.n)
		})
	}
}

func TestNetworkInfo(t *testing.T) {
	a := newTestApp(t, "")
	a.cfg.RPCURL = "https://rpc.example.com"
	a.cfg.DevnetRPCURL = "https://devnet.example.com"

	info := networkInfo(a)
	assert.Equal(t, "mainnet", info["network"])
	assert.Equal(t, "https://rpc.example.com", info["endpoint"])
	assert.Equal(t, a.store.GetFilePath(), info["state_path"])
	assert.Equal(t, "state.json", filepath.Base(info["state_path"]))

	a.devnet = true
	info = networkInfo(a)
	assert.Equal(t, "devnet", info["network"])
	assert.Equal(t, "https://devnet.example.com", info["endpoint"])
}
