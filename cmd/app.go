package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sol-swap/config"
	"sol-swap/pkg/catalog"
	"sol-swap/pkg/chain"
	"sol-swap/pkg/client"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/lookup"
	"sol-swap/pkg/observability"
	"sol-swap/pkg/store"
	"sol-swap/pkg/types"
)

// app holds the collaborators shared by every command
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	metrics  *observability.Metrics
	store    *store.Store
	registry *catalog.Registry
	devnet   bool
	json     bool
	verbose  bool

	// custom tokens resolved this run that the store refused to save
	unsaved []catalog.Token
}

// loadApp reads configuration, opens the state file and starts the metrics
// server when --metrics-addr is set
func loadApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	devnetFlag, _ := cmd.Flags().GetBool("devnet")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.LogLevel, verbose)
	metrics := observability.NewMetrics()

	if metricsAddr != "" && metricsServer == nil {
		metricsServer = observability.NewServer(metricsAddr, metrics, log)
		metricsServer.Start()
	}

	st, err := store.Open(cfg.StatePath, log)
	if err != nil {
		return nil, err
	}
	// a corrupt state file still allows read-only commands
	if err := st.WaitHydrated(cmd.Context()); err != nil {
		log.WithError(err).Warn("state file could not be loaded, changes will not be saved")
	}

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		store:    st,
		registry: catalog.Default(),
		devnet:   devnetFlag || st.IsDevnet(),
		json:     jsonOutput,
		verbose:  verbose,
	}, nil
}

func (a *app) network() string {
	if a.devnet {
		return "devnet"
	}
	return "mainnet"
}

func (a *app) chainClient() *chain.Client {
	return chain.NewClient(a.cfg.Endpoint(a.devnet), a.cfg.Commitment, a.log, a.metrics)
}

func (a *app) jupiterClient() *client.JupiterClient {
	return client.NewJupiterClient(a.cfg.JupiterBaseURL, a.cfg.HTTPTimeout, a.log)
}

func (a *app) lookupClient() (*lookup.Client, func()) {
	cache := lookup.NewCache(lookup.CacheConfig{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
		TTL:      a.cfg.TokenCacheTTL,
	})
	c := lookup.NewClient(
		lookup.WithSearchURL(a.cfg.TokenSearchURL),
		lookup.WithCache(cache),
		lookup.WithLogger(a.log),
		lookup.WithMetrics(a.metrics),
	)
	return c, func() { _ = cache.Close() }
}

// customTokens is the saved custom list followed by unsaved lookups
func (a *app) customTokens() []catalog.Token {
	return withUnsaved(a.store.CustomTokens(), a.unsaved)
}

func (a *app) isUnsaved(mint string) bool {
	for _, tok := range a.unsaved {
		if tok.Mint == mint {
			return true
		}
	}
	return false
}

func withUnsaved(saved, unsaved []catalog.Token) []catalog.Token {
	out := append([]catalog.Token{}, saved...)
	seen := make(map[string]struct{}, len(out))
	for _, tok := range out {
		seen[tok.Mint] = struct{}{}
	}
	for _, tok := range unsaved {
		if _, dup := seen[tok.Mint]; dup {
			continue
		}
		seen[tok.Mint] = struct{}{}
		out = append(out, tok.AsCustom())
	}
	return out
}

// resolveToken accepts a symbol or a mint. Unknown mints are looked up and
// added to the custom tokens. When the store cannot save them they are
// kept for the rest of the run.
func (a *app) resolveToken(ctx context.Context, text string) (catalog.Token, error) {
	if tok, ok := a.registry.FindBySymbol(text, a.customTokens()); ok {
		return tok, nil
	}

	if _, err := lookup.ValidateAddress(text); err != nil {
		return catalog.Token{}, fmt.Errorf("%w: '%s' (try: sol-swap list-tokens)", types.ErrTokenNotFound, text)
	}

	lc, closeLookup := a.lookupClient()
	defer closeLookup()

	tok, err := withSpinner(a, " Looking up token...", func() (catalog.Token, error) {
		return lc.LookupOne(ctx, text)
	})
	if err != nil {
		return catalog.Token{}, err
	}

	if err := a.store.AddCustomToken(tok); err != nil {
		a.log.WithError(err).Warn("failed to save custom token")
		a.unsaved = append(a.unsaved, tok.AsCustom())
	}
	return tok, nil
}

// withSpinner runs fn with a spinner unless JSON output is requested
func withSpinner[T any](a *app, suffix string, fn func() (T, error)) (T, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = suffix
		s.Start()
	}
	v, err := fn()
	if !a.json {
		s.Stop()
	}
	return v, err
}
