// Package swap turns an accepted quote into a signed, broadcast transaction.
package swap

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"sol-swap/pkg/logging"
	"sol-swap/pkg/observability"
	"sol-swap/pkg/store"
	"sol-swap/pkg/types"
)

// QuoteSource is the quote engine as seen by the submitter
type QuoteSource interface {
	AcceptedQuote() (*types.SwapQuote, error)
	Reset()
}

// Builder turns a quote into an unsigned base64 transaction
type Builder interface {
	BuildSwapTransaction(ctx context.Context, quote *types.SwapQuote, userPublicKey string) (string, error)
}

// Signer signs and broadcasts a base64 transaction and returns its signature
type Signer interface {
	SignAndSubmit(ctx context.Context, base64Tx string) (string, error)
}

// Journal records submission attempts
type Journal interface {
	RecordSwap(rec store.SwapRecord) (store.SwapRecord, error)
}

// Submitter runs the build, sign and broadcast sequence
type Submitter struct {
	source  QuoteSource
	builder Builder
	signer  Signer
	journal Journal

	log     *logrus.Logger
	metrics *observability.Metrics
}

// NewSubmitter creates a submitter. journal and metrics may be nil.
func NewSubmitter(source QuoteSource, builder Builder, signer Signer, journal Journal, log *logrus.Logger, metrics *observability.Metrics) *Submitter {
	return &Submitter{
		source:  source,
		builder: builder,
		signer:  signer,
		journal: journal,
		log:     logging.OrDiscard(log),
		metrics: metrics,
	}
}

// Submit swaps the currently accepted quote for signerAddress. On success
// the quote source is reset; on failure its input is left untouched so the
// user can retry.
func (s *Submitter) Submit(ctx context.Context, signerAddress string) (*types.SwapResult, error) {
	if signerAddress == "" {
		s.metrics.RecordSubmission("not_connected")
		return nil, types.ErrNotConnected
	}

	quote, err := s.source.AcceptedQuote()
	if err != nil {
		s.metrics.RecordSubmission("no_quote")
		return nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"input_mint":  quote.InputMint,
		"output_mint": quote.OutputMint,
		"in_amount":   quote.InAmount,
	})

	tx, err := s.builder.BuildSwapTransaction(ctx, quote, signerAddress)
	if err != nil {
		logger.WithError(err).Warn("swap build failed")
		s.fail(quote, err)
		return nil, err
	}

	signature, err := s.signer.SignAndSubmit(ctx, tx)
	if err != nil {
		logger.WithError(err).Warn("swap submission failed")
		s.fail(quote, err)
		return nil, err
	}

	logger.WithField("signature", signature).Info("swap submitted")
	s.metrics.RecordSubmission("ok")
	s.record(store.SwapRecord{
		InputMint:  quote.InputMint,
		OutputMint: quote.OutputMint,
		InAmount:   quote.InAmount,
		OutAmount:  quote.OutAmount,
		Signature:  signature,
		Status:     store.SwapSubmitted,
	})
	s.source.Reset()

	return &types.SwapResult{
		Signature:  signature,
		InputMint:  quote.InputMint,
		OutputMint: quote.OutputMint,
		InAmount:   quote.InAmount,
		OutAmount:  quote.OutAmount,
	}, nil
}

func (s *Submitter) fail(quote *types.SwapQuote, err error) {
	s.metrics.RecordSubmission(outcome(err))
	s.record(store.SwapRecord{
		InputMint:  quote.InputMint,
		OutputMint: quote.OutputMint,
		InAmount:   quote.InAmount,
		OutAmount:  quote.OutAmount,
		Status:     store.SwapFailed,
		Error:      err.Error(),
	})
}

// record writes to the journal; a journal failure never fails the swap
func (s *Submitter) record(rec store.SwapRecord) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.RecordSwap(rec); err != nil {
		s.log.WithError(err).Warn("failed to record swap")
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, types.ErrSigningRejected):
		return "rejected"
	case errors.Is(err, types.ErrBuildFailed):
		return "build_failed"
	default:
		return "failed"
	}
}
