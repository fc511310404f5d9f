// Package store persists user state: favorites, search history, the network
// toggle, custom tokens and the swap journal.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sol-swap/pkg/catalog"
	"sol-swap/pkg/logging"
)

const (
	DefaultFileName = ".sol-swap.json"
)

// Store handles persistence of user state. Loading happens in the
// background; reads and writes block until it is done.
type Store struct {
	filePath string

	mu    sync.RWMutex
	state State

	// writeMu serializes file writes so they land in mutation order
	writeMu sync.Mutex

	hydrated chan struct{}
	loadErr  error

	subsMu      sync.Mutex
	subscribers []func([]catalog.Token)

	log *logrus.Logger
}

// DefaultPath returns ~/.sol-swap.json
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Open starts hydrating the store from filePath. An empty path uses
// DefaultPath. A missing file is an empty state.
func Open(filePath string, log *logrus.Logger) (*Store, error) {
	if filePath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		filePath = p
	}

	s := &Store{
		filePath: filePath,
		hydrated: make(chan struct{}),
		log:      logging.OrDiscard(log),
	}

	go s.hydrate()
	return s, nil
}

func (s *Store) hydrate() {
	defer close(s.hydrated)

	err := s.load()
	if err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).WithField("path", s.filePath).Warn("failed to load state")
		s.loadErr = err
	}
}

// load reads state from the storage file
func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	for i := range state.CustomTokens {
		state.CustomTokens[i].Kind = catalog.KindCustom
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// Hydrated is closed once the initial load has finished
func (s *Store) Hydrated() <-chan struct{} {
	return s.hydrated
}

// WaitHydrated blocks until the initial load finished and reports its error
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydrated:
		return s.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ready waits for hydration. A failed load refuses writes so a corrupt
// file is never overwritten.
func (s *Store) ready() error {
	<-s.hydrated
	if s.loadErr != nil {
		return fmt.Errorf("state unavailable: %w", s.loadErr)
	}
	return nil
}

// mutate applies fn under the lock and persists the result
func (s *Store) mutate(fn func(*State) bool) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return nil
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return s.save(data)
}

// save writes data to the storage file
func (s *Store) save(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Snapshot returns a copy of the whole state
func (s *Store) Snapshot() State {
	<-s.hydrated
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// GetFilePath returns the storage file path
func (s *Store) GetFilePath() string {
	return s.filePath
}

// Favorites

// AddFavorite prepends address unless it is already a favorite
func (s *Store) AddFavorite(address string) error {
	return s.mutate(func(st *State) bool {
		if contains(st.Favorites, address) {
			return false
		}
		st.Favorites = append([]string{address}, st.Favorites...)
		return true
	})
}

// RemoveFavorite drops address from favorites
func (s *Store) RemoveFavorite(address string) error {
	return s.mutate(func(st *State) bool {
		before := len(st.Favorites)
		st.Favorites = without(st.Favorites, address)
		return len(st.Favorites) != before
	})
}

// IsFavorite reports whether address is a favorite
func (s *Store) IsFavorite(address string) bool {
	<-s.hydrated
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contains(s.state.Favorites, address)
}

// Search history

// AddToHistory moves address to the front of the history, capped at
// MaxHistory entries
func (s *Store) AddToHistory(address string) error {
	return s.mutate(func(st *State) bool {
		next := append([]string{address}, without(st.SearchHistory, address)...)
		if len(next) > MaxHistory {
			next = next[:MaxHistory]
		}
		st.SearchHistory = next
		return true
	})
}

// ClearHistory empties the search history
func (s *Store) ClearHistory() error {
	return s.mutate(func(st *State) bool {
		st.SearchHistory = []string{}
		return true
	})
}

// Network

// IsDevnet reports whether devnet is selected
func (s *Store) IsDevnet() bool {
	<-s.hydrated
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsDevnet
}

// ToggleNetwork flips between mainnet and devnet and returns the new value
func (s *Store) ToggleNetwork() (bool, error) {
	var devnet bool
	err := s.mutate(func(st *State) bool {
		st.IsDevnet = !st.IsDevnet
		devnet = st.IsDevnet
		return true
	})
	return devnet, err
}

// Custom tokens

// CustomTokens returns the custom token list, newest first
func (s *Store) CustomTokens() []catalog.Token {
	<-s.hydrated
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Token{}, s.state.CustomTokens...)
}

// OnCustomTokensChanged registers fn to receive the new list after every
// custom token mutation
func (s *Store) OnCustomTokensChanged(fn func([]catalog.Token)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// AddCustomToken stores tok at the front, replacing any entry with the
// same mint
func (s *Store) AddCustomToken(tok catalog.Token) error {
	tok = tok.AsCustom()
	return s.mutateTokens(func(list []catalog.Token) ([]catalog.Token, bool) {
		next := make([]catalog.Token, 0, len(list)+1)
		next = append(next, tok)
		for _, t := range list {
			if t.Mint != tok.Mint {
				next = append(next, t)
			}
		}
		return next, true
	})
}

// RemoveCustomToken drops the token with mint
func (s *Store) RemoveCustomToken(mint string) error {
	return s.mutateTokens(func(list []catalog.Token) ([]catalog.Token, bool) {
		next := make([]catalog.Token, 0, len(list))
		for _, t := range list {
			if t.Mint != mint {
				next = append(next, t)
			}
		}
		return next, len(next) != len(list)
	})
}

// ReplaceCustomTokens swaps in a whole new list in one step
func (s *Store) ReplaceCustomTokens(tokens []catalog.Token) error {
	return s.mutateTokens(func([]catalog.Token) ([]catalog.Token, bool) {
		next := make([]catalog.Token, len(tokens))
		for i, t := range tokens {
			next[i] = t.AsCustom()
		}
		return next, true
	})
}

func (s *Store) mutateTokens(fn func([]catalog.Token) ([]catalog.Token, bool)) error {
	var (
		changed bool
		next    []catalog.Token
	)
	err := s.mutate(func(st *State) bool {
		next, changed = fn(st.CustomTokens)
		if changed {
			st.CustomTokens = next
		}
		return changed
	})
	if err != nil || !changed {
		return err
	}

	s.subsMu.Lock()
	subs := append([]func([]catalog.Token){}, s.subscribers...)
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(append([]catalog.Token{}, next...))
	}
	return nil
}

// Swap journal

// RecordSwap prepends rec to the journal, assigning an ID and timestamp
// when missing
func (s *Store) RecordSwap(rec SwapRecord) (SwapRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	err := s.mutate(func(st *State) bool {
		if rec.Network == "" {
			rec.Network = st.Network()
		}
		next := append([]SwapRecord{rec}, st.Swaps...)
		if len(next) > MaxSwaps {
			next = next[:MaxSwaps]
		}
		st.Swaps = next
		return true
	})
	return rec, err
}

// Swaps returns the journal, newest first
func (s *Store) Swaps() []SwapRecord {
	<-s.hydrated
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SwapRecord{}, s.state.Swaps...)
}

// GetSwap finds a journal entry by ID or ID prefix
func (s *Store) GetSwap(id string) (SwapRecord, error) {
	if id == "" {
		return SwapRecord{}, errors.New("swap id is required")
	}
	for _, rec := range s.Swaps() {
		if rec.ID == id || (len(id) >= 8 && len(rec.ID) >= len(id) && rec.ID[:len(id)] == id) {
			return rec, nil
		}
	}
	return SwapRecord{}, fmt.Errorf("swap '%s' not found", id)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
