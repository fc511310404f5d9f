// Package catalog merges the built-in token registry with the user's custom
// tokens. It owns no mutable state: custom tokens are always passed in by the
// caller, and presets never change after construction.
package catalog

import "strings"

// Registry is the immutable preset token list
type Registry struct {
	ordered []Token
	byMint  map[string]Token
}

// NewRegistry builds a registry from presets. Later duplicates of a mint are
// ignored.
func NewRegistry(presets []Token) *Registry {
	r := &Registry{
		ordered: make([]Token, 0, len(presets)),
		byMint:  make(map[string]Token, len(presets)),
	}
	for _, t := range presets {
		if t.Mint == "" {
			continue
		}
		if _, exists := r.byMint[t.Mint]; exists {
			continue
		}
		t.Kind = KindPreset
		r.ordered = append(r.ordered, t)
		r.byMint[t.Mint] = t
	}
	return r
}

// Default returns a registry with DefaultPresets
func Default() *Registry {
	return NewRegistry(DefaultPresets())
}

// Presets returns a copy of the preset list in display order
func (r *Registry) Presets() []Token {
	out := make([]Token, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// IsPreset reports whether mint belongs to the registry
func (r *Registry) IsPreset(mint string) bool {
	_, ok := r.byMint[mint]
	return ok
}

// Resolve finds the descriptor for mint. Presets always win over custom
// tokens with the same mint.
func (r *Registry) Resolve(mint string, custom []Token) (Token, bool) {
	if t, ok := r.byMint[mint]; ok {
		return t, true
	}
	for _, t := range custom {
		if t.Mint == mint {
			return t.AsCustom(), true
		}
	}
	return Token{}, false
}

// Merge returns the list shown in token pickers: custom tokens first in the
// order supplied (newest first), then presets. Custom entries that shadow a
// preset or repeat an earlier mint are dropped.
func (r *Registry) Merge(custom []Token) []Token {
	out := make([]Token, 0, len(custom)+len(r.ordered))
	seen := make(map[string]struct{}, len(custom))

	for _, t := range custom {
		if t.Mint == "" || r.IsPreset(t.Mint) {
			continue
		}
		if _, dup := seen[t.Mint]; dup {
			continue
		}
		seen[t.Mint] = struct{}{}
		out = append(out, t.AsCustom())
	}

	return append(out, r.ordered...)
}

// FindBySymbol resolves a symbol typed by the user. The first match in
// merged order wins; a mint address is accepted as well.
func (r *Registry) FindBySymbol(symbol string, custom []Token) (Token, bool) {
	symbol = strings.TrimSpace(symbol)
	if t, ok := r.Resolve(symbol, custom); ok {
		return t, true
	}
	for _, t := range r.Merge(custom) {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// Filter keeps tokens whose symbol, name or mint contains query, ignoring
// case. An empty query matches everything.
func Filter(query string, list []Token) []Token {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := make([]Token, len(list))
		copy(out, list)
		return out
	}

	out := make([]Token, 0, len(list))
	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Symbol), q) ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Mint), q) {
			out = append(out, t)
		}
	}
	return out
}
