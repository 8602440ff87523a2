package domain

import (
	"fmt"
	"sync"
	"time"
)

// Pair describes a tradable two-asset market. The engine reads the pair at
// the start of every submission; everything else about pair administration
// is a thin lookup-and-forward surface.
type Pair struct {
	ID           string // "BASE/QUOTE"
	Base         string
	Quote        string
	Enabled      bool
	FeeBps       uint64 // taker fee in basis points
	FeeRecipient string
	CreatedAt    time.Time
}

// PairID builds the canonical id for a base/quote pair.
func PairID(base, quote string) string {
	return base + "/" + quote
}

// PairRegistry is a thread-safe registry of trading pairs.
type PairRegistry struct {
	mu    sync.RWMutex
	pairs map[string]*Pair
}

// NewPairRegistry creates an empty PairRegistry.
func NewPairRegistry() *PairRegistry {
	return &PairRegistry{
		pairs: make(map[string]*Pair),
	}
}

// Register adds a new pair, enabled by default. The fee rate must not
// exceed 10000 basis points.
func (r *PairRegistry) Register(base, quote string, feeBps uint64, feeRecipient string) (*Pair, error) {
	if feeBps > 10000 {
		return nil, &ValidationError{Message: fmt.Sprintf("fee_bps must be <= 10000, got %d", feeBps)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := PairID(base, quote)
	if _, ok := r.pairs[id]; ok {
		return nil, ErrPairAlreadyExists
	}
	p := &Pair{
		ID:           id,
		Base:         base,
		Quote:        quote,
		Enabled:      true,
		FeeBps:       feeBps,
		FeeRecipient: feeRecipient,
		CreatedAt:    time.Now(),
	}
	r.pairs[id] = p
	return p, nil
}

// Get returns a copy of the pair, or ErrPairNotFound.
func (r *PairRegistry) Get(id string) (Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pairs[id]
	if !ok {
		return Pair{}, ErrPairNotFound
	}
	return *p, nil
}

// SetEnabled flips the pair's enabled flag. Disabled pairs reject new
// submissions; resting orders remain cancelable.
func (r *PairRegistry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[id]
	if !ok {
		return ErrPairNotFound
	}
	p.Enabled = enabled
	return nil
}

// List returns copies of all registered pairs.
func (r *PairRegistry) List() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, *p)
	}
	return out
}
