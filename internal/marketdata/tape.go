// Package marketdata keeps the per-pair trade tape: an append-only,
// sequence-ordered record of every fill the engine settles. It backs the
// last-trade-price and VWAP queries.
package marketdata

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/mvance/pairbook/internal/domain"
)

// Record is a trade with its position on the tape.
type Record struct {
	Seq   uint64
	Trade domain.Trade
}

func recordLess(a, b Record) bool {
	return a.Seq < b.Seq
}

// Tape stores trades per pair in sequence-ordered B-trees.
type Tape struct {
	mu    sync.RWMutex
	seq   uint64
	pairs map[string]*btree.BTreeG[Record]
}

// NewTape creates an empty Tape.
func NewTape() *Tape {
	return &Tape{
		pairs: make(map[string]*btree.BTreeG[Record]),
	}
}

// Append records a trade and returns it with its assigned sequence number.
func (t *Tape) Append(tr domain.Trade) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	rec := Record{Seq: t.seq, Trade: tr}
	tree, ok := t.pairs[tr.PairID]
	if !ok {
		const degree = 32
		tree = btree.NewG[Record](degree, recordLess)
		t.pairs[tr.PairID] = tree
	}
	tree.ReplaceOrInsert(rec)
	return rec
}

// Last returns the most recent trade for the pair.
func (t *Tape) Last(pairID string) (domain.Trade, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tree, ok := t.pairs[pairID]
	if !ok {
		return domain.Trade{}, false
	}
	rec, ok := tree.Max()
	if !ok {
		return domain.Trade{}, false
	}
	return rec.Trade, true
}

// Recent returns up to n trades for the pair, newest first.
func (t *Tape) Recent(pairID string, n int) []domain.Trade {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Trade, 0, n)
	tree, ok := t.pairs[pairID]
	if !ok || n <= 0 {
		return out
	}
	tree.Descend(func(rec Record) bool {
		out = append(out, rec.Trade)
		return len(out) < n
	})
	return out
}

// VWAP computes the volume-weighted average price over trades executed in
// the window ending at now, in the same fixed-point scale as order prices.
// The trade count in the window is returned alongside; ok is false when
// the window is empty.
func (t *Tape) VWAP(pairID string, window time.Duration, now time.Time) (uint64, int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tree, ok := t.pairs[pairID]
	if !ok {
		return 0, 0, false
	}

	cutoff := now.Add(-window)
	var totalQty, totalValue uint64
	count := 0
	tree.Descend(func(rec Record) bool {
		if rec.Trade.ExecutedAt.Before(cutoff) {
			return false
		}
		v, err := domain.MulDivFloor(rec.Trade.Quantity, rec.Trade.Price, domain.Scale)
		if err != nil {
			return false
		}
		totalValue += v
		totalQty += rec.Trade.Quantity
		count++
		return true
	})
	if totalQty == 0 {
		return 0, count, false
	}
	vwap, err := domain.MulDivFloor(totalValue, domain.Scale, totalQty)
	if err != nil {
		return 0, count, false
	}
	return vwap, count, true
}
