package book

import (
	"github.com/mvance/pairbook/internal/domain"
)

// Level holds the per-price aggregates and the FIFO queue of resting
// orders. A Level exists only while at least one order rests at its price;
// the Side destroys it (and the tree node) when the last order leaves.
type Level struct {
	Price    uint64
	TotalQty uint64 // sum of remaining quantities
	Orders   *Queue
}

// Side is one half of an order book: a price tree plus the levels at each
// active price. For bids the best price is the highest, for asks the lowest.
type Side struct {
	bid    bool
	tree   *PriceTree
	levels map[uint64]*Level
}

// NewSide creates an empty side. bid selects best-price orientation.
func NewSide(bid bool) *Side {
	return &Side{
		bid:    bid,
		tree:   NewPriceTree(),
		levels: make(map[uint64]*Level),
	}
}

// Empty reports whether the side has no resting orders.
func (s *Side) Empty() bool {
	return s.tree.Len() == 0
}

// Depth returns the number of active price levels.
func (s *Side) Depth() int {
	return s.tree.Len()
}

// Best returns the best price on this side, or 0 when empty.
func (s *Side) Best() uint64 {
	if s.bid {
		return s.tree.Last()
	}
	return s.tree.First()
}

// Add rests an order on this side, creating the price level and tree node
// on first use.
func (s *Side) Add(o *domain.Order) error {
	lvl, ok := s.levels[o.Price]
	if !ok {
		if err := s.tree.Insert(o.Price); err != nil {
			return err
		}
		lvl = &Level{Price: o.Price, Orders: NewQueue()}
		s.levels[o.Price] = lvl
	}
	lvl.Orders.Push(o)
	lvl.TotalQty += o.RemainingQty
	return nil
}

// Remove unlinks an order from its level wherever it sits in the queue,
// collapsing the level when it becomes empty.
func (s *Side) Remove(o *domain.Order) error {
	lvl, ok := s.levels[o.Price]
	if !ok {
		return domain.ErrPriceNotFound
	}
	if _, err := lvl.Orders.Remove(o.ID); err != nil {
		return err
	}
	lvl.TotalQty -= o.RemainingQty
	return s.collapse(lvl)
}

// Head returns the oldest order at price without removing it, or nil when
// the price has no level.
func (s *Side) Head(price uint64) *domain.Order {
	lvl, ok := s.levels[price]
	if !ok {
		return nil
	}
	return lvl.Orders.First()
}

// Fill reduces the level aggregate by qty after a fill against the level's
// head. The head keeps its queue position while partially filled.
func (s *Side) Fill(price, qty uint64) error {
	lvl, ok := s.levels[price]
	if !ok {
		return domain.ErrPriceNotFound
	}
	lvl.TotalQty -= qty
	return nil
}

// PopHead removes the fully-filled head order at price, collapsing the
// level when it was the last one.
func (s *Side) PopHead(price uint64) (*domain.Order, error) {
	lvl, ok := s.levels[price]
	if !ok {
		return nil, domain.ErrPriceNotFound
	}
	o, err := lvl.Orders.Pop()
	if err != nil {
		return nil, err
	}
	lvl.TotalQty -= o.RemainingQty
	if err := s.collapse(lvl); err != nil {
		return nil, err
	}
	return o, nil
}

// Level returns the aggregate remaining quantity and order count at price.
// An absent level reads as (0, 0).
func (s *Side) Level(price uint64) (uint64, int) {
	lvl, ok := s.levels[price]
	if !ok {
		return 0, 0
	}
	return lvl.TotalQty, lvl.Orders.Len()
}

// TopPrices returns the n best prices walking from the best toward the
// worse end, zero-padded when the side has fewer levels.
func (s *Side) TopPrices(n int) []uint64 {
	out := make([]uint64, n)
	price := s.Best()
	for i := 0; i < n && price != 0; i++ {
		out[i] = price
		var err error
		if s.bid {
			price, err = s.tree.Prev(price)
		} else {
			price, err = s.tree.Next(price)
		}
		if err != nil {
			break
		}
	}
	return out
}

func (s *Side) collapse(lvl *Level) error {
	if !lvl.Orders.Empty() {
		return nil
	}
	delete(s.levels, lvl.Price)
	return s.tree.Remove(lvl.Price)
}
