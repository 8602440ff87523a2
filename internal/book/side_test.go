package book

import (
	"testing"

	"github.com/mvance/pairbook/internal/domain"
)

func sideOrder(trader string, side domain.Side, price, qty, nonce uint64) *domain.Order {
	return &domain.Order{
		ID:           domain.NewOrderID(trader, side, price, nonce),
		Trader:       trader,
		Side:         side,
		Price:        price,
		OriginalQty:  qty,
		RemainingQty: qty,
		Status:       domain.StatusActive,
	}
}

func TestSide_BestOrientation(t *testing.T) {
	bids := NewSide(true)
	asks := NewSide(false)
	for _, price := range []uint64{2 * domain.Scale, 3 * domain.Scale, domain.Scale} {
		if err := bids.Add(sideOrder("a", domain.SideBid, price, 5, price)); err != nil {
			t.Fatalf("add bid: %v", err)
		}
		if err := asks.Add(sideOrder("a", domain.SideAsk, price, 5, price)); err != nil {
			t.Fatalf("add ask: %v", err)
		}
	}
	if bids.Best() != 3*domain.Scale {
		t.Errorf("best bid = %d, want highest", bids.Best())
	}
	if asks.Best() != domain.Scale {
		t.Errorf("best ask = %d, want lowest", asks.Best())
	}
}

func TestSide_AggregatesAndCollapse(t *testing.T) {
	s := NewSide(false)
	o1 := sideOrder("a", domain.SideAsk, 2*domain.Scale, 5, 1)
	o2 := sideOrder("b", domain.SideAsk, 2*domain.Scale, 7, 2)
	if err := s.Add(o1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(o2); err != nil {
		t.Fatalf("add: %v", err)
	}

	qty, count := s.Level(2 * domain.Scale)
	if qty != 12 || count != 2 {
		t.Errorf("level = (%d, %d), want (12, 2)", qty, count)
	}

	if err := s.Remove(o1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	qty, count = s.Level(2 * domain.Scale)
	if qty != 7 || count != 1 {
		t.Errorf("level = (%d, %d), want (7, 1)", qty, count)
	}

	if err := s.Remove(o2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !s.Empty() {
		t.Error("side should be empty after removing both orders")
	}
	qty, count = s.Level(2 * domain.Scale)
	if qty != 0 || count != 0 {
		t.Errorf("collapsed level should read (0, 0), got (%d, %d)", qty, count)
	}
}

func TestSide_FillAndPopHead(t *testing.T) {
	s := NewSide(false)
	o := sideOrder("a", domain.SideAsk, 2*domain.Scale, 5, 1)
	if err := s.Add(o); err != nil {
		t.Fatalf("add: %v", err)
	}

	o.RemainingQty -= 2
	if err := s.Fill(2*domain.Scale, 2); err != nil {
		t.Fatalf("fill: %v", err)
	}
	qty, _ := s.Level(2 * domain.Scale)
	if qty != 3 {
		t.Errorf("level qty = %d, want 3", qty)
	}
	if s.Head(2*domain.Scale) != o {
		t.Error("partially filled head should keep its position")
	}

	o.RemainingQty = 0
	popped, err := s.PopHead(2 * domain.Scale)
	if err != nil {
		t.Fatalf("pop head: %v", err)
	}
	if popped != o {
		t.Error("pop head returned wrong order")
	}
	if !s.Empty() {
		t.Error("level should collapse when its last order fills")
	}
}

func TestSide_TopPricesZeroPadded(t *testing.T) {
	s := NewSide(true)
	for _, price := range []uint64{domain.Scale, 3 * domain.Scale, 2 * domain.Scale} {
		if err := s.Add(sideOrder("a", domain.SideBid, price, 1, price)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got := s.TopPrices(5)
	want := []uint64{3 * domain.Scale, 2 * domain.Scale, domain.Scale, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("top[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
