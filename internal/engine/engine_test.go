package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/ledger"
	"github.com/mvance/pairbook/internal/marketdata"
)

const testPair = "BTC/USD"

func newTestEngine(t *testing.T, feeBps uint64) (*Engine, *ledger.InMemory) {
	t.Helper()
	pairs := domain.NewPairRegistry()
	if _, err := pairs.Register("BTC", "USD", feeBps, "fee-pool"); err != nil {
		t.Fatalf("register pair: %v", err)
	}
	l := ledger.NewInMemory()
	return NewEngine(pairs, l, marketdata.NewTape(), 1), l
}

func submit(t *testing.T, e *Engine, trader string, side domain.Side, price, qty, nonce uint64) (*domain.Order, []*domain.Trade) {
	t.Helper()
	o, trades, err := e.Submit(Submission{
		PairID:   testPair,
		Trader:   trader,
		Side:     side,
		Price:    price,
		Quantity: qty,
		Nonce:    nonce,
	})
	if err != nil {
		t.Fatalf("submit %s %s %d@%d: %v", trader, side, qty, price, err)
	}
	return o, trades
}

func TestEngine_FullFillWithFee(t *testing.T) {
	e, l := newTestEngine(t, 100) // 1%
	l.Mint("alice", "BTC", 100)
	l.Mint("bob", "USD", 200)

	maker, trades := submit(t, e, "alice", domain.SideAsk, 2*domain.Scale, 100, 1)
	if len(trades) != 0 {
		t.Fatalf("resting order produced %d trades", len(trades))
	}
	if l.Balance("alice", "BTC") != 0 {
		t.Error("maker escrow not taken")
	}

	taker, trades := submit(t, e, "bob", domain.SideBid, 2*domain.Scale, 100, 1)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Price != 2*domain.Scale || tr.Quantity != 100 {
		t.Errorf("trade = %d @ %d, want 100 @ %d", tr.Quantity, tr.Price, 2*domain.Scale)
	}
	if tr.MakerOrderID != maker.ID || tr.TakerOrderID != taker.ID {
		t.Error("trade order ids mismatch")
	}

	if taker.Status != domain.StatusFilled {
		t.Errorf("taker status = %s, want filled", taker.Status)
	}
	got, err := e.Order(testPair, maker.ID)
	if err != nil {
		t.Fatalf("order lookup: %v", err)
	}
	if got.Status != domain.StatusFilled || got.RemainingQty != 0 {
		t.Errorf("maker = %s remaining %d, want filled 0", got.Status, got.RemainingQty)
	}

	// 1% taker fee on 100 base is 1; the taker receives 99 immediately.
	if bal := l.Balance("bob", "BTC"); bal != 99 {
		t.Errorf("taker received %d base, want 99", bal)
	}
	if fb, _ := e.FeeTotals(testPair); fb != 1 {
		t.Errorf("base fees = %d, want 1", fb)
	}
	// The maker's quote proceeds are a withdrawable credit.
	if bal := e.TraderBalance(testPair, "alice"); bal.Quote != 200 {
		t.Errorf("maker credit = %d quote, want 200", bal.Quote)
	}
	if e.LastPrice(testPair) != 2*domain.Scale {
		t.Errorf("last price = %d, want %d", e.LastPrice(testPair), 2*domain.Scale)
	}

	amount, err := e.Withdraw(testPair, "alice", false)
	if err != nil || amount != 200 {
		t.Fatalf("withdraw = %d, %v; want 200", amount, err)
	}
	if l.Balance("alice", "USD") != 200 {
		t.Errorf("alice USD = %d, want 200", l.Balance("alice", "USD"))
	}

	amount, err = e.WithdrawFees(testPair, "fee-pool", true)
	if err != nil || amount != 1 {
		t.Fatalf("withdraw fees = %d, %v; want 1", amount, err)
	}
	cb, cq := e.Custody(testPair)
	if cb != 0 || cq != 0 {
		t.Errorf("custody = (%d, %d) after everyone withdrew, want (0, 0)", cb, cq)
	}
}

func TestEngine_PartialFillRests(t *testing.T) {
	e, l := newTestEngine(t, 100)
	l.Mint("alice", "USD", 600)
	l.Mint("bob", "BTC", 100)

	maker, _ := submit(t, e, "alice", domain.SideBid, 2*domain.Scale, 300, 1)
	_, trades := submit(t, e, "bob", domain.SideAsk, 2*domain.Scale, 100, 1)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	got, err := e.Order(testPair, maker.ID)
	if err != nil {
		t.Fatalf("order lookup: %v", err)
	}
	if got.Status != domain.StatusActive || got.RemainingQty != 200 {
		t.Errorf("maker = %s remaining %d, want active 200", got.Status, got.RemainingQty)
	}
	qty, count := e.PriceLevel(testPair, 2*domain.Scale, domain.SideBid)
	if qty != 200 || count != 1 {
		t.Errorf("bid level = (%d, %d), want (200, 1)", qty, count)
	}

	// Fee is 1% of the 200-quote trade value; the ask taker nets 198.
	if bal := l.Balance("bob", "USD"); bal != 198 {
		t.Errorf("taker received %d quote, want 198", bal)
	}
	if _, fq := e.FeeTotals(testPair); fq != 2 {
		t.Errorf("quote fees = %d, want 2", fq)
	}
	if bal := e.TraderBalance(testPair, "alice"); bal.Base != 100 {
		t.Errorf("maker credit = %d base, want 100", bal.Base)
	}
}

func TestEngine_RoundingDustCredited(t *testing.T) {
	e, l := newTestEngine(t, 0)
	halfUp := domain.Scale + domain.Scale/2
	l.Mint("alice", "USD", 2)
	l.Mint("bob", "BTC", 1)

	// Buying 1 base at 1.5 escrows ceil(1.5) = 2 quote; the trade settles
	// at floor(1.5) = 1 and the leftover unit goes back as credit.
	maker, _ := submit(t, e, "alice", domain.SideBid, halfUp, 1, 1)
	_, trades := submit(t, e, "bob", domain.SideAsk, domain.Scale, 1, 1)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price != halfUp {
		t.Errorf("trade price = %d, want the maker price %d", trades[0].Price, halfUp)
	}

	if bal := l.Balance("bob", "USD"); bal != 1 {
		t.Errorf("taker received %d quote, want 1", bal)
	}
	bal := e.TraderBalance(testPair, "alice")
	if bal.Base != 1 || bal.Quote != 1 {
		t.Errorf("maker credit = (%d base, %d quote), want (1, 1)", bal.Base, bal.Quote)
	}
	got, _ := e.Order(testPair, maker.ID)
	if got.EscrowRemaining != 0 {
		t.Errorf("filled maker keeps escrow %d", got.EscrowRemaining)
	}
}

func TestEngine_PriceTimePriority(t *testing.T) {
	e, l := newTestEngine(t, 0)
	l.Mint("carol", "BTC", 10)
	l.Mint("dave", "BTC", 10)
	l.Mint("erin", "BTC", 10)
	l.Mint("bob", "USD", 45)

	carol, _ := submit(t, e, "carol", domain.SideAsk, 2*domain.Scale, 10, 1)
	dave, _ := submit(t, e, "dave", domain.SideAsk, 2*domain.Scale, 10, 1)
	erin, _ := submit(t, e, "erin", domain.SideAsk, 3*domain.Scale, 10, 1)

	taker, trades := submit(t, e, "bob", domain.SideBid, 3*domain.Scale, 15, 1)
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].MakerOrderID != carol.ID || trades[1].MakerOrderID != dave.ID {
		t.Error("fills out of price-time order")
	}
	if trades[0].Quantity != 10 || trades[1].Quantity != 5 {
		t.Errorf("fill quantities = (%d, %d), want (10, 5)", trades[0].Quantity, trades[1].Quantity)
	}
	if trades[0].Price != 2*domain.Scale || trades[1].Price != 2*domain.Scale {
		t.Error("fills must execute at the maker price")
	}

	qty, count := e.PriceLevel(testPair, 2*domain.Scale, domain.SideAsk)
	if qty != 5 || count != 1 {
		t.Errorf("ask level at 2 = (%d, %d), want (5, 1)", qty, count)
	}
	gotErin, _ := e.Order(testPair, erin.ID)
	if gotErin.RemainingQty != 10 {
		t.Error("worse-priced ask should be untouched")
	}

	// Escrowed 45 quote at the limit, spent 30 at the better maker price;
	// the improvement comes back as credit.
	if taker.Status != domain.StatusFilled {
		t.Errorf("taker status = %s, want filled", taker.Status)
	}
	if bal := e.TraderBalance(testPair, "bob"); bal.Quote != 15 {
		t.Errorf("taker credit = %d quote, want 15", bal.Quote)
	}
	if bal := l.Balance("bob", "BTC"); bal != 15 {
		t.Errorf("taker received %d base, want 15", bal)
	}
}

func TestEngine_CancelRefundsEscrow(t *testing.T) {
	e, l := newTestEngine(t, 0)
	l.Mint("alice", "USD", 20)

	o, _ := submit(t, e, "alice", domain.SideBid, 2*domain.Scale, 10, 1)

	if _, err := e.Cancel(testPair, o.ID, "bob"); !errors.Is(err, domain.ErrNotOrderOwner) {
		t.Errorf("expected ErrNotOrderOwner, got %v", err)
	}

	canceled, err := e.Cancel(testPair, o.ID, "alice")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != domain.StatusCanceled {
		t.Errorf("status = %s, want canceled", canceled.Status)
	}
	if l.Balance("alice", "USD") != 20 {
		t.Errorf("refund left alice with %d USD, want 20", l.Balance("alice", "USD"))
	}
	if _, cq := e.Custody(testPair); cq != 0 {
		t.Errorf("custody quote = %d after refund, want 0", cq)
	}
	qty, count := e.PriceLevel(testPair, 2*domain.Scale, domain.SideBid)
	if qty != 0 || count != 0 {
		t.Error("canceled order still on the book")
	}

	if _, err := e.Cancel(testPair, o.ID, "alice"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("re-cancel: expected ErrOrderNotFound, got %v", err)
	}
}

func TestEngine_CancelDustCredited(t *testing.T) {
	e, l := newTestEngine(t, 0)
	halfUp := domain.Scale + domain.Scale/2
	l.Mint("alice", "USD", 2)

	o, _ := submit(t, e, "alice", domain.SideBid, halfUp, 1, 1)
	if _, err := e.Cancel(testPair, o.ID, "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// Escrowed ceil(1.5) = 2, refunded floor(1.5) = 1; the remaining unit
	// is a credit, not a loss.
	if l.Balance("alice", "USD") != 1 {
		t.Errorf("refund = %d, want 1", l.Balance("alice", "USD"))
	}
	if bal := e.TraderBalance(testPair, "alice"); bal.Quote != 1 {
		t.Errorf("dust credit = %d, want 1", bal.Quote)
	}
}

func TestEngine_SubmitValidation(t *testing.T) {
	e, l := newTestEngine(t, 0)
	l.Mint("alice", "USD", 1000)

	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{
			name: "unknown pair",
			sub:  Submission{PairID: "ETH/USD", Trader: "alice", Side: domain.SideBid, Price: domain.Scale, Quantity: 1},
			want: domain.ErrPairNotFound,
		},
		{
			name: "zero quantity",
			sub:  Submission{PairID: testPair, Trader: "alice", Side: domain.SideBid, Price: domain.Scale, Quantity: 0},
			want: domain.ErrZeroQuantity,
		},
		{
			name: "zero price",
			sub:  Submission{PairID: testPair, Trader: "alice", Side: domain.SideBid, Price: 0, Quantity: 1},
			want: domain.ErrZeroPrice,
		},
		{
			name: "below min notional",
			sub:  Submission{PairID: testPair, Trader: "alice", Side: domain.SideBid, Price: domain.Scale / 2, Quantity: 1},
			want: domain.ErrBelowMinNotional,
		},
		{
			name: "insufficient funds",
			sub:  Submission{PairID: testPair, Trader: "poor", Side: domain.SideBid, Price: domain.Scale, Quantity: 5},
			want: ledger.ErrInsufficientFunds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Submit(tt.sub)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// A rejected submission must leave no trace.
	cb, cq := e.Custody(testPair)
	if cb != 0 || cq != 0 {
		t.Errorf("custody mutated by rejected submissions: (%d, %d)", cb, cq)
	}
	if n := e.Depth(testPair, domain.SideBid); n != 0 {
		t.Errorf("book mutated by rejected submissions: depth %d", n)
	}
}

func TestEngine_DuplicateSubmission(t *testing.T) {
	e, l := newTestEngine(t, 0)
	l.Mint("alice", "USD", 100)

	submit(t, e, "alice", domain.SideBid, 2*domain.Scale, 10, 7)
	_, _, err := e.Submit(Submission{
		PairID: testPair, Trader: "alice", Side: domain.SideBid,
		Price: 2 * domain.Scale, Quantity: 10, Nonce: 7,
	})
	if !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}
	// A fresh nonce makes it a distinct order.
	if _, _, err := e.Submit(Submission{
		PairID: testPair, Trader: "alice", Side: domain.SideBid,
		Price: 2 * domain.Scale, Quantity: 10, Nonce: 8,
	}); err != nil {
		t.Errorf("new nonce rejected: %v", err)
	}
}

func TestEngine_DisabledPair(t *testing.T) {
	pairs := domain.NewPairRegistry()
	if _, err := pairs.Register("BTC", "USD", 0, "fee-pool"); err != nil {
		t.Fatalf("register pair: %v", err)
	}
	if err := pairs.SetEnabled(testPair, false); err != nil {
		t.Fatalf("disable pair: %v", err)
	}
	l := ledger.NewInMemory()
	l.Mint("alice", "USD", 100)
	e := NewEngine(pairs, l, marketdata.NewTape(), 1)

	_, _, err := e.Submit(Submission{
		PairID: testPair, Trader: "alice", Side: domain.SideBid,
		Price: domain.Scale, Quantity: 10, Nonce: 1,
	})
	if !errors.Is(err, domain.ErrPairDisabled) {
		t.Errorf("expected ErrPairDisabled, got %v", err)
	}
}

func TestEngine_WithdrawErrors(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	if _, err := e.Withdraw(testPair, "nobody", true); !errors.Is(err, domain.ErrNoBalance) {
		t.Errorf("expected ErrNoBalance, got %v", err)
	}
	if _, err := e.WithdrawFees(testPair, "imposter", true); !errors.Is(err, domain.ErrNotFeeRecipient) {
		t.Errorf("expected ErrNotFeeRecipient, got %v", err)
	}
	if _, err := e.WithdrawFees(testPair, "fee-pool", true); !errors.Is(err, domain.ErrNoBalance) {
		t.Errorf("expected ErrNoBalance for empty fee pot, got %v", err)
	}
}

func TestEngine_TraderOrdersAndLookup(t *testing.T) {
	e, l := newTestEngine(t, 0)
	l.Mint("alice", "USD", 100)

	o1, _ := submit(t, e, "alice", domain.SideBid, 2*domain.Scale, 10, 1)
	o2, _ := submit(t, e, "alice", domain.SideBid, 3*domain.Scale, 5, 2)

	ids := e.TraderOrders(testPair, "alice")
	if len(ids) != 2 || ids[0] != o1.ID || ids[1] != o2.ID {
		t.Errorf("trader orders = %v, want submission order", ids)
	}
	if _, err := e.Order(testPair, uuid.New()); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestEngine_ExpireDue(t *testing.T) {
	e, l := newTestEngine(t, 0)
	l.Mint("alice", "USD", 20)
	l.Mint("bob", "USD", 20)

	deadline := time.Now().Add(time.Minute)
	o, _, err := e.Submit(Submission{
		PairID: testPair, Trader: "alice", Side: domain.SideBid,
		Price: 2 * domain.Scale, Quantity: 10, Nonce: 1, ExpiresAt: &deadline,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	submit(t, e, "bob", domain.SideBid, 2*domain.Scale, 10, 1) // no expiry

	if n := e.ExpireDue(deadline.Add(-time.Second)); n != 0 {
		t.Fatalf("expired %d orders before the deadline", n)
	}
	if n := e.ExpireDue(deadline); n != 1 {
		t.Fatalf("expired %d orders at the deadline, want 1", n)
	}

	got, _ := e.Order(testPair, o.ID)
	if got.Status != domain.StatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
	if bal := e.TraderBalance(testPair, "alice"); bal.Quote != 20 {
		t.Errorf("expiry credit = %d, want the full 20 escrow", bal.Quote)
	}
	qty, count := e.PriceLevel(testPair, 2*domain.Scale, domain.SideBid)
	if qty != 10 || count != 1 {
		t.Errorf("level = (%d, %d), want only bob's order left", qty, count)
	}
}
