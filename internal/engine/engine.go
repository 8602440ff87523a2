// Package engine implements the matching engine: submission with escrow,
// price-time priority matching, fee accounting, cancellation, withdrawal
// and the read-only book queries.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvance/pairbook/internal/book"
	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/ledger"
	"github.com/mvance/pairbook/internal/marketdata"
)

// Balance is a trader's withdrawable credit in a pair, distinct from the
// escrow backing resting orders.
type Balance struct {
	Base  uint64
	Quote uint64
}

// pairBook is the per-pair aggregate the engine owns exclusively: both book
// sides, the order table, per-trader order lists and credits, fee
// accumulators, tracked custody and the last trade price. One mutex guards
// it for a whole operation, so every engine call is all-or-nothing.
type pairBook struct {
	mu           sync.Mutex
	bids         *book.Side
	asks         *book.Side
	orders       map[uuid.UUID]*domain.Order
	traderOrders map[string][]uuid.UUID
	balances     map[string]*Balance
	feeBase      uint64
	feeQuote     uint64
	custodyBase  uint64
	custodyQuote uint64
	lastPrice    uint64
}

func newPairBook() *pairBook {
	return &pairBook{
		bids:         book.NewSide(true),
		asks:         book.NewSide(false),
		orders:       make(map[uuid.UUID]*domain.Order),
		traderOrders: make(map[string][]uuid.UUID),
		balances:     make(map[string]*Balance),
	}
}

func (b *pairBook) side(s domain.Side) *book.Side {
	if s == domain.SideBid {
		return b.bids
	}
	return b.asks
}

// credit records a withdrawable claim against the pair's custody.
func (b *pairBook) credit(trader string, base bool, amount uint64) {
	if amount == 0 {
		return
	}
	bal, ok := b.balances[trader]
	if !ok {
		bal = &Balance{}
		b.balances[trader] = bal
	}
	if base {
		bal.Base += amount
	} else {
		bal.Quote += amount
	}
}

// Engine owns one pairBook per registered pair and settles against the
// external ledger. The pair registry is consulted at the start of every
// submission for the enabled flag, fee rate and fee recipient.
type Engine struct {
	pairs       *domain.PairRegistry
	ledger      ledger.Ledger
	tape        *marketdata.Tape
	minNotional uint64

	mu    sync.Mutex
	books map[string]*pairBook
}

// NewEngine creates an Engine. minNotional is the smallest accepted order
// value in quote units; values below 1 are raised to 1 so no accepted
// order can round to a zero transfer.
func NewEngine(pairs *domain.PairRegistry, l ledger.Ledger, tape *marketdata.Tape, minNotional uint64) *Engine {
	if minNotional == 0 {
		minNotional = 1
	}
	return &Engine{
		pairs:       pairs,
		ledger:      l,
		tape:        tape,
		minNotional: minNotional,
		books:       make(map[string]*pairBook),
	}
}

func (e *Engine) book(pairID string) *pairBook {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[pairID]
	if !ok {
		b = newPairBook()
		e.books[pairID] = b
	}
	return b
}

// Submission is the input for Submit. ExpiresAt may be nil for
// good-until-canceled orders.
type Submission struct {
	PairID    string
	Trader    string
	Side      domain.Side
	Price     uint64
	Quantity  uint64
	Nonce     uint64
	ExpiresAt *time.Time
}

// Submit runs an incoming limit order through the engine: validate, escrow
// the backing asset, match against the opposite side at maker prices, and
// rest any remainder. The order id is derived from (trader, side, price,
// nonce); resubmitting the tuple fails as a duplicate.
//
// The pair's book lock is held for the entire pass, so the call either
// fully applies or fails with no internal mutation. The only external
// effects are the ledger transfers, and the escrow TransferIn happens
// before any internal bookkeeping is committed.
func (e *Engine) Submit(sub Submission) (*domain.Order, []*domain.Trade, error) {
	pair, err := e.pairs.Get(sub.PairID)
	if err != nil {
		return nil, nil, err
	}
	if !pair.Enabled {
		return nil, nil, domain.ErrPairDisabled
	}
	if sub.Quantity == 0 {
		return nil, nil, domain.ErrZeroQuantity
	}
	if sub.Price == 0 {
		return nil, nil, domain.ErrZeroPrice
	}
	notional, err := domain.Notional(sub.Quantity, sub.Price)
	if err != nil {
		return nil, nil, err
	}
	if notional < e.minNotional {
		return nil, nil, domain.ErrBelowMinNotional
	}

	b := e.book(pair.ID)
	b.mu.Lock()
	defer b.mu.Unlock()

	id := domain.NewOrderID(sub.Trader, sub.Side, sub.Price, sub.Nonce)
	if _, ok := b.orders[id]; ok {
		return nil, nil, domain.ErrDuplicateOrder
	}

	// Escrow the backing asset before touching any internal state: the
	// buy side locks its quote cost rounded up, the sell side locks the
	// base quantity exactly.
	var escrow uint64
	if sub.Side == domain.SideBid {
		escrow, err = domain.MulDivCeil(sub.Quantity, sub.Price, domain.Scale)
		if err != nil {
			return nil, nil, err
		}
		if err := e.ledger.TransferIn(sub.Trader, pair.Quote, escrow); err != nil {
			return nil, nil, err
		}
		b.custodyQuote += escrow
	} else {
		escrow = sub.Quantity
		if err := e.ledger.TransferIn(sub.Trader, pair.Base, escrow); err != nil {
			return nil, nil, err
		}
		b.custodyBase += escrow
	}

	now := time.Now()
	o := &domain.Order{
		ID:              id,
		Trader:          sub.Trader,
		Side:            sub.Side,
		Price:           sub.Price,
		OriginalQty:     sub.Quantity,
		RemainingQty:    sub.Quantity,
		EscrowRemaining: escrow,
		Nonce:           sub.Nonce,
		Status:          domain.StatusActive,
		CreatedAt:       now,
		ExpiresAt:       sub.ExpiresAt,
	}

	trades := e.match(b, pair, o, now)

	if o.RemainingQty > 0 {
		// Rest the remainder. Escrow beyond what the remainder needs —
		// price improvement plus rounding — goes back to the trader as
		// withdrawable credit.
		needed := o.RemainingQty
		if o.Side == domain.SideBid {
			needed, _ = domain.MulDivCeil(o.RemainingQty, o.Price, domain.Scale)
		}
		if o.EscrowRemaining > needed {
			b.credit(o.Trader, o.Side == domain.SideAsk, o.EscrowRemaining-needed)
			o.EscrowRemaining = needed
		}
		if err := b.side(o.Side).Add(o); err != nil {
			return nil, nil, err
		}
	} else {
		o.Status = domain.StatusFilled
		if o.EscrowRemaining > 0 {
			b.credit(o.Trader, o.Side == domain.SideAsk, o.EscrowRemaining)
			o.EscrowRemaining = 0
		}
	}

	b.orders[id] = o
	b.traderOrders[o.Trader] = append(b.traderOrders[o.Trader], id)
	return o, trades, nil
}

// match drains crossable levels on the opposite side in price-time order.
// Trades always execute at the maker's price; the taker pays the
// configured fee on its proceeds. Maker proceeds are credited, taker
// proceeds are accumulated and paid out once after the loop.
func (e *Engine) match(b *pairBook, pair domain.Pair, taker *domain.Order, now time.Time) []*domain.Trade {
	opp := b.asks
	if taker.Side == domain.SideAsk {
		opp = b.bids
	}

	var trades []*domain.Trade
	var proceeds uint64 // base units for bid takers, quote units for ask takers

	for taker.RemainingQty > 0 {
		best := opp.Best()
		if best == 0 {
			break
		}
		if taker.Side == domain.SideBid {
			if taker.Price < best {
				break
			}
		} else if best < taker.Price {
			break
		}

		maker := opp.Head(best)
		if maker == nil {
			break
		}
		fill := taker.RemainingQty
		if maker.RemainingQty < fill {
			fill = maker.RemainingQty
		}
		value, err := domain.MulDivFloor(fill, best, domain.Scale)
		if err != nil {
			break
		}

		if taker.Side == domain.SideBid {
			// Taker receives base, fee taken in base; the maker's
			// consumed base escrow covers payout plus fee. The maker is
			// credited the trade value in quote.
			fee, ferr := domain.MulDivFloor(fill, pair.FeeBps, 10000)
			if ferr != nil {
				break
			}
			b.feeBase += fee
			proceeds += fill - fee
			taker.EscrowRemaining -= value
			maker.EscrowRemaining -= fill
			b.credit(maker.Trader, false, value)
		} else {
			// Taker receives quote, fee taken in quote; the maker is
			// credited the filled base.
			fee, ferr := domain.MulDivFloor(value, pair.FeeBps, 10000)
			if ferr != nil {
				break
			}
			b.feeQuote += fee
			proceeds += value - fee
			taker.EscrowRemaining -= fill
			maker.EscrowRemaining -= value
			b.credit(maker.Trader, true, fill)
		}

		taker.RemainingQty -= fill
		maker.RemainingQty -= fill
		if err := opp.Fill(best, fill); err != nil {
			break
		}

		if maker.RemainingQty == 0 {
			maker.Status = domain.StatusFilled
			// Rounding kept some of the maker's escrow; it is credited,
			// never discarded.
			if maker.EscrowRemaining > 0 {
				b.credit(maker.Trader, maker.Side == domain.SideAsk, maker.EscrowRemaining)
				maker.EscrowRemaining = 0
			}
			if _, err := opp.PopHead(best); err != nil {
				break
			}
		}

		b.lastPrice = best
		tr := &domain.Trade{
			TradeID:      uuid.New(),
			PairID:       pair.ID,
			MakerOrderID: maker.ID,
			TakerOrderID: taker.ID,
			TakerSide:    taker.Side,
			Price:        best,
			Quantity:     fill,
			ExecutedAt:   now,
		}
		trades = append(trades, tr)
		e.tape.Append(*tr)
	}

	if proceeds > 0 {
		if taker.Side == domain.SideBid {
			if err := e.ledger.TransferOut(taker.Trader, pair.Base, proceeds); err != nil {
				b.credit(taker.Trader, true, proceeds)
			} else {
				b.custodyBase -= proceeds
			}
		} else {
			if err := e.ledger.TransferOut(taker.Trader, pair.Quote, proceeds); err != nil {
				b.credit(taker.Trader, false, proceeds)
			} else {
				b.custodyQuote -= proceeds
			}
		}
	}
	return trades
}

// Cancel removes the caller's active order from the book and refunds the
// escrow backing its remaining quantity. Any fixed-point remainder that
// cannot be transferred exactly is credited to the caller's balance. An
// order in a terminal state reads as not found, so re-cancellation fails.
func (e *Engine) Cancel(pairID string, orderID uuid.UUID, caller string) (*domain.Order, error) {
	pair, err := e.pairs.Get(pairID)
	if err != nil {
		return nil, err
	}

	b := e.book(pair.ID)
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok || o.Terminal() {
		return nil, domain.ErrOrderNotFound
	}
	if o.Trader != caller {
		return nil, domain.ErrNotOrderOwner
	}

	var refund uint64
	if o.Side == domain.SideBid {
		refund, err = domain.MulDivFloor(o.RemainingQty, o.Price, domain.Scale)
		if err != nil {
			return nil, err
		}
		if refund > 0 {
			if err := e.ledger.TransferOut(caller, pair.Quote, refund); err != nil {
				return nil, err
			}
			b.custodyQuote -= refund
		}
	} else {
		refund = o.RemainingQty
		if err := e.ledger.TransferOut(caller, pair.Base, refund); err != nil {
			return nil, err
		}
		b.custodyBase -= refund
	}

	if dust := o.EscrowRemaining - refund; dust > 0 {
		b.credit(caller, o.Side == domain.SideAsk, dust)
	}
	o.EscrowRemaining = 0

	if err := b.side(o.Side).Remove(o); err != nil {
		return nil, err
	}
	o.Status = domain.StatusCanceled
	return o, nil
}

// Withdraw transfers the trader's full credit in one asset of the pair and
// zeroes it. A credit exceeding tracked custody is the visible symptom of
// a solvency breach and fails with ErrCustodyShortfall instead of
// underflowing.
func (e *Engine) Withdraw(pairID, trader string, base bool) (uint64, error) {
	pair, err := e.pairs.Get(pairID)
	if err != nil {
		return 0, err
	}

	b := e.book(pair.ID)
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[trader]
	if !ok {
		return 0, domain.ErrNoBalance
	}
	amount := bal.Quote
	asset := pair.Quote
	custody := b.custodyQuote
	if base {
		amount = bal.Base
		asset = pair.Base
		custody = b.custodyBase
	}
	if amount == 0 {
		return 0, domain.ErrNoBalance
	}
	if amount > custody {
		return 0, domain.ErrCustodyShortfall
	}
	if err := e.ledger.TransferOut(trader, asset, amount); err != nil {
		return 0, err
	}
	if base {
		bal.Base = 0
		b.custodyBase -= amount
	} else {
		bal.Quote = 0
		b.custodyQuote -= amount
	}
	return amount, nil
}

// WithdrawFees transfers the accumulated fees in one asset to the pair's
// fee recipient, who must be the caller.
func (e *Engine) WithdrawFees(pairID, caller string, base bool) (uint64, error) {
	pair, err := e.pairs.Get(pairID)
	if err != nil {
		return 0, err
	}
	if caller != pair.FeeRecipient {
		return 0, domain.ErrNotFeeRecipient
	}

	b := e.book(pair.ID)
	b.mu.Lock()
	defer b.mu.Unlock()

	amount := b.feeQuote
	asset := pair.Quote
	custody := b.custodyQuote
	if base {
		amount = b.feeBase
		asset = pair.Base
		custody = b.custodyBase
	}
	if amount == 0 {
		return 0, domain.ErrNoBalance
	}
	if amount > custody {
		return 0, domain.ErrCustodyShortfall
	}
	if err := e.ledger.TransferOut(caller, asset, amount); err != nil {
		return 0, err
	}
	if base {
		b.feeBase = 0
		b.custodyBase -= amount
	} else {
		b.feeQuote = 0
		b.custodyQuote -= amount
	}
	return amount, nil
}

// PriceLevel returns the aggregate remaining quantity and order count at a
// price on one side. An absent level reads as (0, 0).
func (e *Engine) PriceLevel(pairID string, price uint64, side domain.Side) (uint64, int) {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.side(side).Level(price)
}

// TopPrices returns the n best prices on one side, best first, zero-padded
// when the side has fewer active levels.
func (e *Engine) TopPrices(pairID string, side domain.Side, n int) []uint64 {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.side(side).TopPrices(n)
}

// Order returns a copy of the order, active or historical.
func (e *Engine) Order(pairID string, orderID uuid.UUID) (domain.Order, error) {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *o, nil
}

// TraderOrders returns the trader's order ids in submission order as a
// defensive copy.
func (e *Engine) TraderOrders(pairID, trader string) []uuid.UUID {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := b.traderOrders[trader]
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out
}

// TraderBalance returns the trader's withdrawable credits in the pair.
func (e *Engine) TraderBalance(pairID, trader string) Balance {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[trader]
	if !ok {
		return Balance{}
	}
	return *bal
}

// FeeTotals returns the pair's accumulated fees in base and quote units.
func (e *Engine) FeeTotals(pairID string) (uint64, uint64) {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.feeBase, b.feeQuote
}

// Custody returns the engine's tracked custody for the pair in base and
// quote units.
func (e *Engine) Custody(pairID string) (uint64, uint64) {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.custodyBase, b.custodyQuote
}

// LastPrice returns the pair's last executed price, or 0 before any trade.
func (e *Engine) LastPrice(pairID string) uint64 {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPrice
}

// Depth returns the number of active price levels on one side.
func (e *Engine) Depth(pairID string, side domain.Side) int {
	b := e.book(pairID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.side(side).Depth()
}

// ExpireDue removes every resting order whose expiry is at or before now
// and credits its full remaining escrow to the owner's balance. Crediting
// instead of transferring keeps the sweep free of external calls, so it
// cannot fail half-way. Returns the number of orders expired.
func (e *Engine) ExpireDue(now time.Time) int {
	e.mu.Lock()
	books := make([]*pairBook, 0, len(e.books))
	for _, b := range e.books {
		books = append(books, b)
	}
	e.mu.Unlock()

	expired := 0
	for _, b := range books {
		b.mu.Lock()
		for _, o := range b.orders {
			if o.Terminal() || o.ExpiresAt == nil || o.ExpiresAt.After(now) {
				continue
			}
			if err := b.side(o.Side).Remove(o); err != nil {
				continue
			}
			b.credit(o.Trader, o.Side == domain.SideAsk, o.EscrowRemaining)
			o.EscrowRemaining = 0
			o.Status = domain.StatusExpired
			expired++
		}
		b.mu.Unlock()
	}
	return expired
}
