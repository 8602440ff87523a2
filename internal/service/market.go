package service

import (
	"time"

	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/engine"
	"github.com/mvance/pairbook/internal/marketdata"
)

// BookLevel is one aggregated price level in a book snapshot.
type BookLevel struct {
	Price    uint64
	Quantity uint64
	Orders   int
}

// BookSnapshot is the response for the book query: up to depth levels per
// side, best first. Prices at zero-padded positions are omitted.
type BookSnapshot struct {
	PairID     string
	Bids       []BookLevel
	Asks       []BookLevel
	SnapshotAt time.Time
}

// PriceInfo is the response for the price query.
type PriceInfo struct {
	PairID         string
	LastPrice      *uint64 // nil before any trade
	VWAP           *uint64 // nil when the window has no trades
	Window         string
	TradesInWindow int
}

// MarketService answers the read-only market queries from the engine's
// books and the trade tape.
type MarketService struct {
	engine     *engine.Engine
	tape       *marketdata.Tape
	vwapWindow time.Duration
}

// NewMarketService creates a new MarketService.
func NewMarketService(eng *engine.Engine, tape *marketdata.Tape, vwapWindow time.Duration) *MarketService {
	return &MarketService{
		engine:     eng,
		tape:       tape,
		vwapWindow: vwapWindow,
	}
}

// Book returns a snapshot of the top depth levels on both sides.
func (s *MarketService) Book(pairID string, depth int) BookSnapshot {
	snap := BookSnapshot{
		PairID:     pairID,
		Bids:       s.levels(pairID, domain.SideBid, depth),
		Asks:       s.levels(pairID, domain.SideAsk, depth),
		SnapshotAt: time.Now(),
	}
	return snap
}

func (s *MarketService) levels(pairID string, side domain.Side, depth int) []BookLevel {
	out := make([]BookLevel, 0, depth)
	for _, price := range s.engine.TopPrices(pairID, side, depth) {
		if price == 0 {
			break
		}
		qty, count := s.engine.PriceLevel(pairID, price, side)
		out = append(out, BookLevel{Price: price, Quantity: qty, Orders: count})
	}
	return out
}

// Level returns the aggregate quantity and order count at a single price.
func (s *MarketService) Level(pairID string, price uint64, side domain.Side) (uint64, int) {
	return s.engine.PriceLevel(pairID, price, side)
}

// Price returns the pair's last trade price and the VWAP over the
// configured window.
func (s *MarketService) Price(pairID string) PriceInfo {
	info := PriceInfo{
		PairID: pairID,
		Window: s.vwapWindow.String(),
	}
	if last, ok := s.tape.Last(pairID); ok {
		info.LastPrice = &last.Price
	}
	vwap, count, ok := s.tape.VWAP(pairID, s.vwapWindow, time.Now())
	info.TradesInWindow = count
	if ok {
		info.VWAP = &vwap
	}
	return info
}

// RecentTrades returns up to n trades for the pair, newest first.
func (s *MarketService) RecentTrades(pairID string, n int) []domain.Trade {
	return s.tape.Recent(pairID, n)
}
