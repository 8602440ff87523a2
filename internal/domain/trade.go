package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trade represents a single fill between an incoming taker order and a
// resting maker order. Execution is always at the maker's price.
type Trade struct {
	TradeID      uuid.UUID
	PairID       string
	MakerOrderID uuid.UUID
	TakerOrderID uuid.UUID
	TakerSide    Side
	Price        uint64 // maker price, scaled
	Quantity     uint64 // base units
	ExecutedAt   time.Time
}
