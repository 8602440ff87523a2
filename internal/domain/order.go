package domain

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// Side indicates whether an order buys the base asset (bid) or sells it (ask).
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Status represents the lifecycle state of an order. Filled, canceled and
// expired are terminal; no further mutation is allowed.
type Status string

const (
	StatusActive   Status = "active"
	StatusFilled   Status = "filled"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// orderNamespace is the fixed UUIDv5 namespace for deterministic order ids.
var orderNamespace = uuid.MustParse("b6a7c7de-3f52-44a1-9c07-5a3be1d20a8f")

// NewOrderID derives a deterministic order id from the submission tuple.
// Resubmitting the same (trader, side, price, nonce) yields the same id,
// which the engine rejects as a duplicate.
func NewOrderID(trader string, side Side, price, nonce uint64) uuid.UUID {
	buf := make([]byte, 0, len(trader)+len(side)+16)
	buf = append(buf, trader...)
	buf = append(buf, side...)
	buf = binary.BigEndian.AppendUint64(buf, price)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return uuid.NewSHA1(orderNamespace, buf)
}

// Order represents a resting or historical order on one side of a pair's book.
//
// EscrowRemaining tracks the unreleased portion of the backing asset the
// trader escrowed at submission: quote units for bids, base units for asks.
// Fills and refunds draw it down; whatever cannot be paid out exactly is
// credited to the trader's balance rather than discarded.
type Order struct {
	ID              uuid.UUID
	Trader          string
	Side            Side
	Price           uint64 // quote per base, scaled by Scale
	OriginalQty     uint64 // base units
	RemainingQty    uint64
	EscrowRemaining uint64
	Nonce           uint64
	Status          Status
	CreatedAt       time.Time
	ExpiresAt       *time.Time // nil = good until canceled
}

// Terminal reports whether the order has reached a terminal status.
func (o *Order) Terminal() bool {
	return o.Status != StatusActive
}
