package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrPairAlreadyExists = errors.New("pair_already_exists")
	ErrPairNotFound      = errors.New("pair_not_found")
	ErrPairDisabled      = errors.New("pair_disabled")
	ErrZeroQuantity      = errors.New("zero_quantity")
	ErrZeroPrice         = errors.New("zero_price")
	ErrBelowMinNotional  = errors.New("below_minimum_notional")
	ErrDuplicateOrder    = errors.New("duplicate_order")
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrNotOrderOwner     = errors.New("not_order_owner")
	ErrPriceNotFound     = errors.New("price_not_found")
	ErrEmptyQueue        = errors.New("empty_queue")
	ErrNoBalance         = errors.New("no_balance")
	ErrNotFeeRecipient   = errors.New("not_fee_recipient")
	ErrAmountOverflow    = errors.New("amount_overflow")

	// ErrCustodyShortfall indicates a withdrawal larger than the custody
	// the engine tracks for the pair. It must never occur under correct
	// accounting and is checked explicitly rather than left to underflow.
	ErrCustodyShortfall = errors.New("custody_shortfall")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
