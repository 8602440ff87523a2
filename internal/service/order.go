package service

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/engine"
)

var traderIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	PairID    string
	Trader    string
	Side      domain.Side
	Price     uint64
	Quantity  uint64
	Nonce     uint64
	ExpiresAt *time.Time
}

// SubmitOrderResult carries the submitted order and the fills it produced.
type SubmitOrderResult struct {
	Order  domain.Order
	Trades []*domain.Trade
}

// OrderService validates order requests and forwards them to the engine.
type OrderService struct {
	engine *engine.Engine
}

// NewOrderService creates a new OrderService.
func NewOrderService(eng *engine.Engine) *OrderService {
	return &OrderService{engine: eng}
}

// Submit validates the request shape and runs it through the engine.
// Shape failures come back as *domain.ValidationError; engine failures as
// domain sentinels.
func (s *OrderService) Submit(req SubmitOrderRequest) (*SubmitOrderResult, error) {
	if !traderIDRegex.MatchString(req.Trader) {
		return nil, &domain.ValidationError{Message: "trader must be 1-64 alphanumeric, dash or underscore characters"}
	}
	if req.Side != domain.SideBid && req.Side != domain.SideAsk {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("side must be %q or %q", domain.SideBid, domain.SideAsk)}
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, &domain.ValidationError{Message: "expires_at must be in the future"}
	}

	o, trades, err := s.engine.Submit(engine.Submission{
		PairID:    req.PairID,
		Trader:    req.Trader,
		Side:      req.Side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Nonce:     req.Nonce,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &SubmitOrderResult{Order: *o, Trades: trades}, nil
}

// Cancel forwards an owner-checked cancellation to the engine.
func (s *OrderService) Cancel(pairID string, orderID uuid.UUID, caller string) (domain.Order, error) {
	if !traderIDRegex.MatchString(caller) {
		return domain.Order{}, &domain.ValidationError{Message: "trader must be 1-64 alphanumeric, dash or underscore characters"}
	}
	o, err := s.engine.Cancel(pairID, orderID, caller)
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// Get returns a copy of an order by id.
func (s *OrderService) Get(pairID string, orderID uuid.UUID) (domain.Order, error) {
	return s.engine.Order(pairID, orderID)
}

// TraderOrders returns the trader's order ids in submission order.
func (s *OrderService) TraderOrders(pairID, trader string) []uuid.UUID {
	return s.engine.TraderOrders(pairID, trader)
}
