package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /pairs/{base}/{quote}/orders.
// Prices and quantities are decimal strings: scaled prices exceed the range
// JSON numbers can carry exactly.
type submitOrderRequest struct {
	Trader    string  `json:"trader"`
	Side      string  `json:"side"`
	Price     string  `json:"price"`
	Quantity  string  `json:"quantity"`
	Nonce     uint64  `json:"nonce"`
	ExpiresAt *string `json:"expires_at"`
}

// orderResponse is the JSON shape of an order.
type orderResponse struct {
	OrderID           string  `json:"order_id"`
	Trader            string  `json:"trader"`
	Side              string  `json:"side"`
	Price             string  `json:"price"`
	OriginalQuantity  string  `json:"original_quantity"`
	RemainingQuantity string  `json:"remaining_quantity"`
	Status            string  `json:"status"`
	Nonce             uint64  `json:"nonce"`
	CreatedAt         string  `json:"created_at"`
	ExpiresAt         *string `json:"expires_at"`
}

// tradeResponse is a single fill in the submit response.
type tradeResponse struct {
	TradeID      string `json:"trade_id"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
	TakerSide    string `json:"taker_side"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	ExecutedAt   string `json:"executed_at"`
}

// submitOrderResponse is the JSON response for order submission.
type submitOrderResponse struct {
	Order  orderResponse   `json:"order"`
	Trades []tradeResponse `json:"trades"`
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:           o.ID.String(),
		Trader:            o.Trader,
		Side:              string(o.Side),
		Price:             strconv.FormatUint(o.Price, 10),
		OriginalQuantity:  strconv.FormatUint(o.OriginalQty, 10),
		RemainingQuantity: strconv.FormatUint(o.RemainingQty, 10),
		Status:            string(o.Status),
		Nonce:             o.Nonce,
		CreatedAt:         o.CreatedAt.Format(time.RFC3339Nano),
	}
	if o.ExpiresAt != nil {
		s := o.ExpiresAt.Format(time.RFC3339Nano)
		resp.ExpiresAt = &s
	}
	return resp
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:      t.TradeID.String(),
		MakerOrderID: t.MakerOrderID.String(),
		TakerOrderID: t.TakerOrderID.String(),
		TakerSide:    string(t.TakerSide),
		Price:        strconv.FormatUint(t.Price, 10),
		Quantity:     strconv.FormatUint(t.Quantity, 10),
		ExecutedAt:   t.ExecutedAt.Format(time.RFC3339Nano),
	}
}

// Submit handles POST /pairs/{base}/{quote}/orders.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	price, err := strconv.ParseUint(req.Price, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "price must be a non-negative decimal string")
		return
	}
	qty, err := strconv.ParseUint(req.Quantity, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity must be a non-negative decimal string")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "expires_at must be a valid RFC 3339 timestamp")
			return
		}
		expiresAt = &t
	}

	result, err := h.orderSvc.Submit(service.SubmitOrderRequest{
		PairID:    pairIDFromURL(r),
		Trader:    req.Trader,
		Side:      domain.Side(req.Side),
		Price:     price,
		Quantity:  qty,
		Nonce:     req.Nonce,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := submitOrderResponse{
		Order:  toOrderResponse(result.Order),
		Trades: make([]tradeResponse, 0, len(result.Trades)),
	}
	for _, t := range result.Trades {
		resp.Trades = append(resp.Trades, toTradeResponse(t))
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// Get handles GET /pairs/{base}/{quote}/orders/{order_id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a valid UUID")
		return
	}
	o, err := h.orderSvc.Get(pairIDFromURL(r), orderID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

// Cancel handles DELETE /pairs/{base}/{quote}/orders/{order_id}. The caller
// identifies itself with the trader query parameter.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a valid UUID")
		return
	}
	caller := r.URL.Query().Get("trader")
	o, err := h.orderSvc.Cancel(pairIDFromURL(r), orderID, caller)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

// TraderOrders handles GET /pairs/{base}/{quote}/traders/{trader}/orders.
func (h *OrderHandler) TraderOrders(w http.ResponseWriter, r *http.Request) {
	ids := h.orderSvc.TraderOrders(pairIDFromURL(r), chi.URLParam(r, "trader"))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"order_ids": out})
}
