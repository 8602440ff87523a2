package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mvance/pairbook/internal/service"
)

// defaultBookDepth is used when the book query omits depth.
const defaultBookDepth = 10

// maxBookDepth caps the depth of a single book snapshot.
const maxBookDepth = 100

// MarketHandler handles HTTP requests for market-data endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// bookLevelResponse is one aggregated level in the book response.
type bookLevelResponse struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Orders   int    `json:"orders"`
}

// bookResponse is the JSON response for GET /pairs/{base}/{quote}/book.
type bookResponse struct {
	Pair       string              `json:"pair"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	SnapshotAt string              `json:"snapshot_at"`
}

// priceResponse is the JSON response for GET /pairs/{base}/{quote}/price.
type priceResponse struct {
	Pair           string  `json:"pair"`
	LastPrice      *string `json:"last_price"`
	VWAP           *string `json:"vwap"`
	Window         string  `json:"window"`
	TradesInWindow int     `json:"trades_in_window"`
}

// Book handles GET /pairs/{base}/{quote}/book.
func (h *MarketHandler) Book(w http.ResponseWriter, r *http.Request) {
	depth := defaultBookDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > maxBookDepth {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be an integer between 1 and 100")
			return
		}
		depth = d
	}

	snap := h.marketSvc.Book(pairIDFromURL(r), depth)
	resp := bookResponse{
		Pair:       snap.PairID,
		Bids:       toLevelResponses(snap.Bids),
		Asks:       toLevelResponses(snap.Asks),
		SnapshotAt: snap.SnapshotAt.UTC().Format(time.RFC3339Nano),
	}
	WriteJSON(w, http.StatusOK, resp)
}

func toLevelResponses(levels []service.BookLevel) []bookLevelResponse {
	out := make([]bookLevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, bookLevelResponse{
			Price:    strconv.FormatUint(l.Price, 10),
			Quantity: strconv.FormatUint(l.Quantity, 10),
			Orders:   l.Orders,
		})
	}
	return out
}

// Price handles GET /pairs/{base}/{quote}/price.
func (h *MarketHandler) Price(w http.ResponseWriter, r *http.Request) {
	info := h.marketSvc.Price(pairIDFromURL(r))
	resp := priceResponse{
		Pair:           info.PairID,
		Window:         info.Window,
		TradesInWindow: info.TradesInWindow,
	}
	if info.LastPrice != nil {
		s := strconv.FormatUint(*info.LastPrice, 10)
		resp.LastPrice = &s
	}
	if info.VWAP != nil {
		s := strconv.FormatUint(*info.VWAP, 10)
		resp.VWAP = &s
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Trades handles GET /pairs/{base}/{quote}/trades.
func (h *MarketHandler) Trades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be an integer between 1 and 1000")
			return
		}
		limit = n
	}

	trades := h.marketSvc.RecentTrades(pairIDFromURL(r), limit)
	out := make([]tradeResponse, 0, len(trades))
	for i := range trades {
		out = append(out, toTradeResponse(&trades[i]))
	}
	WriteJSON(w, http.StatusOK, map[string][]tradeResponse{"trades": out})
}
