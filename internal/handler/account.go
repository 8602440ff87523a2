package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mvance/pairbook/internal/service"
)

// AccountHandler handles HTTP requests for balance and withdrawal endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// balanceResponse is the JSON response for the balance query.
type balanceResponse struct {
	Trader string `json:"trader"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// withdrawRequest is the JSON request body for withdrawals. Asset selects
// which side of the pair to withdraw: "base" or "quote".
type withdrawRequest struct {
	Trader string `json:"trader"`
	Asset  string `json:"asset"`
}

// withdrawResponse is the JSON response for a successful withdrawal.
type withdrawResponse struct {
	Trader string `json:"trader"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// Balance handles GET /pairs/{base}/{quote}/traders/{trader}/balance.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	trader := chi.URLParam(r, "trader")
	bal := h.accountSvc.Balance(pairIDFromURL(r), trader)
	WriteJSON(w, http.StatusOK, balanceResponse{
		Trader: trader,
		Base:   strconv.FormatUint(bal.Base, 10),
		Quote:  strconv.FormatUint(bal.Quote, 10),
	})
}

// Withdraw handles POST /pairs/{base}/{quote}/withdrawals.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.withdraw(w, r, false)
}

// WithdrawFees handles POST /pairs/{base}/{quote}/fees/withdrawals.
func (h *AccountHandler) WithdrawFees(w http.ResponseWriter, r *http.Request) {
	h.withdraw(w, r, true)
}

func (h *AccountHandler) withdraw(w http.ResponseWriter, r *http.Request, fees bool) {
	var req withdrawRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Asset != "base" && req.Asset != "quote" {
		WriteError(w, http.StatusBadRequest, "validation_error", `asset must be "base" or "quote"`)
		return
	}
	isBase := req.Asset == "base"

	var amount uint64
	var err error
	if fees {
		amount, err = h.accountSvc.WithdrawFees(pairIDFromURL(r), req.Trader, isBase)
	} else {
		amount, err = h.accountSvc.Withdraw(pairIDFromURL(r), req.Trader, isBase)
	}
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, withdrawResponse{
		Trader: req.Trader,
		Asset:  req.Asset,
		Amount: strconv.FormatUint(amount, 10),
	})
}
