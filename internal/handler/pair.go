package handler

import (
	"net/http"
	"time"

	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/service"
)

// PairHandler handles HTTP requests for pair administration endpoints.
type PairHandler struct {
	pairSvc *service.PairService
}

// NewPairHandler creates a new PairHandler.
func NewPairHandler(pairSvc *service.PairService) *PairHandler {
	return &PairHandler{pairSvc: pairSvc}
}

// registerPairRequest is the JSON request body for POST /pairs.
type registerPairRequest struct {
	Base         string `json:"base"`
	Quote        string `json:"quote"`
	FeeBps       uint64 `json:"fee_bps"`
	FeeRecipient string `json:"fee_recipient"`
}

// setEnabledRequest is the JSON request body for PATCH /pairs/{base}/{quote}.
type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// pairResponse is the JSON shape of a pair.
type pairResponse struct {
	ID           string `json:"id"`
	Base         string `json:"base"`
	Quote        string `json:"quote"`
	Enabled      bool   `json:"enabled"`
	FeeBps       uint64 `json:"fee_bps"`
	FeeRecipient string `json:"fee_recipient"`
	CreatedAt    string `json:"created_at"`
}

func toPairResponse(p domain.Pair) pairResponse {
	return pairResponse{
		ID:           p.ID,
		Base:         p.Base,
		Quote:        p.Quote,
		Enabled:      p.Enabled,
		FeeBps:       p.FeeBps,
		FeeRecipient: p.FeeRecipient,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339Nano),
	}
}

// Register handles POST /pairs.
func (h *PairHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPairRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := h.pairSvc.Register(req.Base, req.Quote, req.FeeBps, req.FeeRecipient)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toPairResponse(*p))
}

// List handles GET /pairs.
func (h *PairHandler) List(w http.ResponseWriter, r *http.Request) {
	pairs := h.pairSvc.List()
	out := make([]pairResponse, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, toPairResponse(p))
	}
	WriteJSON(w, http.StatusOK, map[string][]pairResponse{"pairs": out})
}

// Get handles GET /pairs/{base}/{quote}.
func (h *PairHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.pairSvc.Get(pairIDFromURL(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPairResponse(p))
}

// SetEnabled handles PATCH /pairs/{base}/{quote}.
func (h *PairHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id := pairIDFromURL(r)
	if err := h.pairSvc.SetEnabled(id, req.Enabled); err != nil {
		WriteDomainError(w, err)
		return
	}
	p, err := h.pairSvc.Get(id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPairResponse(p))
}
