package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/ledger"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// WriteDomainError maps a domain sentinel or validation error to an HTTP
// status code and writes the standard error body.
func WriteDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", vErr.Message)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPairNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPriceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPairAlreadyExists),
		errors.Is(err, domain.ErrDuplicateOrder),
		errors.Is(err, domain.ErrPairDisabled):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotOrderOwner),
		errors.Is(err, domain.ErrNotFeeRecipient):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrZeroQuantity),
		errors.Is(err, domain.ErrZeroPrice),
		errors.Is(err, domain.ErrBelowMinNotional),
		errors.Is(err, domain.ErrAmountOverflow),
		errors.Is(err, domain.ErrNoBalance):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	}
	WriteError(w, status, err.Error(), err.Error())
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}
