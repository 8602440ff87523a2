package service

import (
	"regexp"

	"github.com/mvance/pairbook/internal/domain"
)

var assetSymbolRegex = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// PairService is the thin lookup-and-forward surface over the pair
// registry.
type PairService struct {
	pairs *domain.PairRegistry
}

// NewPairService creates a new PairService.
func NewPairService(pairs *domain.PairRegistry) *PairService {
	return &PairService{pairs: pairs}
}

// Register validates the asset symbols and registers the pair.
func (s *PairService) Register(base, quote string, feeBps uint64, feeRecipient string) (*domain.Pair, error) {
	if !assetSymbolRegex.MatchString(base) || !assetSymbolRegex.MatchString(quote) {
		return nil, &domain.ValidationError{Message: "asset symbols must be 1-10 uppercase alphanumeric characters"}
	}
	if base == quote {
		return nil, &domain.ValidationError{Message: "base and quote must differ"}
	}
	if !traderIDRegex.MatchString(feeRecipient) {
		return nil, &domain.ValidationError{Message: "fee_recipient must be 1-64 alphanumeric, dash or underscore characters"}
	}
	return s.pairs.Register(base, quote, feeBps, feeRecipient)
}

// Get returns the pair by id.
func (s *PairService) Get(id string) (domain.Pair, error) {
	return s.pairs.Get(id)
}

// List returns all registered pairs.
func (s *PairService) List() []domain.Pair {
	return s.pairs.List()
}

// SetEnabled enables or disables submissions for the pair.
func (s *PairService) SetEnabled(id string, enabled bool) error {
	return s.pairs.SetEnabled(id, enabled)
}
