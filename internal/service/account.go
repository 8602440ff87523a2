package service

import (
	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/engine"
)

// AccountService exposes trader balances and withdrawals.
type AccountService struct {
	engine *engine.Engine
}

// NewAccountService creates a new AccountService.
func NewAccountService(eng *engine.Engine) *AccountService {
	return &AccountService{engine: eng}
}

// Balance returns the trader's withdrawable credits in the pair.
func (s *AccountService) Balance(pairID, trader string) engine.Balance {
	return s.engine.TraderBalance(pairID, trader)
}

// Withdraw transfers the trader's full credit in one asset of the pair.
func (s *AccountService) Withdraw(pairID, trader string, base bool) (uint64, error) {
	if !traderIDRegex.MatchString(trader) {
		return 0, &domain.ValidationError{Message: "trader must be 1-64 alphanumeric, dash or underscore characters"}
	}
	return s.engine.Withdraw(pairID, trader, base)
}

// WithdrawFees transfers the pair's accumulated fees in one asset to the
// fee recipient.
func (s *AccountService) WithdrawFees(pairID, caller string, base bool) (uint64, error) {
	if !traderIDRegex.MatchString(caller) {
		return 0, &domain.ValidationError{Message: "trader must be 1-64 alphanumeric, dash or underscore characters"}
	}
	return s.engine.WithdrawFees(pairID, caller, base)
}
