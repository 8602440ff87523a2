// Package ledger defines the external value-transfer collaborator the
// matching engine settles against. The engine only ever issues the two
// transfer calls; how the ledger does its own accounting is out of scope.
package ledger

import (
	"errors"
	"sync"
)

// ErrInsufficientFunds is returned when an account cannot cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient_funds")

// Ledger moves value between trader accounts and the engine's custody.
// TransferIn escrows amount of asset from the trader into custody;
// TransferOut releases custody back to a trader. Either call may fail,
// in which case the engine must abort the whole operation.
type Ledger interface {
	TransferIn(from, asset string, amount uint64) error
	TransferOut(to, asset string, amount uint64) error
}

// InMemory is a Ledger backed by in-process maps, used by tests and the
// demo binary. Accounts are keyed by (account, asset).
type InMemory struct {
	mu       sync.Mutex
	balances map[string]map[string]uint64 // account → asset → amount
	custody  map[string]uint64            // asset → amount held for the engine
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		balances: make(map[string]map[string]uint64),
		custody:  make(map[string]uint64),
	}
}

// Mint credits an account with amount of asset out of thin air. Test and
// bootstrap helper; not part of the Ledger interface.
func (l *InMemory) Mint(account, asset string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, asset, amount)
}

// TransferIn moves amount of asset from the account into custody.
func (l *InMemory) TransferIn(from, asset string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from][asset] < amount {
		return ErrInsufficientFunds
	}
	l.balances[from][asset] -= amount
	l.custody[asset] += amount
	return nil
}

// TransferOut moves amount of asset from custody back to the account.
func (l *InMemory) TransferOut(to, asset string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.custody[asset] < amount {
		return ErrInsufficientFunds
	}
	l.custody[asset] -= amount
	l.credit(to, asset, amount)
	return nil
}

// Balance returns the free (non-custody) balance of an account.
func (l *InMemory) Balance(account, asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account][asset]
}

// Custody returns the total amount of asset held in custody.
func (l *InMemory) Custody(asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.custody[asset]
}

func (l *InMemory) credit(account, asset string, amount uint64) {
	m, ok := l.balances[account]
	if !ok {
		m = make(map[string]uint64)
		l.balances[account] = m
	}
	m[asset] += amount
}
