package domain

import (
	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// Account holds the balances of a single client.
// Total is always Available + Held. Once locked, an account never accepts another mutation.
type Account struct {
	ID        ClientID
	available decimal.Decimal
	held      decimal.Decimal
	total     decimal.Decimal
	locked    bool
}

// NewAccount creates an unlocked account with zero balance.
func NewAccount(id ClientID) *Account {
	return &Account{
		ID:        id,
		available: decimal.Zero,
		held:      decimal.Zero,
		total:     decimal.Zero,
	}
}

func (a *Account) Available() decimal.Decimal { return a.available }
func (a *Account) Held() decimal.Decimal      { return a.held }
func (a *Account) Total() decimal.Decimal     { return a.total }
func (a *Account) IsLocked() bool             { return a.locked }

// Add credits available funds.
func (a *Account) Add(amount decimal.Decimal) error {
	if a.locked {
		return ErrLocked
	}
	a.available = a.available.Add(amount)
	a.total = a.total.Add(amount)
	return nil
}

// Remove debits available funds.
func (a *Account) Remove(amount decimal.Decimal) error {
	if a.locked {
		return ErrLocked
	}
	if amount.GreaterThan(a.available) {
		return &InsufficientFundsError{Balance: a.available}
	}
	a.available = a.available.Sub(amount)
	a.total = a.total.Sub(amount)
	return nil
}

// Hold moves funds from available to held.
func (a *Account) Hold(amount decimal.Decimal) error {
	if a.locked {
		return ErrLocked
	}
	if amount.GreaterThan(a.available) {
		return &InsufficientFundsError{Balance: a.available}
	}
	a.available = a.available.Sub(amount)
	a.held = a.held.Add(amount)
	return nil
}

// Release moves funds from held back to available.
func (a *Account) Release(amount decimal.Decimal) error {
	if a.locked {
		return ErrLocked
	}
	if amount.GreaterThan(a.held) {
		return &InsufficientFundsError{Balance: a.held}
	}
	a.held = a.held.Sub(amount)
	a.available = a.available.Add(amount)
	return nil
}

// Lock freezes the account for the rest of the run. There is no unlock.
func (a *Account) Lock() {
	a.locked = true
}

// Snapshot returns a value copy of the account state.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Client:    a.ID,
		Available: a.available,
		Held:      a.held,
		Total:     a.total,
		Locked:    a.locked,
	}
}

// AccountSnapshot is the exported, immutable view of an account at the end of a batch.
type AccountSnapshot struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// CheckInvariants verifies the balance invariants of the snapshot.
func (s AccountSnapshot) CheckInvariants() error {
	if s.Available.IsNegative() {
		return invariantf("client %d: negative available balance %s", s.Client, s.Available)
	}
	if s.Held.IsNegative() {
		return invariantf("client %d: negative held balance %s", s.Client, s.Held)
	}
	if !s.Total.Equal(s.Available.Add(s.Held)) {
		return invariantf("client %d: total %s != available %s + held %s", s.Client, s.Total, s.Available, s.Held)
	}
	return nil
}
