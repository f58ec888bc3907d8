package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func accountWith(available, held string) *Account {
	acc := NewAccount(1)
	acc.available = dec(available)
	acc.held = dec(held)
	acc.total = acc.available.Add(acc.held)
	return acc
}

func assertBalances(t *testing.T, acc *Account, available, held, total string) {
	t.Helper()

	if !acc.Available().Equal(dec(available)) {
		t.Errorf("expected available %s, got %s", available, acc.Available())
	}
	if !acc.Held().Equal(dec(held)) {
		t.Errorf("expected held %s, got %s", held, acc.Held())
	}
	if !acc.Total().Equal(dec(total)) {
		t.Errorf("expected total %s, got %s", total, acc.Total())
	}
	if err := acc.Snapshot().CheckInvariants(); err != nil {
		t.Errorf("invariants broken: %v", err)
	}
}

func TestNewAccount(t *testing.T) {
	acc := NewAccount(7)

	if acc.ID != 7 {
		t.Fatalf("expected id 7, got %d", acc.ID)
	}
	if acc.IsLocked() {
		t.Fatal("new account must not be locked")
	}
	assertBalances(t, acc, "0", "0", "0")
}

func TestAccount_Mutators(t *testing.T) {
	tests := []struct {
		name      string
		available string
		held      string
		op        func(*Account) error
		wantErr   error
		wantAvail string
		wantHeld  string
		wantTotal string
	}{
		{
			name:      "add credits available and total",
			available: "3450.123",
			op:        func(a *Account) error { return a.Add(dec("10.0004")) },
			wantAvail: "3460.1234",
			wantHeld:  "0",
			wantTotal: "3460.1234",
		},
		{
			name:      "remove debits available and total",
			available: "3460.1234",
			op:        func(a *Account) error { return a.Remove(dec("10.0004")) },
			wantAvail: "3450.123",
			wantHeld:  "0",
			wantTotal: "3450.123",
		},
		{
			name:      "remove exact balance",
			available: "5",
			op:        func(a *Account) error { return a.Remove(dec("5")) },
			wantAvail: "0",
			wantHeld:  "0",
			wantTotal: "0",
		},
		{
			name:      "remove more than available",
			available: "5",
			op:        func(a *Account) error { return a.Remove(dec("5.0001")) },
			wantErr:   ErrInsufficientFunds,
			wantAvail: "5",
			wantHeld:  "0",
			wantTotal: "5",
		},
		{
			name:      "hold moves funds to held",
			available: "3450.123",
			op:        func(a *Account) error { return a.Hold(dec("10.003")) },
			wantAvail: "3440.12",
			wantHeld:  "10.003",
			wantTotal: "3450.123",
		},
		{
			name:      "hold more than available",
			available: "3440.12",
			held:      "10.003",
			op:        func(a *Account) error { return a.Hold(dec("4000")) },
			wantErr:   ErrInsufficientFunds,
			wantAvail: "3440.12",
			wantHeld:  "10.003",
			wantTotal: "3450.123",
		},
		{
			name:      "release moves funds back",
			available: "3440.12",
			held:      "10.003",
			op:        func(a *Account) error { return a.Release(dec("5.003")) },
			wantAvail: "3445.123",
			wantHeld:  "5",
			wantTotal: "3450.123",
		},
		{
			name:      "release more than held",
			available: "3440.12",
			held:      "10.003",
			op:        func(a *Account) error { return a.Release(dec("4000")) },
			wantErr:   ErrInsufficientFunds,
			wantAvail: "3440.12",
			wantHeld:  "10.003",
			wantTotal: "3450.123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			held := tt.held
			if held == "" {
				held = "0"
			}
			acc := accountWith(tt.available, held)

			err := tt.op(acc)

			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			assertBalances(t, acc, tt.wantAvail, tt.wantHeld, tt.wantTotal)
		})
	}
}

func TestAccount_InsufficientFundsCarriesBalance(t *testing.T) {
	acc := accountWith("2.5", "1")

	err := acc.Remove(dec("3"))
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Balance.Equal(dec("2.5")) {
		t.Errorf("expected available 2.5 in error, got %s", insufficient.Balance)
	}

	err = acc.Release(dec("3"))
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Balance.Equal(dec("1")) {
		t.Errorf("expected held 1 in error, got %s", insufficient.Balance)
	}
}

func TestAccount_LockedRejectsEverything(t *testing.T) {
	acc := accountWith("100", "20")
	acc.Lock()

	ops := map[string]func(*Account) error{
		"add":     func(a *Account) error { return a.Add(dec("1")) },
		"remove":  func(a *Account) error { return a.Remove(dec("1")) },
		"hold":    func(a *Account) error { return a.Hold(dec("1")) },
		"release": func(a *Account) error { return a.Release(dec("1")) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(acc); !errors.Is(err, ErrLocked) {
				t.Fatalf("expected ErrLocked, got %v", err)
			}
			assertBalances(t, acc, "100", "20", "120")
			if !acc.IsLocked() {
				t.Fatal("account must stay locked")
			}
		})
	}
}

func TestAccountSnapshot_CheckInvariants(t *testing.T) {
	tests := []struct {
		name    string
		snap    AccountSnapshot
		wantErr bool
	}{
		{
			name: "consistent",
			snap: AccountSnapshot{Available: dec("7"), Held: dec("3"), Total: dec("10")},
		},
		{
			name:    "negative available",
			snap:    AccountSnapshot{Available: dec("-1"), Held: dec("1"), Total: dec("0")},
			wantErr: true,
		},
		{
			name:    "negative held",
			snap:    AccountSnapshot{Available: dec("1"), Held: dec("-1"), Total: dec("0")},
			wantErr: true,
		},
		{
			name:    "total drift",
			snap:    AccountSnapshot{Available: dec("1"), Held: dec("1"), Total: dec("3")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.CheckInvariants()
			if tt.wantErr {
				if !IsFatal(err) {
					t.Fatalf("expected ledger invariant error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
