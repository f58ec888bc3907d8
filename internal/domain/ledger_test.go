package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedger_AccountFor(t *testing.T) {
	l := NewLedger()

	if _, ok := l.Account(1); ok {
		t.Fatal("expected no account before first use")
	}

	acc := l.AccountFor(1)
	if acc == nil || acc.ID != 1 {
		t.Fatalf("expected account 1, got %+v", acc)
	}
	if err := acc.Add(decimal.NewFromInt(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again := l.AccountFor(1)
	if again != acc {
		t.Fatal("expected the same account on second lookup")
	}

	found, ok := l.Account(1)
	if !ok || found != acc {
		t.Fatal("expected Account to return the created account")
	}
}

func TestLedger_HistoryRecordRefusesDuplicates(t *testing.T) {
	l := NewLedger()

	first, _ := NewHistoryEntry(NewDeposit(1, 10, decimal.NewFromInt(5)))
	if err := l.HistoryRecord(10, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Dispute = DisputeStateDisputed

	second, _ := NewHistoryEntry(NewWithdrawal(2, 10, decimal.NewFromInt(1)))
	if err := l.HistoryRecord(10, second); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}

	got, ok := l.HistoryGet(10)
	if !ok {
		t.Fatal("expected entry for tx 10")
	}
	if got != first || got.Client != 1 || got.Dispute != DisputeStateDisputed {
		t.Fatalf("original entry must be untouched, got %+v", got)
	}
	if l.HistoryLen() != 1 {
		t.Fatalf("expected 1 history entry, got %d", l.HistoryLen())
	}
}

func TestLedger_SnapshotsSortedByClient(t *testing.T) {
	l := NewLedger()
	for _, id := range []ClientID{9, 2, 5, 1} {
		l.AccountFor(id)
	}

	snaps := l.Snapshots()
	want := []ClientID{1, 2, 5, 9}
	if len(snaps) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(snaps))
	}
	for i, id := range want {
		if snaps[i].Client != id {
			t.Fatalf("position %d: expected client %d, got %d", i, id, snaps[i].Client)
		}
	}
}

func TestLedger_EachHistoryOrdered(t *testing.T) {
	l := NewLedger()
	for _, tx := range []TxID{30, 10, 20} {
		entry, _ := NewHistoryEntry(NewDeposit(1, tx, decimal.NewFromInt(1)))
		if err := l.HistoryRecord(tx, entry); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var seen []TxID
	l.EachHistory(func(e *HistoryEntry) { seen = append(seen, e.TxID) })

	if len(seen) != 3 || seen[0] != 10 || seen[1] != 20 || seen[2] != 30 {
		t.Fatalf("expected ascending order, got %v", seen)
	}
}
