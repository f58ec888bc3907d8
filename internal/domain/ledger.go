package domain

import (
	"fmt"
	"sort"
)

// Ledger owns every account and every recorded deposit/withdrawal of a run.
// Nothing is ever deleted from either map.
type Ledger struct {
	accounts map[ClientID]*Account
	history  map[TxID]*HistoryEntry
}

func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[ClientID]*Account),
		history:  make(map[TxID]*HistoryEntry),
	}
}

// AccountFor returns the client's account, creating an empty one on first use.
func (l *Ledger) AccountFor(client ClientID) *Account {
	acc, ok := l.accounts[client]
	if !ok {
		acc = NewAccount(client)
		l.accounts[client] = acc
	}
	return acc
}

// Account looks up an existing account.
func (l *Ledger) Account(client ClientID) (*Account, bool) {
	acc, ok := l.accounts[client]
	return acc, ok
}

// HistoryGet returns the recorded entry for tx, if any.
func (l *Ledger) HistoryGet(tx TxID) (*HistoryEntry, bool) {
	entry, ok := l.history[tx]
	return entry, ok
}

// HistoryRecord inserts a new entry. An existing entry for tx is never overwritten.
func (l *Ledger) HistoryRecord(tx TxID, entry *HistoryEntry) error {
	if existing, ok := l.history[tx]; ok {
		return fmt.Errorf("%w: tx %d already held by %s for client %d", ErrDuplicateTransaction, tx, existing.Type, existing.Client)
	}
	l.history[tx] = entry
	return nil
}

// HistoryLen returns the number of recorded transactions.
func (l *Ledger) HistoryLen() int {
	return len(l.history)
}

// EachHistory calls fn for every history entry in ascending tx order.
func (l *Ledger) EachHistory(fn func(*HistoryEntry)) {
	ids := make([]TxID, 0, len(l.history))
	for id := range l.history {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(l.history[id])
	}
}

// Snapshots returns every account ordered by ascending client id.
func (l *Ledger) Snapshots() []AccountSnapshot {
	out := make([]AccountSnapshot, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, acc.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}
