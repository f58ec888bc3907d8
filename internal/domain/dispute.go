package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DisputeState string

const (
	DisputeStateNone        DisputeState = "none"
	DisputeStateDisputed    DisputeState = "disputed"
	DisputeStateResolved    DisputeState = "resolved"
	DisputeStateChargedBack DisputeState = "charged_back"
)

// IsTerminal reports whether no further dispute workflow is legal from this state.
func (s DisputeState) IsTerminal() bool {
	return s == DisputeStateResolved || s == DisputeStateChargedBack
}

// CanTransition reports whether next is a legal successor of s.
func (s DisputeState) CanTransition(next DisputeState) bool {
	switch s {
	case DisputeStateNone:
		return next == DisputeStateDisputed
	case DisputeStateDisputed:
		return next == DisputeStateResolved || next == DisputeStateChargedBack
	default:
		return false
	}
}

// HistoryEntry is the disputable record of an accepted deposit or withdrawal.
type HistoryEntry struct {
	Type    TransactionType
	Client  ClientID
	TxID    TxID
	Amount  decimal.Decimal
	Dispute DisputeState
}

// NewHistoryEntry builds an entry for an accepted deposit or withdrawal.
func NewHistoryEntry(tx Transaction) (*HistoryEntry, error) {
	if !tx.Type.HasAmount() {
		return nil, invariantf("tx %d: %s cannot be recorded in history", tx.TxID, tx.Type)
	}
	return &HistoryEntry{
		Type:    tx.Type,
		Client:  tx.Client,
		TxID:    tx.TxID,
		Amount:  tx.Amount,
		Dispute: DisputeStateNone,
	}, nil
}

// Transition moves the entry to next, refusing illegal moves.
func (e *HistoryEntry) Transition(next DisputeState) error {
	if !e.Dispute.CanTransition(next) {
		return fmt.Errorf("%w: tx %d from %s to %s", ErrInvalidDisputeTransition, e.TxID, e.Dispute, next)
	}
	e.Dispute = next
	return nil
}
