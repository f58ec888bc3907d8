package usecase

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/metrics"
)

// Router applies decoded records to a Ledger one at a time, in arrival order.
//
// Every error Apply returns means the record was dropped without effect, except
// errors matching domain.ErrLedgerInvariant, which mean the ledger can no longer be
// trusted and the batch must stop.
type Router struct {
	ledger  *domain.Ledger
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewRouter(ledger *domain.Ledger, logger zerolog.Logger, metrics *metrics.Metrics) *Router {
	return &Router{
		ledger:  ledger,
		logger:  logger,
		metrics: metrics,
	}
}

// Apply dispatches a single record.
func (r *Router) Apply(tx domain.Transaction) error {
	var err error
	switch tx.Type {
	case domain.TransactionTypeDeposit:
		err = r.deposit(tx)
	case domain.TransactionTypeWithdrawal:
		err = r.withdrawal(tx)
	case domain.TransactionTypeDispute:
		err = r.dispute(tx)
	case domain.TransactionTypeResolve:
		err = r.resolve(tx)
	case domain.TransactionTypeChargeback:
		err = r.chargeback(tx)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, tx.Type)
	}

	r.observe(tx, err)
	return err
}

func (r *Router) deposit(tx domain.Transaction) error {
	if err := domain.ValidateAmount(tx.Amount); err != nil {
		return err
	}

	acc := r.ledger.AccountFor(tx.Client)
	if err := acc.Add(tx.Amount); err != nil {
		return fmt.Errorf("deposit %d: %w", tx.TxID, err)
	}

	return r.record(tx)
}

func (r *Router) withdrawal(tx domain.Transaction) error {
	if err := domain.ValidateAmount(tx.Amount); err != nil {
		return err
	}

	acc := r.ledger.AccountFor(tx.Client)
	if err := acc.Remove(tx.Amount); err != nil {
		return fmt.Errorf("withdrawal %d: %w", tx.TxID, err)
	}

	return r.record(tx)
}

// record stores an accepted deposit/withdrawal so it can be disputed later.
// A reused tx id keeps the first entry; the funds already moved stay moved.
func (r *Router) record(tx domain.Transaction) error {
	entry, err := domain.NewHistoryEntry(tx)
	if err != nil {
		return err
	}

	if err := r.ledger.HistoryRecord(tx.TxID, entry); err != nil {
		if !errors.Is(err, domain.ErrDuplicateTransaction) {
			return err
		}
		r.logger.Warn().
			Err(err).
			Str("type", string(tx.Type)).
			Uint16("client", uint16(tx.Client)).
			Uint32("tx", uint32(tx.TxID)).
			Msg("tx id collision, balance applied but not disputable")
		if r.metrics != nil {
			r.metrics.DuplicateTxIDs.Inc()
		}
	}

	return nil
}

// lookup resolves the account and root entry a dispute/resolve/chargeback refers to.
func (r *Router) lookup(tx domain.Transaction) (*domain.Account, *domain.HistoryEntry, error) {
	acc, ok := r.ledger.Account(tx.Client)
	if !ok {
		return nil, nil, fmt.Errorf("%w: client %d has no history", domain.ErrAccountNotFound, tx.Client)
	}

	// A locked account accepts no further dispute workflow input.
	if acc.IsLocked() {
		return nil, nil, fmt.Errorf("%w: client %d", domain.ErrLocked, tx.Client)
	}

	entry, ok := r.ledger.HistoryGet(tx.TxID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: tx %d", domain.ErrTransactionNotFound, tx.TxID)
	}

	if entry.Client != tx.Client {
		return nil, nil, fmt.Errorf("%w: tx %d belongs to client %d, not %d", domain.ErrClientMismatch, tx.TxID, entry.Client, tx.Client)
	}

	if entry.TxID != tx.TxID {
		return nil, nil, fmt.Errorf("%w: history key %d holds tx %d", domain.ErrLedgerInvariant, tx.TxID, entry.TxID)
	}

	return acc, entry, nil
}

func (r *Router) dispute(tx domain.Transaction) error {
	acc, entry, err := r.lookup(tx)
	if err != nil {
		return err
	}

	if err := checkTransition(entry, domain.DisputeStateDisputed); err != nil {
		return err
	}

	switch entry.Type {
	case domain.TransactionTypeDeposit:
		// The client may have spent the money already; then nothing is frozen
		// and the entry stays undisputed.
		if err := acc.Hold(entry.Amount); err != nil {
			return fmt.Errorf("dispute %d: hold %s: %w", tx.TxID, entry.Amount, err)
		}
	case domain.TransactionTypeWithdrawal:
		if err := acc.Add(entry.Amount); err != nil {
			return fmt.Errorf("dispute %d: reverse withdrawal %s: %w", tx.TxID, entry.Amount, err)
		}
		if err := acc.Hold(entry.Amount); err != nil {
			return invariant(tx, "hold after reversing withdrawal", err)
		}
	default:
		return invariant(tx, "root is not a deposit or withdrawal", fmt.Errorf("root type %q", entry.Type))
	}

	return r.transition(tx, entry, domain.DisputeStateDisputed)
}

func (r *Router) resolve(tx domain.Transaction) error {
	acc, entry, err := r.lookup(tx)
	if err != nil {
		return err
	}

	if err := checkTransition(entry, domain.DisputeStateResolved); err != nil {
		return err
	}

	switch entry.Type {
	case domain.TransactionTypeDeposit:
		if err := acc.Release(entry.Amount); err != nil {
			return invariant(tx, "release disputed deposit", err)
		}
	case domain.TransactionTypeWithdrawal:
		// Complete the withdrawal that the dispute provisionally reversed.
		if err := acc.Release(entry.Amount); err != nil {
			return invariant(tx, "release disputed withdrawal", err)
		}
		if err := acc.Remove(entry.Amount); err != nil {
			return invariant(tx, "reapply disputed withdrawal", err)
		}
	default:
		return invariant(tx, "root is not a deposit or withdrawal", fmt.Errorf("root type %q", entry.Type))
	}

	return r.transition(tx, entry, domain.DisputeStateResolved)
}

func (r *Router) chargeback(tx domain.Transaction) error {
	acc, entry, err := r.lookup(tx)
	if err != nil {
		return err
	}

	if err := checkTransition(entry, domain.DisputeStateChargedBack); err != nil {
		return err
	}

	switch entry.Type {
	case domain.TransactionTypeDeposit:
		// The client wins: pull the deposit out for good. A failed reversal is
		// logged and the account is locked regardless.
		if err := acc.Release(entry.Amount); err != nil {
			r.logFailedReversal(tx, "release", err)
		} else if err := acc.Remove(entry.Amount); err != nil {
			r.logFailedReversal(tx, "remove", err)
		}
	case domain.TransactionTypeWithdrawal:
		if err := acc.Release(entry.Amount); err != nil {
			return invariant(tx, "release disputed withdrawal", err)
		}
		if err := acc.Remove(entry.Amount); err != nil {
			return invariant(tx, "reapply disputed withdrawal", err)
		}
	default:
		return invariant(tx, "root is not a deposit or withdrawal", fmt.Errorf("root type %q", entry.Type))
	}

	if err := r.transition(tx, entry, domain.DisputeStateChargedBack); err != nil {
		return err
	}
	acc.Lock()

	r.logger.Info().
		Uint16("client", uint16(tx.Client)).
		Uint32("tx", uint32(tx.TxID)).
		Msg("account locked after chargeback")

	return nil
}

func checkTransition(entry *domain.HistoryEntry, next domain.DisputeState) error {
	if !entry.Dispute.CanTransition(next) {
		return fmt.Errorf("%w: tx %d is %s, cannot become %s", domain.ErrInvalidDisputeTransition, entry.TxID, entry.Dispute, next)
	}
	return nil
}

// transition runs after funds have moved, so a refused transition is corruption.
func (r *Router) transition(tx domain.Transaction, entry *domain.HistoryEntry, next domain.DisputeState) error {
	if err := entry.Transition(next); err != nil {
		return invariant(tx, "dispute state changed during "+string(tx.Type), err)
	}
	if r.metrics != nil {
		r.metrics.DisputeTransitions.WithLabelValues(string(entry.Type), string(next)).Inc()
	}
	return nil
}

func (r *Router) logFailedReversal(tx domain.Transaction, step string, err error) {
	r.logger.Error().
		Err(err).
		Str("step", step).
		Uint16("client", uint16(tx.Client)).
		Uint32("tx", uint32(tx.TxID)).
		Msg("chargeback could not reverse deposit")
}

func (r *Router) observe(tx domain.Transaction, err error) {
	if err == nil {
		r.logger.Debug().Stringer("record", tx).Msg("record applied")
		if r.metrics != nil {
			r.metrics.RecordsProcessed.WithLabelValues(string(tx.Type)).Inc()
		}
		return
	}

	reason := RejectionReason(err)
	if r.metrics != nil {
		r.metrics.RecordsRejected.WithLabelValues(string(tx.Type), reason).Inc()
	}

	if domain.IsFatal(err) {
		r.logger.Error().Err(err).Stringer("record", tx).Msg("ledger invariant violated")
		return
	}

	r.logger.Info().
		Err(err).
		Str("reason", reason).
		Stringer("record", tx).
		Msg("record dropped")
}

func invariant(tx domain.Transaction, what string, err error) error {
	return fmt.Errorf("%w: %s on tx %d for client %d: %v", domain.ErrLedgerInvariant, what, tx.TxID, tx.Client, err)
}

// RejectionReason maps a record error to a short, stable label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrLedgerInvariant):
		return ReasonLedgerInvariant
	case errors.Is(err, domain.ErrLocked):
		return ReasonLocked
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, domain.ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, domain.ErrAccountNotFound):
		return ReasonUnknownAccount
	case errors.Is(err, domain.ErrTransactionNotFound):
		return ReasonUnknownTransaction
	case errors.Is(err, domain.ErrClientMismatch):
		return ReasonClientMismatch
	case errors.Is(err, domain.ErrInvalidDisputeTransition):
		return ReasonIneligibleState
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return ReasonInvalidType
	case errors.Is(err, domain.ErrMalformedRecord):
		return ReasonMalformedRow
	default:
		return ReasonOther
	}
}
