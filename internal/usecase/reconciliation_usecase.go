package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/txledger/internal/domain"
)

// ReconciliationUseCase audits a ledger after the last record has been applied.
type ReconciliationUseCase struct {
	ledger *domain.Ledger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledger *domain.Ledger) *ReconciliationUseCase {
	return &ReconciliationUseCase{ledger: ledger}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	Client       domain.ClientID
	Snapshot     domain.AccountSnapshot
	DisputedHeld decimal.Decimal
	ChargedBack  int
	IsReconciled bool
	Problem      error
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	LedgerConsistent   bool
	CheckedAt          time.Time
}

type disputeTally struct {
	held        decimal.Decimal
	chargedBack int
}

func (uc *ReconciliationUseCase) tally() map[domain.ClientID]*disputeTally {
	tallies := make(map[domain.ClientID]*disputeTally)
	uc.ledger.EachHistory(func(e *domain.HistoryEntry) {
		t, ok := tallies[e.Client]
		if !ok {
			t = &disputeTally{held: decimal.Zero}
			tallies[e.Client] = t
		}
		switch e.Dispute {
		case domain.DisputeStateDisputed:
			t.held = t.held.Add(e.Amount)
		case domain.DisputeStateChargedBack:
			t.chargedBack++
		}
	})
	return tallies
}

func reconcile(snap domain.AccountSnapshot, t *disputeTally) *ReconciliationResult {
	result := &ReconciliationResult{
		Client:       snap.Client,
		Snapshot:     snap,
		DisputedHeld: decimal.Zero,
	}
	if t != nil {
		result.DisputedHeld = t.held
		result.ChargedBack = t.chargedBack
	}

	invariantErr := snap.CheckInvariants()
	switch {
	case invariantErr != nil:
		result.Problem = invariantErr
	case !snap.Held.Equal(result.DisputedHeld):
		// Every held unit belongs to exactly one open dispute.
		result.Problem = fmt.Errorf("%w: client %d holds %s but open disputes total %s",
			domain.ErrLedgerInvariant, snap.Client, snap.Held, result.DisputedHeld)
	case result.ChargedBack > 0 && !snap.Locked:
		result.Problem = fmt.Errorf("%w: client %d has %d chargebacks but is not locked",
			domain.ErrLedgerInvariant, snap.Client, result.ChargedBack)
	}

	result.IsReconciled = result.Problem == nil
	return result
}

// ReconcileAllAccounts reconciles every account in ascending client order.
func (uc *ReconciliationUseCase) ReconcileAllAccounts() []*ReconciliationResult {
	tallies := uc.tally()
	snaps := uc.ledger.Snapshots()

	results := make([]*ReconciliationResult, 0, len(snaps))
	for _, snap := range snaps {
		results = append(results, reconcile(snap, tallies[snap.Client]))
	}

	return results
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport() *ReconciliationReport {
	results := uc.ReconcileAllAccounts()

	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: true,
		CheckedAt:        time.Now().UTC(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.LedgerConsistent = false
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report
}

// Err returns the first discrepancy, or nil when every account reconciled.
func (r *ReconciliationReport) Err() error {
	if len(r.Discrepancies) == 0 {
		return nil
	}
	return r.Discrepancies[0].Problem
}
