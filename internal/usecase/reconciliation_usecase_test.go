package usecase_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/usecase"
)

func TestReconciliationUseCase_ConsistentLedger(t *testing.T) {
	ledger := domain.NewLedger()
	r := usecase.NewRouter(ledger, zerolog.Nop(), nil)

	applyAll(t, r,
		domain.NewDeposit(1, 1, amt("10")),
		domain.NewDeposit(1, 2, amt("5")),
		domain.NewDispute(1, 2),
		domain.NewDeposit(2, 3, amt("8")),
		domain.NewDispute(2, 3),
		domain.NewChargeback(2, 3),
		domain.NewWithdrawal(3, 4, amt("1")),
	)

	report := usecase.NewReconciliationUseCase(ledger).GenerateReconciliationReport()
	if !report.LedgerConsistent || report.TotalAccounts != 3 || report.ReconciledAccounts != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if err := report.Err(); err != nil {
		t.Fatalf("expected consistent ledger, got %v", err)
	}

	results := usecase.NewReconciliationUseCase(ledger).ReconcileAllAccounts()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Client != 1 || !results[0].DisputedHeld.Equal(amt("5")) || !results[0].IsReconciled {
		t.Fatalf("expected 5 held by open disputes, got %+v", results[0])
	}
	if results[1].ChargedBack != 1 || !results[1].Snapshot.Locked {
		t.Fatalf("expected locked account with one chargeback, got %+v", results[1])
	}
}

func TestReconciliationUseCase_EmptyLedger(t *testing.T) {
	report := usecase.NewReconciliationUseCase(domain.NewLedger()).GenerateReconciliationReport()
	if !report.LedgerConsistent || report.TotalAccounts != 0 || report.Err() != nil {
		t.Fatalf("expected empty consistent report, got %+v", report)
	}
}

func TestReconciliationUseCase_DetectsHeldDrift(t *testing.T) {
	ledger := domain.NewLedger()
	r := usecase.NewRouter(ledger, zerolog.Nop(), nil)
	applyAll(t, r, domain.NewDeposit(1, 1, amt("10")))

	// Mark a dispute without freezing anything.
	entry, _ := ledger.HistoryGet(1)
	entry.Dispute = domain.DisputeStateDisputed

	report := usecase.NewReconciliationUseCase(ledger).GenerateReconciliationReport()
	if !domain.IsFatal(report.Err()) {
		t.Fatalf("expected ledger invariant violation, got %v", report.Err())
	}
	if report.LedgerConsistent || len(report.Discrepancies) != 1 || report.Discrepancies[0].Client != 1 {
		t.Fatalf("expected one discrepancy for client 1, got %+v", report)
	}
}

func TestReconciliationUseCase_DetectsUnlockedChargeback(t *testing.T) {
	ledger := domain.NewLedger()
	r := usecase.NewRouter(ledger, zerolog.Nop(), nil)
	applyAll(t, r, domain.NewDeposit(1, 1, amt("10")))

	entry, _ := ledger.HistoryGet(1)
	entry.Dispute = domain.DisputeStateChargedBack

	if err := usecase.NewReconciliationUseCase(ledger).GenerateReconciliationReport().Err(); !domain.IsFatal(err) {
		t.Fatalf("expected ledger invariant violation, got %v", err)
	}
}
