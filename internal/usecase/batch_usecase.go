package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/metrics"
)

// BatchConfig controls how a batch treats undecodable rows.
type BatchConfig struct {
	// SkipMalformedRows drops rows the source could not decode instead of aborting.
	// Rows with an unknown type are always dropped.
	SkipMalformedRows bool
}

// BatchReport summarizes a completed batch.
type BatchReport struct {
	RunID       string
	Records     int
	Applied     int
	Rejected    map[string]int
	SkippedRows int
	Accounts    []domain.AccountSnapshot
	Duration    time.Duration

	Reconciliation *ReconciliationReport
}

// BatchUseCase drives one ordered source through a fresh ledger and hands the
// final account set to the sinks.
type BatchUseCase struct {
	idGen   IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Metrics
	cfg     BatchConfig
}

func NewBatchUseCase(idGen IDGenerator, logger zerolog.Logger, metrics *metrics.Metrics, cfg BatchConfig) *BatchUseCase {
	return &BatchUseCase{
		idGen:   idGen,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Run processes source to exhaustion. Sinks are only written once every record
// has been applied and the ledger has reconciled; an aborted batch writes nothing.
func (uc *BatchUseCase) Run(ctx context.Context, source TransactionSource, sinks ...SnapshotSink) (*BatchReport, error) {
	start := time.Now()
	runID := uc.idGen.Generate()
	log := uc.logger.With().Str("run_id", runID).Logger()

	ledger := domain.NewLedger()
	router := NewRouter(ledger, log, uc.metrics)
	report := &BatchReport{
		RunID:    runID,
		Rejected: make(map[string]int),
	}

	log.Debug().Msg("batch started")

	for {
		tx, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if uc.skippable(err) {
				report.SkippedRows++
				reason := RejectionReason(err)
				log.Warn().Err(err).Str("reason", reason).Msg("input row skipped")
				if uc.metrics != nil {
					uc.metrics.RowsSkipped.WithLabelValues(reason).Inc()
				}
				continue
			}
			return nil, uc.fail(log, "input", fmt.Errorf("read record %d: %w", report.Records+report.SkippedRows+1, err))
		}

		report.Records++
		if err := router.Apply(tx); err != nil {
			if domain.IsFatal(err) {
				return nil, uc.fail(log, ReasonLedgerInvariant, err)
			}
			report.Rejected[RejectionReason(err)]++
			continue
		}
		report.Applied++
	}

	reconciliation := NewReconciliationUseCase(ledger).GenerateReconciliationReport()
	if err := reconciliation.Err(); err != nil {
		return nil, uc.fail(log, "reconciliation", err)
	}
	report.Reconciliation = reconciliation

	report.Accounts = ledger.Snapshots()
	uc.recordGauges(ledger, report.Accounts)

	for _, sink := range sinks {
		if err := uc.writeSnapshot(ctx, sink, runID, report.Accounts); err != nil {
			return nil, uc.fail(log, "sink", err)
		}
	}

	report.Duration = time.Since(start)
	if uc.metrics != nil {
		uc.metrics.BatchDuration.Observe(report.Duration.Seconds())
	}

	log.Info().
		Int("records", report.Records).
		Int("applied", report.Applied).
		Int("skipped_rows", report.SkippedRows).
		Int("accounts", len(report.Accounts)).
		Int("reconciled_accounts", reconciliation.ReconciledAccounts).
		Dur("duration", report.Duration).
		Msg("batch completed")

	return report, nil
}

func (uc *BatchUseCase) skippable(err error) bool {
	if errors.Is(err, domain.ErrInvalidTransactionType) {
		return true
	}
	return uc.cfg.SkipMalformedRows && errors.Is(err, domain.ErrMalformedRecord)
}

func (uc *BatchUseCase) writeSnapshot(ctx context.Context, sink SnapshotSink, runID string, accounts []domain.AccountSnapshot) error {
	start := time.Now()
	err := sink.WriteSnapshot(ctx, runID, accounts)

	if uc.metrics != nil {
		status := SinkStatusSuccess
		if err != nil {
			status = SinkStatusFailure
		}
		uc.metrics.SnapshotWrites.WithLabelValues(sink.Name(), status).Inc()
		uc.metrics.SnapshotDuration.WithLabelValues(sink.Name()).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		return fmt.Errorf("write snapshot to %s: %w", sink.Name(), err)
	}
	return nil
}

func (uc *BatchUseCase) recordGauges(ledger *domain.Ledger, accounts []domain.AccountSnapshot) {
	if uc.metrics == nil {
		return
	}

	locked := 0
	for _, acc := range accounts {
		if acc.Locked {
			locked++
		}
	}
	uc.metrics.AccountsTotal.Set(float64(len(accounts)))
	uc.metrics.AccountsLocked.Set(float64(locked))
	uc.metrics.HistoryEntries.Set(float64(ledger.HistoryLen()))
}

func (uc *BatchUseCase) fail(log zerolog.Logger, cause string, err error) error {
	if uc.metrics != nil {
		uc.metrics.BatchFailures.WithLabelValues(cause).Inc()
	}
	log.Error().Err(err).Str("cause", cause).Msg("batch aborted")
	return err
}
