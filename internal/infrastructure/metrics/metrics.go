package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Record metrics
	RecordsProcessed *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	RowsSkipped      *prometheus.CounterVec
	DuplicateTxIDs   prometheus.Counter

	// Dispute metrics
	DisputeTransitions *prometheus.CounterVec

	// Account metrics
	AccountsTotal  prometheus.Gauge
	AccountsLocked prometheus.Gauge
	HistoryEntries prometheus.Gauge

	// Batch metrics
	BatchDuration prometheus.Histogram
	BatchFailures *prometheus.CounterVec

	// Snapshot export metrics
	SnapshotWrites   *prometheus.CounterVec
	SnapshotDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Record metrics
		RecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_records_processed_total",
				Help: "Total input records applied to the ledger by type",
			},
			[]string{"type"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_records_rejected_total",
				Help: "Total input records dropped by type and reason",
			},
			[]string{"type", "reason"},
		),
		RowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_rows_skipped_total",
				Help: "Total input rows that could not be decoded",
			},
			[]string{"reason"},
		),
		DuplicateTxIDs: factory.NewCounter(prometheus.CounterOpts{
			Name: "txledger_duplicate_tx_ids_total",
			Help: "Total deposits/withdrawals whose tx id was already recorded",
		}),

		// Dispute metrics
		DisputeTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_dispute_transitions_total",
				Help: "Total dispute state transitions by root type and target state",
			},
			[]string{"root", "state"},
		),

		// Account metrics
		AccountsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_accounts",
			Help: "Number of accounts at the end of the batch",
		}),
		AccountsLocked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_accounts_locked",
			Help: "Number of locked accounts at the end of the batch",
		}),
		HistoryEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_history_entries",
			Help: "Number of disputable transactions recorded",
		}),

		// Batch metrics
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txledger_batch_duration_seconds",
			Help:    "Duration of a full batch run",
			Buckets: prometheus.DefBuckets,
		}),
		BatchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_batch_failures_total",
				Help: "Total aborted batches by cause",
			},
			[]string{"cause"},
		),

		// Snapshot export metrics
		SnapshotWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_snapshot_writes_total",
				Help: "Total snapshot exports by sink and status",
			},
			[]string{"sink", "status"},
		),
		SnapshotDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txledger_snapshot_duration_seconds",
				Help:    "Snapshot export duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
	}
}

// WriteTextfile writes the gathered metrics in text exposition format to path.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
