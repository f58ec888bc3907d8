package usecase

import (
	"context"

	"github.com/iho/txledger/internal/domain"
)

// TransactionSource yields decoded records in input order.
// Next returns io.EOF once the source is exhausted.
type TransactionSource interface {
	Next(ctx context.Context) (domain.Transaction, error)
}

// SnapshotSink receives the final account set once the batch has completed.
type SnapshotSink interface {
	Name() string
	WriteSnapshot(ctx context.Context, runID string, accounts []domain.AccountSnapshot) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
