package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/iho/txledger/internal/domain"
)

// DefaultPrecision is the number of decimal places written for each balance.
const DefaultPrecision = 4

var snapshotHeader = []string{"client", "available", "held", "total", "locked"}

// Writer renders the final account snapshot as CSV, one row per client in
// ascending client order.
type Writer struct {
	w         io.Writer
	precision int32
}

func NewWriter(w io.Writer, precision int) *Writer {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &Writer{w: w, precision: int32(precision)}
}

func (w *Writer) Name() string {
	return "csv"
}

func (w *Writer) WriteSnapshot(ctx context.Context, runID string, accounts []domain.AccountSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := slices.Clone(accounts)
	slices.SortFunc(sorted, func(a, b domain.AccountSnapshot) int {
		return int(a.Client) - int(b.Client)
	})

	cw := csv.NewWriter(w.w)
	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, acc := range sorted {
		row := []string{
			strconv.FormatUint(uint64(acc.Client), 10),
			acc.Available.StringFixed(w.precision),
			acc.Held.StringFixed(w.precision),
			acc.Total.StringFixed(w.precision),
			strconv.FormatBool(acc.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write client %d: %w", acc.Client, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
