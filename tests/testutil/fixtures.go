package testutil

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txledger/internal/adapter/csvio"
	"github.com/iho/txledger/internal/infrastructure/idgen"
	"github.com/iho/txledger/internal/usecase"
)

// Header is the input header every fixture starts with.
const Header = "type,client,tx,amount"

// Row is one decoded line of snapshot output.
type Row struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// CSV joins rows under the input header.
func CSV(rows ...string) string {
	return Header + "\n" + strings.Join(rows, "\n") + "\n"
}

// WriteCSV writes rows under the input header to a temporary file and returns its path.
func WriteCSV(t *testing.T, rows ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "transactions.csv")
	if err := os.WriteFile(path, []byte(CSV(rows...)), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// Replay runs rows through a full batch and returns the CSV snapshot it wrote.
func Replay(t *testing.T, cfg usecase.BatchConfig, rows ...string) (string, *usecase.BatchReport, error) {
	t.Helper()

	var out bytes.Buffer
	uc := usecase.NewBatchUseCase(idgen.NewRunIDGenerator(), zerolog.Nop(), nil, cfg)
	report, err := uc.Run(context.Background(),
		csvio.NewReader(strings.NewReader(CSV(rows...))),
		csvio.NewWriter(&out, csvio.DefaultPrecision),
	)
	return out.String(), report, err
}

// ParseSnapshot decodes snapshot CSV output keyed by client id.
func ParseSnapshot(t *testing.T, output string) map[uint16]Row {
	t.Helper()

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse snapshot: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("snapshot has no header")
	}

	rows := make(map[uint16]Row, len(records)-1)
	for _, rec := range records[1:] {
		client, err := strconv.ParseUint(rec[0], 10, 16)
		if err != nil {
			t.Fatalf("bad client %q: %v", rec[0], err)
		}
		locked, err := strconv.ParseBool(rec[4])
		if err != nil {
			t.Fatalf("bad locked %q: %v", rec[4], err)
		}
		rows[uint16(client)] = Row{
			Client:    uint16(client),
			Available: decimal.RequireFromString(rec[1]),
			Held:      decimal.RequireFromString(rec[2]),
			Total:     decimal.RequireFromString(rec[3]),
			Locked:    locked,
		}
	}
	return rows
}

// AssertRow fails the test unless the client's balances match.
func AssertRow(t *testing.T, rows map[uint16]Row, client uint16, available, held, total string, locked bool) {
	t.Helper()

	row, ok := rows[client]
	if !ok {
		t.Fatalf("client %d missing from snapshot", client)
	}
	if !row.Available.Equal(decimal.RequireFromString(available)) ||
		!row.Held.Equal(decimal.RequireFromString(held)) ||
		!row.Total.Equal(decimal.RequireFromString(total)) ||
		row.Locked != locked {
		t.Fatalf("client %d: expected %s/%s/%s locked=%v, got %s/%s/%s locked=%v",
			client, available, held, total, locked,
			row.Available, row.Held, row.Total, row.Locked)
	}
}
