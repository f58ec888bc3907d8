package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/txledger/internal/domain"
)

// Column names of the transaction input.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// Amounts may carry at most this many digits on either side of the decimal point.
const maxAmountDigits = 64

var (
	// ErrInvalidHeader is returned when the first row does not name the required columns.
	// It is never skippable: without a header no row can be decoded.
	ErrInvalidHeader = errors.New("invalid csv header")

	// ErrAmountOutOfRange rejects amounts whose magnitude or scale cannot be a real quantity,
	// such as "1e999999999".
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// RowError ties a decode failure to its 1-based input line.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reader decodes transaction records from CSV, one per Next call.
// Columns are located by header name, so their order does not matter and
// dispute rows may leave the amount column out entirely.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{csv: cr}
}

// Next returns the next record, io.EOF after the last one, or a *RowError for a
// row that could not be decoded. Reading may continue after a *RowError.
func (r *Reader) Next(ctx context.Context) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			return domain.Transaction{}, err
		}
	}

	record, err := r.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return domain.Transaction{}, &RowError{
				Line: parseErr.StartLine,
				Err:  fmt.Errorf("%w: %v", domain.ErrMalformedRecord, parseErr.Err),
			}
		}
		return domain.Transaction{}, err
	}

	line, _ := r.csv.FieldPos(0)
	tx, err := r.decode(record)
	if err != nil {
		return domain.Transaction{}, &RowError{Line: line, Err: err}
	}

	return tx, nil
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		// An empty input is an empty batch.
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{ColumnType, ColumnClient, ColumnTx} {
		if _, ok := columns[required]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrInvalidHeader, required)
		}
	}

	r.columns = columns
	return nil
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (r *Reader) decode(record []string) (domain.Transaction, error) {
	txType, err := domain.ParseTransactionType(r.field(record, ColumnType))
	if err != nil {
		return domain.Transaction{}, err
	}

	rawClient := r.field(record, ColumnClient)
	client, err := strconv.ParseUint(rawClient, 10, 16)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: client %q", domain.ErrMalformedRecord, rawClient)
	}

	rawTx := r.field(record, ColumnTx)
	txID, err := strconv.ParseUint(rawTx, 10, 32)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: tx %q", domain.ErrMalformedRecord, rawTx)
	}

	tx := domain.Transaction{
		Type:   txType,
		Client: domain.ClientID(client),
		TxID:   domain.TxID(txID),
	}

	if !txType.HasAmount() {
		return tx, nil
	}

	rawAmount := r.field(record, ColumnAmount)
	if rawAmount == "" {
		return domain.Transaction{}, fmt.Errorf("%w: %s without amount", domain.ErrMalformedRecord, txType)
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: amount %q", domain.ErrMalformedRecord, rawAmount)
	}
	if intDigits := amount.NumDigits() + int(amount.Exponent()); intDigits > maxAmountDigits || -amount.Exponent() > maxAmountDigits {
		return domain.Transaction{}, fmt.Errorf("%w: %w: %s", domain.ErrMalformedRecord, ErrAmountOutOfRange, rawAmount)
	}
	if amount.IsNegative() {
		return domain.Transaction{}, fmt.Errorf("%w: %w: %s", domain.ErrMalformedRecord, domain.ErrInvalidAmount, rawAmount)
	}

	tx.Amount = amount
	return tx, nil
}
