/*
Package bulk processes multi-row payment submissions: N muzakki rows,
each with up to six independent (category x rice-or-money) cells, all
sharing one receipt number.

A submission is not stored as a first-class aggregate. It exists as its
constituent income inserts (note-tagged with the receipt number) plus
one log row, and is reconstructed from those for reprinting.
*/
package bulk

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT TYPES
// =============================================================================

// Row is one muzakki line of the bulk input table. nil cells mean "not
// filled". MuzakkiID may be nil when the donor was created inline and
// has no id yet; such rows are skipped with an error, never inserted.
type Row struct {
	MuzakkiID   *string
	MuzakkiNama string

	ZakatFitrahBeras *decimal.Decimal
	ZakatFitrahUang  *int64

	ZakatMaalBeras *decimal.Decimal
	ZakatMaalUang  *int64

	InfakBeras *decimal.Decimal
	InfakUang  *int64
}

// Meta is the submission envelope shared by all rows.
type Meta struct {
	OperatorID   string
	TahunZakatID string
	ReceiptNo    string
	RowLimit     int // max rows per receipt; 0 = unlimited
}

// =============================================================================
// RESULT
// =============================================================================

// Result reports one submission. Success reflects insert-level errors
// only; snapshot and batch-log failures never flip it.
type Result struct {
	Success   bool
	ReceiptNo string
	Rows      []Row // echoed input, for receipt rendering
	Errors    []string
}

// =============================================================================
// SUBMISSION LOG
// =============================================================================

// Log is the single record written per submit call, after all row
// processing completes, success or partial failure alike.
type Log struct {
	ID           string
	OperatorID   string
	TahunZakatID string
	ReceiptNo    string
	RowCount     int
	CreatedAt    time.Time
}

// LogStore persists submission logs. ReceiptNo is unique.
type LogStore interface {
	InsertLog(ctx context.Context, l Log) error
	GetLogByReceiptNo(ctx context.Context, receiptNo string) (*Log, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrRowLimitExceeded aborts a submission before anything is written.
var ErrRowLimitExceeded = errors.New("bulk submission exceeds row limit")
