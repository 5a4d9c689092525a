/*
snapshot.go - The accrual snapshot engine

PURPOSE:
  Persists exactly one immutable accrual record per qualifying income
  transaction. Snapshots are never updated or deleted by normal flow:
  they are the audit trail that survives config changes in later years.

IDEMPOTENCE:
  A (source type, source id) pair is snapshotted at most once. The pair
  is validated against the store before insert; a duplicate is a logic
  error in the caller and is rejected with ErrSnapshotExists rather than
  silently producing two snapshots with different totals.

FAILURE SEMANTICS:
  Snapshot creation is a best-effort downstream projection of the income
  insert that triggered it. Callers (bulk processor, single-entry
  service) log engine errors on an operational channel and never fail
  the primary transaction retroactively.
*/
package hakamil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrSnapshotExists is returned when the (source type, source id) pair
// already has a snapshot.
var ErrSnapshotExists = errors.New("source transaction already has a snapshot")

// =============================================================================
// SNAPSHOT RECORD
// =============================================================================

// SourceType identifies which table a snapshot's source row lives in.
type SourceType string

const (
	SourcePemasukanUang  SourceType = "pemasukan_uang"
	SourcePemasukanBeras SourceType = "pemasukan_beras"
	SourceRekonsiliasi   SourceType = "rekonsiliasi"
)

// Snapshot is one frozen accrual record, 1:1 with its source row.
type Snapshot struct {
	ID           string
	TahunZakatID string
	Kategori     Category
	Tanggal      time.Time
	BasisMode    BasisMode

	TotalBruto        decimal.Decimal
	TotalRekonsiliasi decimal.Decimal
	TotalNeto         decimal.Decimal
	BasisNominal      decimal.Decimal
	Persen            decimal.Decimal
	NominalHakAmil    decimal.Decimal

	SourceType SourceType
	SourceID   string
	Catatan    string
	CreatedBy  string
	CreatedAt  time.Time
}

// SnapshotStore persists snapshots. Insert-only by contract.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, s Snapshot) error
	GetSnapshotBySource(ctx context.Context, sourceType SourceType, sourceID string) (*Snapshot, error)

	// ListSnapshots returns a year's snapshots, optionally bounded by
	// [from, to] on Tanggal (zero times mean unbounded).
	ListSnapshots(ctx context.Context, tahunZakatID string, from, to time.Time) ([]Snapshot, error)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine creates accrual snapshots.
type Engine struct {
	store SnapshotStore
	now   func() time.Time
}

func NewEngine(store SnapshotStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// CreateSnapshotInput is one snapshot request. Basis is the batch's
// resolved basis (fetched once per operation, see basis.go).
type CreateSnapshotInput struct {
	TahunZakatID   string
	Kategori       Category
	Tanggal        time.Time
	Gross          decimal.Decimal
	Reconciliation decimal.Decimal
	Basis          ResolvedBasis
	SourceType     SourceType
	SourceID       string
	Catatan        string
	CreatedBy      string
}

// CreateSnapshot computes the breakdown and inserts one snapshot row.
// No other state is touched.
func (e *Engine) CreateSnapshot(ctx context.Context, in CreateSnapshotInput) (*Snapshot, error) {
	existing, err := e.store.GetSnapshotBySource(ctx, in.SourceType, in.SourceID)
	if err != nil {
		return nil, fmt.Errorf("check snapshot source: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s/%s: %w", in.SourceType, in.SourceID, ErrSnapshotExists)
	}

	persen := in.Basis.PercentFor(in.Kategori)
	b := BuildBreakdown(BreakdownInput{
		Category:       in.Kategori,
		Gross:          in.Gross,
		Reconciliation: in.Reconciliation,
		BasisMode:      in.Basis.Mode,
		Percent:        &persen,
	})

	snap := Snapshot{
		ID:                uuid.NewString(),
		TahunZakatID:      in.TahunZakatID,
		Kategori:          b.Category,
		Tanggal:           in.Tanggal,
		BasisMode:         b.BasisMode,
		TotalBruto:        b.Bruto,
		TotalRekonsiliasi: b.Rekonsiliasi,
		TotalNeto:         b.Neto,
		BasisNominal:      b.BasisNominal,
		Persen:            b.Persen,
		NominalHakAmil:    b.Nominal,
		SourceType:        in.SourceType,
		SourceID:          in.SourceID,
		Catatan:           in.Catatan,
		CreatedBy:         in.CreatedBy,
		CreatedAt:         e.now(),
	}

	if err := e.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return &snap, nil
}
