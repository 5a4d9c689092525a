/*
manager.go - Reconciliation create/delete with ledger pairing

PURPOSE:
  A rekonsiliasi row and its mirror ledger entry must never exist
  independently. Creation runs as a two-step saga: insert the row, then
  append the ledger entry; a ledger failure compensates by deleting the
  row and surfaces the ledger error. Deletion removes the ledger entry
  FIRST, then the row, so an interrupted delete leaves an orphaned
  rekonsiliasi row (inert) rather than an orphaned ledger entry (which
  would corrupt balance history).

ACCOUNT RESOLUTION:
  Money adjustments resolve to the preferred kas/bank account by
  channel, falling back to the default kas account. Rice adjustments
  always land on the operational kas account; rice has no bank
  equivalent. The rice kg amount is converted to a money equivalent with
  the fiscal year's rice valuation purely for ledger bookkeeping.

AUTHORIZATION:
  Admin only, role re-read from the store before each mutation.
*/
package rekonsiliasi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/tahun"
)

// Authorizer performs the fresh per-mutation role check.
type Authorizer interface {
	RequireAdmin(ctx context.Context, operatorID string) error
}

// Manager coordinates rekonsiliasi rows with their ledger mirrors.
type Manager struct {
	store    Store
	ledger   *ledger.Ledger
	accounts *ledger.Registry
	tahun    *tahun.Service
	authz    Authorizer
	now      func() time.Time
}

func NewManager(store Store, l *ledger.Ledger, accounts *ledger.Registry, t *tahun.Service, authz Authorizer) *Manager {
	return &Manager{store: store, ledger: l, accounts: accounts, tahun: t, authz: authz, now: time.Now}
}

// CreateInput is one adjustment request. Jumlah is signed: Rupiah for
// money adjustments, kilograms for rice.
type CreateInput struct {
	TahunZakatID string
	Jenis        Jenis
	Akun         ledger.Channel // money only; ignored for rice
	Jumlah       decimal.Decimal
	Tanggal      time.Time
	Catatan      string
	OperatorID   string
}

// Create inserts the rekonsiliasi row and its mirror ledger entry as an
// atomic pair (compensating saga, not a database transaction).
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Rekonsiliasi, error) {
	if err := m.authz.RequireAdmin(ctx, in.OperatorID); err != nil {
		return nil, err
	}
	if in.Catatan == "" {
		return nil, fmt.Errorf("catatan is required")
	}
	if in.Jumlah.IsZero() {
		return nil, fmt.Errorf("jumlah must not be zero")
	}

	// Resolve the target account. Rice always books against kas.
	preferred := in.Akun
	if in.Jenis == JenisBeras {
		preferred = ledger.ChannelKas
	}
	acct, err := m.accounts.ResolveByChannel(ctx, preferred)
	if err != nil {
		return nil, fmt.Errorf("resolve rekonsiliasi account: %w", err)
	}

	// Ledger money equivalent. Money adjustments use the raw amount;
	// rice is valued with the year's configured rate.
	var amountRp int64
	rec := Rekonsiliasi{
		ID:           uuid.NewString(),
		TahunZakatID: in.TahunZakatID,
		Jenis:        in.Jenis,
		Tanggal:      dateOrToday(in.Tanggal, m.now),
		Catatan:      in.Catatan,
		CreatedBy:    in.OperatorID,
		CreatedAt:    m.now(),
	}
	switch in.Jenis {
	case JenisUang:
		rec.Akun = acct.Channel
		rec.JumlahUangRp = in.Jumlah.Round(0).IntPart()
		amountRp = rec.JumlahUangRp
	case JenisBeras:
		rec.JumlahBerasKg = in.Jumlah
		perKg, err := m.tahun.RiceValuePerKg(ctx, in.TahunZakatID)
		if err != nil {
			return nil, fmt.Errorf("rice valuation: %w", err)
		}
		amountRp = tahun.RiceToRupiah(in.Jumlah, perKg)
	default:
		return nil, fmt.Errorf("unknown jenis %q", in.Jenis)
	}

	saga := ledger.NewSaga(
		ledger.SagaStep{
			Name: "insert rekonsiliasi",
			Perform: func(ctx context.Context) error {
				return m.store.InsertRekonsiliasi(ctx, rec)
			},
			Compensate: func(ctx context.Context) error {
				return m.store.DeleteRekonsiliasi(ctx, rec.ID)
			},
		},
		ledger.SagaStep{
			Name: "append ledger mirror",
			Perform: func(ctx context.Context) error {
				_, err := m.ledger.Append(ctx, ledger.AppendInput{
					AccountID:            acct.ID,
					Type:                 ledger.EntryRekonsiliasi,
					AmountRp:             amountRp,
					EntryDate:            rec.Tanggal,
					Notes:                rec.Catatan,
					ManualRef:            ManualRefPrefix + rec.ID,
					SourceRekonsiliasiID: rec.ID,
					CreatedBy:            in.OperatorID,
				})
				return err
			},
		},
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the mirror ledger entry, then the rekonsiliasi row.
// Finding more than one linked entry is an internal-consistency error.
func (m *Manager) Delete(ctx context.Context, id, operatorID string) error {
	if err := m.authz.RequireAdmin(ctx, operatorID); err != nil {
		return err
	}

	rec, err := m.store.GetRekonsiliasi(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("rekonsiliasi %s not found", id)
	}

	entries, err := m.ledger.EntriesBySource(ctx, id)
	if err != nil {
		return fmt.Errorf("locate ledger mirror: %w", err)
	}
	if len(entries) > 1 {
		return &ledger.MultiplicityError{SourceRekonsiliasiID: id, Count: len(entries)}
	}
	if len(entries) == 1 {
		if err := m.ledger.DeleteBySource(ctx, id); err != nil {
			return fmt.Errorf("delete ledger mirror: %w", err)
		}
	}

	return m.store.DeleteRekonsiliasi(ctx, id)
}

// List returns a year's adjustments, newest first.
func (m *Manager) List(ctx context.Context, tahunZakatID string) ([]Rekonsiliasi, error) {
	return m.store.ListRekonsiliasi(ctx, tahunZakatID)
}

// Summarize totals a year's money and rice adjustments.
func (m *Manager) Summarize(ctx context.Context, tahunZakatID string) (Summary, error) {
	rows, err := m.store.ListRekonsiliasi(ctx, tahunZakatID)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, r := range rows {
		switch r.Jenis {
		case JenisUang:
			s.TotalUangRp += r.JumlahUangRp
		case JenisBeras:
			s.TotalBerasKg = s.TotalBerasKg.Add(r.JumlahBerasKg)
		}
	}
	return s, nil
}

func dateOrToday(t time.Time, now func() time.Time) time.Time {
	if t.IsZero() {
		return now().Truncate(24 * time.Hour)
	}
	return t
}
