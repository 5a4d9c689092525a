/*
service.go - Single-entry income recording

PURPOSE:
  Records one money or rice income row and triggers its hak amil
  snapshot. This is the counter-clerk flow; the bulk processor handles
  multi-row receipts with its own partial-failure semantics.

LEDGER PAIRING:
  Money income lands on the account ledger: every pemasukan_uang row
  gets a paired IN entry on the kas/bank account resolved from the
  requested channel. The pair is written as a compensating saga; a
  ledger failure deletes the income row and surfaces the ledger error.
  Rice income has no ledger pairing. The ledger tracks money, and rice
  stock enters it only through rekonsiliasi valuation.

SNAPSHOT SEMANTICS:
  The snapshot is a best-effort downstream projection: its failure is
  logged on the operational channel and never fails the income insert
  that triggered it. The basis is resolved once per call and held
  constant even if the year's config is edited concurrently.
*/
package pemasukan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
)

// Service records single income entries.
type Service struct {
	store    Store
	muzakki  MuzakkiStore
	basis    *hakamil.Resolver
	snapshot *hakamil.Engine
	books    *ledger.Ledger
	accounts *ledger.Registry
	now      func() time.Time
}

func NewService(store Store, muzakki MuzakkiStore, basis *hakamil.Resolver, snapshot *hakamil.Engine,
	books *ledger.Ledger, accounts *ledger.Registry) *Service {
	return &Service{
		store:    store,
		muzakki:  muzakki,
		basis:    basis,
		snapshot: snapshot,
		books:    books,
		accounts: accounts,
		now:      time.Now,
	}
}

// RecordUangInput is one money-income request.
type RecordUangInput struct {
	TahunZakatID string
	MuzakkiID    string
	Kategori     KategoriUang
	Akun         ledger.Channel // empty = kas
	JumlahUangRp int64
	Tanggal      time.Time
	Catatan      string
	CreatedBy    string
}

// RecordUang inserts one money row with its paired ledger IN entry,
// then snapshots the accrual.
func (s *Service) RecordUang(ctx context.Context, in RecordUangInput) (*PemasukanUang, error) {
	if in.JumlahUangRp <= 0 {
		return nil, fmt.Errorf("jumlah uang must be greater than zero")
	}
	if err := s.requireMuzakki(ctx, in.MuzakkiID); err != nil {
		return nil, err
	}

	basis, err := s.basis.Resolve(ctx, in.TahunZakatID)
	if err != nil {
		return nil, fmt.Errorf("resolve basis: %w", err)
	}

	preferred := in.Akun
	if preferred == "" {
		preferred = ledger.ChannelKas
	}
	acct, err := s.accounts.ResolveByChannel(ctx, preferred)
	if err != nil {
		return nil, fmt.Errorf("resolve income account: %w", err)
	}

	row := PemasukanUang{
		ID:           uuid.NewString(),
		TahunZakatID: in.TahunZakatID,
		MuzakkiID:    in.MuzakkiID,
		Kategori:     in.Kategori,
		Akun:         string(acct.Channel),
		JumlahUangRp: in.JumlahUangRp,
		Tanggal:      dateOrToday(in.Tanggal, s.now),
		Catatan:      in.Catatan,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    s.now(),
	}

	saga := ledger.NewSaga(
		ledger.SagaStep{
			Name: "insert pemasukan uang",
			Perform: func(ctx context.Context) error {
				return s.store.InsertUang(ctx, row)
			},
			Compensate: func(ctx context.Context) error {
				return s.store.DeleteUang(ctx, row.ID)
			},
		},
		ledger.SagaStep{
			Name: "append ledger entry",
			Perform: func(ctx context.Context) error {
				_, err := s.books.Append(ctx, ledger.AppendInput{
					AccountID:   acct.ID,
					Type:        ledger.EntryIn,
					AmountRp:    row.JumlahUangRp,
					EntryDate:   row.Tanggal,
					Notes:       row.Catatan,
					ReferenceNo: row.ID,
					CreatedBy:   row.CreatedBy,
				})
				return err
			},
		},
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	s.snapshotBestEffort(ctx, string(row.Kategori), hakamil.SourcePemasukanUang, row.ID,
		in.TahunZakatID, decimal.NewFromInt(row.JumlahUangRp), row.Tanggal, row.Catatan, row.CreatedBy, basis)
	return &row, nil
}

// RecordBerasInput is one rice-income request.
type RecordBerasInput struct {
	TahunZakatID  string
	MuzakkiID     string
	Kategori      KategoriBeras
	JumlahBerasKg decimal.Decimal
	Tanggal       time.Time
	Catatan       string
	CreatedBy     string
}

// RecordBeras inserts one rice row and snapshots its accrual. Rice
// stays out of the money ledger; see the package doc block.
func (s *Service) RecordBeras(ctx context.Context, in RecordBerasInput) (*PemasukanBeras, error) {
	if !in.JumlahBerasKg.IsPositive() {
		return nil, fmt.Errorf("jumlah beras must be greater than zero")
	}
	if err := s.requireMuzakki(ctx, in.MuzakkiID); err != nil {
		return nil, err
	}

	basis, err := s.basis.Resolve(ctx, in.TahunZakatID)
	if err != nil {
		return nil, fmt.Errorf("resolve basis: %w", err)
	}

	row := PemasukanBeras{
		ID:            uuid.NewString(),
		TahunZakatID:  in.TahunZakatID,
		MuzakkiID:     in.MuzakkiID,
		Kategori:      in.Kategori,
		JumlahBerasKg: in.JumlahBerasKg,
		Tanggal:       dateOrToday(in.Tanggal, s.now),
		Catatan:       in.Catatan,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     s.now(),
	}
	if err := s.store.InsertBeras(ctx, row); err != nil {
		return nil, fmt.Errorf("insert pemasukan beras: %w", err)
	}

	s.snapshotBestEffort(ctx, string(row.Kategori), hakamil.SourcePemasukanBeras, row.ID,
		in.TahunZakatID, row.JumlahBerasKg, row.Tanggal, row.Catatan, row.CreatedBy, basis)
	return &row, nil
}

func (s *Service) requireMuzakki(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("muzakki id is required")
	}
	m, err := s.muzakki.GetMuzakki(ctx, id)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("muzakki %s not found", id)
	}
	return nil
}

func (s *Service) snapshotBestEffort(ctx context.Context, kategori string, srcType hakamil.SourceType, srcID,
	tahunZakatID string, gross decimal.Decimal, tanggal time.Time, catatan, createdBy string, basis hakamil.ResolvedBasis) {

	cat, ok := hakamil.MapKategori(kategori)
	if !ok {
		return // category earns no accrual
	}
	_, err := s.snapshot.CreateSnapshot(ctx, hakamil.CreateSnapshotInput{
		TahunZakatID:   tahunZakatID,
		Kategori:       cat,
		Tanggal:        tanggal,
		Gross:          gross,
		Reconciliation: decimal.Zero,
		Basis:          basis,
		SourceType:     srcType,
		SourceID:       srcID,
		Catatan:        catatan,
		CreatedBy:      createdBy,
	})
	if err != nil {
		log.Printf("[hakamil] snapshot for %s/%s failed: %v", srcType, srcID, err)
	}
}

func dateOrToday(t time.Time, now func() time.Time) time.Time {
	if t.IsZero() {
		return now().Truncate(24 * time.Hour)
	}
	return t
}
