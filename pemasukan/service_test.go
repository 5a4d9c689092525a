package pemasukan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/ledger/store"
	"github.com/baitulmaal/zakat-engine/pemasukan"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	ctx   context.Context
	mem   *store.Memory
	svc   *pemasukan.Service
	books *ledger.Ledger
	kas   *ledger.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWrapped(t, func(s ledger.Store) ledger.Store { return s })
}

// newFixtureWrapped lets a test wrap the ledger's backing store (for
// write-failure injection) while the income store stays on memory.
func newFixtureWrapped(t *testing.T, wrap func(ledger.Store) ledger.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	books := ledger.New(wrap(mem))
	accounts := ledger.NewRegistry(mem)
	svc := pemasukan.NewService(mem, mem, hakamil.NewResolver(mem), hakamil.NewEngine(mem), books, accounts)

	kas, err := accounts.Create(ctx, ledger.CreateAccountInput{Name: "Kas Utama", Channel: ledger.ChannelKas})
	require.NoError(t, err)

	require.NoError(t, mem.InsertMuzakki(ctx, pemasukan.Muzakki{
		ID: "mz-1", Nama: "Ahmad",
	}))
	return &fixture{ctx: ctx, mem: mem, svc: svc, books: books, kas: kas}
}

// =============================================================================
// MONEY INCOME TESTS
// =============================================================================

func TestService_RecordUang_InsertsRowAndSnapshot(t *testing.T) {
	// GIVEN: A registered muzakki
	// WHEN: Recording a 45000 fitrah payment
	// THEN: The income row persists and its accrual snapshot is created

	f := newFixture(t)

	row, err := f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h",
		MuzakkiID:    "mz-1",
		Kategori:     pemasukan.ZakatFitrahUang,
		JumlahUangRp: 45000,
		Catatan:      "bayar langsung",
		CreatedBy:    "op-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, "kas", row.Akun)
	assert.False(t, row.Tanggal.IsZero(), "tanggal defaults to today")

	snap, err := f.mem.GetSnapshotBySource(f.ctx, hakamil.SourcePemasukanUang, row.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, hakamil.CategoryZakatFitrah, snap.Kategori)
	assert.True(t, snap.NominalHakAmil.Equal(decimal.RequireFromString("5625")))
}

func TestService_RecordUang_AppendsLedgerEntry(t *testing.T) {
	// GIVEN: An active kas account
	// WHEN: Recording a 45000 money payment
	// THEN: A paired IN entry lands on kas, so the recomputed balance
	//       equals the recorded amount

	f := newFixture(t)

	row, err := f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h",
		MuzakkiID:    "mz-1",
		Kategori:     pemasukan.ZakatFitrahUang,
		JumlahUangRp: 45000,
		CreatedBy:    "op-1",
	})
	require.NoError(t, err)

	balance, err := f.books.RecomputeBalance(f.ctx, f.kas.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), balance)

	entries, total, err := f.books.Entries(f.ctx, f.kas.ID, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, ledger.EntryIn, entries[0].Type)
	assert.Equal(t, row.ID, entries[0].ReferenceNo, "entry references its income row")
}

func TestService_RecordUang_ResolvesRequestedChannel(t *testing.T) {
	// A bank payment lands on the bank account when one exists; kas is
	// only the fallback.

	f := newFixture(t)
	accounts := ledger.NewRegistry(f.mem)
	bank, err := accounts.Create(f.ctx, ledger.CreateAccountInput{Name: "Rekening BSI", Channel: ledger.ChannelBank})
	require.NoError(t, err)

	row, err := f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h",
		MuzakkiID:    "mz-1",
		Kategori:     pemasukan.MaalPenghasilanUang,
		Akun:         ledger.ChannelBank,
		JumlahUangRp: 250000,
		CreatedBy:    "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "bank", row.Akun)

	balance, err := f.books.RecomputeBalance(f.ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), balance)
}

// failingEntryStore rejects ledger inserts while delegating everything
// else to the wrapped store.
type failingEntryStore struct {
	ledger.Store
	insertErr error
}

func (f *failingEntryStore) InsertEntry(context.Context, ledger.Entry) error {
	return f.insertErr
}

func TestService_RecordUang_LedgerFailureCompensatesRow(t *testing.T) {
	// GIVEN: A ledger store whose inserts fail
	// WHEN: Recording a money payment
	// THEN: The ledger error surfaces and the income row is rolled back,
	//       leaving no half-written pair and no snapshot

	boom := errors.New("disk full")
	f := newFixtureWrapped(t, func(s ledger.Store) ledger.Store {
		return &failingEntryStore{Store: s, insertErr: boom}
	})

	_, err := f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h",
		MuzakkiID:    "mz-1",
		Kategori:     pemasukan.ZakatFitrahUang,
		JumlahUangRp: 45000,
		Catatan:      "gagal tulis",
		CreatedBy:    "op-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	rows, err := f.mem.ListUangByCatatan(f.ctx, "1448h", "gagal tulis")
	require.NoError(t, err)
	assert.Empty(t, rows, "income row compensated away")

	snaps, err := f.mem.ListSnapshots(f.ctx, "1448h", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, snaps, "no accrual for a failed record")
}

func TestService_RecordUang_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h", MuzakkiID: "mz-1",
		Kategori: pemasukan.InfakSedekahUang, JumlahUangRp: 0,
	})
	assert.Error(t, err, "zero amount rejected")

	_, err = f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h", MuzakkiID: "",
		Kategori: pemasukan.InfakSedekahUang, JumlahUangRp: 1000,
	})
	assert.Error(t, err, "missing muzakki id rejected")

	_, err = f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h", MuzakkiID: "ghost",
		Kategori: pemasukan.InfakSedekahUang, JumlahUangRp: 1000,
	})
	assert.Error(t, err, "unknown muzakki rejected")
}

// =============================================================================
// RICE INCOME TESTS
// =============================================================================

func TestService_RecordBeras_KeepsKilogramAmounts(t *testing.T) {
	// Rice rows store kilograms as-is; no money conversion happens here.
	f := newFixture(t)

	row, err := f.svc.RecordBeras(f.ctx, pemasukan.RecordBerasInput{
		TahunZakatID:  "1448h",
		MuzakkiID:     "mz-1",
		Kategori:      pemasukan.ZakatFitrahBeras,
		JumlahBerasKg: decimal.RequireFromString("2.5"),
		Tanggal:       time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC),
		CreatedBy:     "op-1",
	})
	require.NoError(t, err)
	assert.True(t, row.JumlahBerasKg.Equal(decimal.RequireFromString("2.5")))

	snap, err := f.mem.GetSnapshotBySource(f.ctx, hakamil.SourcePemasukanBeras, row.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, hakamil.CategoryZakatFitrah, snap.Kategori)
}

func TestService_RecordBeras_StaysOffLedger(t *testing.T) {
	// Rice income never touches the money ledger; its rupiah value only
	// enters through rekonsiliasi.

	f := newFixture(t)

	_, err := f.svc.RecordBeras(f.ctx, pemasukan.RecordBerasInput{
		TahunZakatID:  "1448h",
		MuzakkiID:     "mz-1",
		Kategori:      pemasukan.ZakatFitrahBeras,
		JumlahBerasKg: decimal.NewFromInt(5),
		CreatedBy:     "op-1",
	})
	require.NoError(t, err)

	balance, err := f.books.RecomputeBalance(f.ctx, f.kas.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestService_RecordBeras_RejectsNonPositive(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordBeras(f.ctx, pemasukan.RecordBerasInput{
		TahunZakatID: "1448h", MuzakkiID: "mz-1",
		Kategori: pemasukan.ZakatFitrahBeras, JumlahBerasKg: decimal.Zero,
	})
	assert.Error(t, err)
}

// =============================================================================
// ACCRUAL RATE EDGE CASES
// =============================================================================

func TestService_RecordUang_FidyahSnapshotsAtZeroRate(t *testing.T) {
	// Fidyah is a mapped category with a zero default rate: the snapshot
	// row is still written so the audit trail stays complete.

	f := newFixture(t)

	row, err := f.svc.RecordUang(f.ctx, pemasukan.RecordUangInput{
		TahunZakatID: "1448h",
		MuzakkiID:    "mz-1",
		Kategori:     pemasukan.FidyahUang,
		JumlahUangRp: 30000,
		CreatedBy:    "op-1",
	})
	require.NoError(t, err)

	snap, err := f.mem.GetSnapshotBySource(f.ctx, hakamil.SourcePemasukanUang, row.ID)
	require.NoError(t, err)
	require.NotNil(t, snap, "fidyah is mapped; it snapshots at its configured rate")
	assert.True(t, snap.NominalHakAmil.IsZero(), "default fidyah rate is zero")
}
