package rekonsiliasi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/ledger/store"
	"github.com/baitulmaal/zakat-engine/rekonsiliasi"
	"github.com/baitulmaal/zakat-engine/tahun"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	ctx     context.Context
	mem     *store.Memory
	books   *ledger.Ledger
	manager *rekonsiliasi.Manager
	kas     *ledger.Account
	adminID string
	staffID string
	yearID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWrapped(t, func(s ledger.Store) ledger.Store { return s })
}

// newFixtureWrapped lets a test wrap the ledger's backing store (for
// write-failure injection) while everything else stays on memory.
func newFixtureWrapped(t *testing.T, wrap func(ledger.Store) ledger.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	books := ledger.New(wrap(mem))
	accounts := ledger.NewRegistry(mem)
	years := tahun.NewService(mem)
	authz := auth.NewService(mem)
	manager := rekonsiliasi.NewManager(mem, books, accounts, years, authz)

	kas, err := accounts.Create(ctx, ledger.CreateAccountInput{Name: "Kas Utama", Channel: ledger.ChannelKas})
	require.NoError(t, err)

	adminHash, err := auth.HashPassword("rahasia")
	require.NoError(t, err)
	require.NoError(t, mem.InsertOperator(ctx, auth.Operator{
		ID: "op-admin", Username: "admin", Role: auth.RoleAdmin, HashedPassword: adminHash,
	}))
	require.NoError(t, mem.InsertOperator(ctx, auth.Operator{
		ID: "op-staff", Username: "staff", Role: auth.RolePetugas, HashedPassword: adminHash,
	}))

	require.NoError(t, mem.InsertTahun(ctx, tahun.TahunZakat{
		ID:                "1448h",
		TahunHijriah:      "1448 H",
		TahunMasehi:       2026,
		NilaiBerasPerKgRp: 15000,
		NilaiZakatUangRp:  45000,
		Active:            true,
	}))

	return &fixture{
		ctx:     ctx,
		mem:     mem,
		books:   books,
		manager: manager,
		kas:     kas,
		adminID: "op-admin",
		staffID: "op-staff",
		yearID:  "1448h",
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestManager_Create_PairsRowWithLedgerMirror(t *testing.T) {
	// GIVEN: An admin operator and a kas account
	// WHEN: Recording a -50000 money adjustment
	// THEN: One rekonsiliasi row and exactly one linked ledger entry exist,
	//       sharing the derived manual reference

	f := newFixture(t)

	rec, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Akun:         ledger.ChannelKas,
		Jumlah:       decimal.NewFromInt(-50000),
		Catatan:      "selisih kas harian",
		OperatorID:   f.adminID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-50000), rec.JumlahUangRp)
	assert.Equal(t, ledger.ChannelKas, rec.Akun)

	entries, err := f.books.EntriesBySource(f.ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	mirror := entries[0]
	assert.Equal(t, ledger.EntryRekonsiliasi, mirror.Type)
	assert.Equal(t, rekonsiliasi.ManualRefPrefix+rec.ID, mirror.ManualRef)
	assert.Equal(t, int64(-50000), mirror.SignedAmount())
	assert.Equal(t, "selisih kas harian", mirror.Notes)

	balance, err := f.books.LastKnownBalance(f.ctx, f.kas.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-50000), balance)
}

func TestManager_Create_RiceValuedWithYearRate(t *testing.T) {
	// GIVEN: A year valuing rice at 15000/kg
	// WHEN: Recording a +2.5 kg rice adjustment
	// THEN: The row keeps kilograms; the ledger mirror books 37500 on kas

	f := newFixture(t)

	rec, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisBeras,
		Akun:         ledger.ChannelBank, // ignored for rice
		Jumlah:       decimal.RequireFromString("2.5"),
		Catatan:      "stok beras lebih",
		OperatorID:   f.adminID,
	})
	require.NoError(t, err)
	assert.True(t, rec.JumlahBerasKg.Equal(decimal.RequireFromString("2.5")))
	assert.Zero(t, rec.JumlahUangRp)

	entries, err := f.books.EntriesBySource(f.ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.kas.ID, entries[0].AccountID, "rice books against kas")
	assert.Equal(t, int64(37500), entries[0].SignedAmount())
}

func TestManager_Create_NonAdminRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.NewFromInt(1000),
		Catatan:      "x",
		OperatorID:   f.staffID,
	})
	assert.ErrorIs(t, err, auth.ErrAdminRequired)

	rows, err := f.manager.List(f.ctx, f.yearID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestManager_Create_RequiresCatatanAndNonZeroJumlah(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.NewFromInt(1000),
		OperatorID:   f.adminID,
	})
	assert.Error(t, err, "catatan is mandatory")

	_, err = f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.Zero,
		Catatan:      "nol",
		OperatorID:   f.adminID,
	})
	assert.Error(t, err, "zero adjustments are meaningless")
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

func TestManager_Create_LedgerFailureCompensatesRow(t *testing.T) {
	// GIVEN: A ledger store whose inserts fail
	// WHEN: Creating an adjustment
	// THEN: The ledger error surfaces and the rekonsiliasi row is rolled
	//       back, leaving no half-written pair

	boom := errors.New("disk full")
	f := newFixtureWrapped(t, func(s ledger.Store) ledger.Store {
		return &failingEntryStore{Store: s, insertErr: boom}
	})

	_, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.NewFromInt(10000),
		Catatan:      "gagal tulis",
		OperatorID:   f.adminID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	rows, err := f.manager.List(f.ctx, f.yearID)
	require.NoError(t, err)
	assert.Empty(t, rows, "compensation removed the inserted row")
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestManager_Delete_RemovesMirrorThenRow(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.NewFromInt(20000),
		Catatan:      "koreksi",
		OperatorID:   f.adminID,
	})
	require.NoError(t, err)

	require.NoError(t, f.manager.Delete(f.ctx, rec.ID, f.adminID))

	entries, err := f.books.EntriesBySource(f.ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	rows, err := f.manager.List(f.ctx, f.yearID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestManager_Delete_NonAdminRejected(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.NewFromInt(20000),
		Catatan:      "koreksi",
		OperatorID:   f.adminID,
	})
	require.NoError(t, err)

	err = f.manager.Delete(f.ctx, rec.ID, f.staffID)
	assert.ErrorIs(t, err, auth.ErrAdminRequired)

	rows, err := f.manager.List(f.ctx, f.yearID)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "nothing was deleted")
}

func TestManager_Delete_MultipleMirrorsIsConsistencyError(t *testing.T) {
	// GIVEN: A rekonsiliasi whose source id is linked to two ledger
	//        entries (a corrupted state written behind the manager's back)
	// WHEN: Deleting it
	// THEN: The delete refuses with a multiplicity error and touches nothing

	f := newFixture(t)

	rec, err := f.manager.Create(f.ctx, rekonsiliasi.CreateInput{
		TahunZakatID: f.yearID,
		Jenis:        rekonsiliasi.JenisUang,
		Jumlah:       decimal.NewFromInt(5000),
		Catatan:      "koreksi",
		OperatorID:   f.adminID,
	})
	require.NoError(t, err)

	// Forge a second linked entry directly in the store, below the
	// ledger's duplicate-source validation.
	require.NoError(t, f.mem.InsertEntry(f.ctx, ledger.Entry{
		ID:                   "forged",
		AccountID:            f.kas.ID,
		Type:                 ledger.EntryRekonsiliasi,
		AmountRp:             5000,
		SourceRekonsiliasiID: rec.ID,
		EffectiveAt:          time.Now(),
	}))

	err = f.manager.Delete(f.ctx, rec.ID, f.adminID)
	require.Error(t, err)
	var multiplicity *ledger.MultiplicityError
	require.ErrorAs(t, err, &multiplicity)
	assert.Equal(t, rec.ID, multiplicity.SourceRekonsiliasiID)
	assert.Equal(t, 2, multiplicity.Count)

	rows, err := f.manager.List(f.ctx, f.yearID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestManager_Summarize_SplitsMoneyAndRice(t *testing.T) {
	f := newFixture(t)

	adjustments := []rekonsiliasi.CreateInput{
		{Jenis: rekonsiliasi.JenisUang, Jumlah: decimal.NewFromInt(10000), Catatan: "a"},
		{Jenis: rekonsiliasi.JenisUang, Jumlah: decimal.NewFromInt(-4000), Catatan: "b"},
		{Jenis: rekonsiliasi.JenisBeras, Jumlah: decimal.RequireFromString("1.5"), Catatan: "c"},
		{Jenis: rekonsiliasi.JenisBeras, Jumlah: decimal.RequireFromString("-0.5"), Catatan: "d"},
	}
	for _, in := range adjustments {
		in.TahunZakatID = f.yearID
		in.OperatorID = f.adminID
		_, err := f.manager.Create(f.ctx, in)
		require.NoError(t, err)
	}

	sum, err := f.manager.Summarize(f.ctx, f.yearID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), sum.TotalUangRp)
	assert.True(t, sum.TotalBerasKg.Equal(decimal.RequireFromString("1")))
}
