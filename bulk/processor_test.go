package bulk_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/bulk"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger/store"
	"github.com/baitulmaal/zakat-engine/pemasukan"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	ctx       context.Context
	mem       *store.Memory
	processor *bulk.Processor
	reprints  *bulk.Reconstructor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithIncome(t, nil)
}

// newFixtureWithIncome lets a test wrap the income store for insert
// failure injection. nil wraps nothing.
func newFixtureWithIncome(t *testing.T, wrap func(pemasukan.Store) pemasukan.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	var income pemasukan.Store = mem
	if wrap != nil {
		income = wrap(mem)
	}

	a := auth.NewService(mem)
	resolver := hakamil.NewResolver(mem)
	engine := hakamil.NewEngine(mem)
	processor := bulk.NewProcessor(a, resolver, engine, income, mem)
	reprints := bulk.NewReconstructor(mem, mem, mem)

	hash, err := auth.HashPassword("rahasia")
	require.NoError(t, err)
	require.NoError(t, mem.InsertOperator(ctx, auth.Operator{
		ID: "op-1", Username: "kasir", Role: auth.RolePetugas, HashedPassword: hash,
	}))

	for _, m := range []pemasukan.Muzakki{
		{ID: "mz-1", Nama: "Ahmad"},
		{ID: "mz-2", Nama: "Budi"},
		{ID: "mz-3", Nama: "Citra"},
	} {
		require.NoError(t, mem.InsertMuzakki(ctx, m))
	}

	return &fixture{ctx: ctx, mem: mem, processor: processor, reprints: reprints}
}

func meta(receiptNo string) bulk.Meta {
	return bulk.Meta{OperatorID: "op-1", TahunZakatID: "1448h", ReceiptNo: receiptNo}
}

func strPtr(s string) *string { return &s }
func intPtr(v int64) *int64   { return &v }
func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestProcessor_Submit_TwoRows_InsertsAndSnapshotsAndLogs(t *testing.T) {
	// GIVEN: Two valid rows, one money cell and one rice cell
	// WHEN: Submitting the batch
	// THEN: Both income rows are tagged with the receipt, snapshots exist
	//       for both, and one log row records the batch

	f := newFixture(t)

	rows := []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), MuzakkiNama: "Ahmad", ZakatFitrahUang: intPtr(45000)},
		{MuzakkiID: strPtr("mz-2"), MuzakkiNama: "Budi", ZakatFitrahBeras: decPtr("2.5")},
	}
	res, err := f.processor.Submit(f.ctx, rows, meta("R-001"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "R-001", res.ReceiptNo)

	tag := bulk.ReceiptTag("R-001")
	uang, err := f.mem.ListUangByCatatan(f.ctx, "1448h", tag)
	require.NoError(t, err)
	require.Len(t, uang, 1)
	assert.Equal(t, "mz-1", uang[0].MuzakkiID)
	assert.Equal(t, int64(45000), uang[0].JumlahUangRp)
	assert.Equal(t, pemasukan.ZakatFitrahUang, uang[0].Kategori)

	beras, err := f.mem.ListBerasByCatatan(f.ctx, "1448h", tag)
	require.NoError(t, err)
	require.Len(t, beras, 1)
	assert.True(t, beras[0].JumlahBerasKg.Equal(decimal.RequireFromString("2.5")))

	// Both inserts earned an accrual snapshot.
	snapUang, err := f.mem.GetSnapshotBySource(f.ctx, hakamil.SourcePemasukanUang, uang[0].ID)
	require.NoError(t, err)
	require.NotNil(t, snapUang)
	assert.True(t, snapUang.NominalHakAmil.Equal(decimal.RequireFromString("5625")), "12.5%% of 45000")

	snapBeras, err := f.mem.GetSnapshotBySource(f.ctx, hakamil.SourcePemasukanBeras, beras[0].ID)
	require.NoError(t, err)
	require.NotNil(t, snapBeras)

	logRow, err := f.mem.GetLogByReceiptNo(f.ctx, "R-001")
	require.NoError(t, err)
	require.NotNil(t, logRow)
	assert.Equal(t, 2, logRow.RowCount)
	assert.Equal(t, "op-1", logRow.OperatorID)
}

func TestProcessor_Submit_ExpandsMultiCellRow(t *testing.T) {
	// One row with three filled money cells becomes three income rows.
	f := newFixture(t)

	rows := []bulk.Row{{
		MuzakkiID:       strPtr("mz-1"),
		MuzakkiNama:     "Ahmad",
		ZakatFitrahUang: intPtr(45000),
		ZakatMaalUang:   intPtr(100000),
		InfakUang:       intPtr(20000),
	}}
	res, err := f.processor.Submit(f.ctx, rows, meta("R-002"))
	require.NoError(t, err)
	assert.True(t, res.Success)

	uang, err := f.mem.ListUangByCatatan(f.ctx, "1448h", bulk.ReceiptTag("R-002"))
	require.NoError(t, err)
	assert.Len(t, uang, 3)
}

// =============================================================================
// FATAL FAILURES
// =============================================================================

func TestProcessor_Submit_UnknownOperator_Fatal(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.Submit(f.ctx, []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), ZakatFitrahUang: intPtr(1000)},
	}, bulk.Meta{OperatorID: "ghost", TahunZakatID: "1448h", ReceiptNo: "R-X"})
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	uang, err := f.mem.ListUangByCatatan(f.ctx, "1448h", bulk.ReceiptTag("R-X"))
	require.NoError(t, err)
	assert.Empty(t, uang, "nothing written on fatal failure")
}

func TestProcessor_Submit_RowLimit_Fatal(t *testing.T) {
	f := newFixture(t)

	m := meta("R-limit")
	m.RowLimit = 2
	rows := []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), ZakatFitrahUang: intPtr(1000)},
		{MuzakkiID: strPtr("mz-2"), ZakatFitrahUang: intPtr(1000)},
		{MuzakkiID: strPtr("mz-3"), ZakatFitrahUang: intPtr(1000)},
	}
	_, err := f.processor.Submit(f.ctx, rows, m)
	assert.ErrorIs(t, err, bulk.ErrRowLimitExceeded)

	uang, err := f.mem.ListUangByCatatan(f.ctx, "1448h", bulk.ReceiptTag("R-limit"))
	require.NoError(t, err)
	assert.Empty(t, uang)
}

// =============================================================================
// ROW-LEVEL FAILURES
// =============================================================================

func TestProcessor_Submit_SkipsRowsWithoutIDOrCells(t *testing.T) {
	// GIVEN: One valid row, one row with no muzakki id, one empty row
	// WHEN: Submitting
	// THEN: The valid row commits; the others are reported and skipped

	f := newFixture(t)

	rows := []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), MuzakkiNama: "Ahmad", ZakatFitrahUang: intPtr(45000)},
		{MuzakkiNama: "Tanpa ID", ZakatFitrahUang: intPtr(1000)},
		{MuzakkiID: strPtr("mz-2"), MuzakkiNama: "Budi"},
	}
	res, err := f.processor.Submit(f.ctx, rows, meta("R-skip"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, `Muzakki "Tanpa ID" belum memiliki ID — baris dilewati.`, res.Errors[0])
	assert.Equal(t, `Muzakki "Budi" tidak memiliki transaksi — baris dilewati.`, res.Errors[1])

	uang, err := f.mem.ListUangByCatatan(f.ctx, "1448h", bulk.ReceiptTag("R-skip"))
	require.NoError(t, err)
	assert.Len(t, uang, 1, "the valid row still committed")

	// Partial failure still logs the batch with the full row count.
	logRow, err := f.mem.GetLogByReceiptNo(f.ctx, "R-skip")
	require.NoError(t, err)
	require.NotNil(t, logRow)
	assert.Equal(t, 3, logRow.RowCount)
}

// flakyIncomeStore fails inserts for one specific muzakki.
type flakyIncomeStore struct {
	pemasukan.Store
	failMuzakkiID string
}

func (f *flakyIncomeStore) InsertUang(ctx context.Context, p pemasukan.PemasukanUang) error {
	if p.MuzakkiID == f.failMuzakkiID {
		return fmt.Errorf("constraint violation")
	}
	return f.Store.InsertUang(ctx, p)
}

func TestProcessor_Submit_InsertFailureCommitsOtherRows(t *testing.T) {
	// GIVEN: An income store that rejects row 2's insert
	// WHEN: Submitting three rows
	// THEN: Rows 1 and 3 are persisted, exactly one error is reported,
	//       and no committed row is rolled back

	f := newFixtureWithIncome(t, func(s pemasukan.Store) pemasukan.Store {
		return &flakyIncomeStore{Store: s, failMuzakkiID: "mz-2"}
	})

	rows := []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), MuzakkiNama: "Ahmad", ZakatFitrahUang: intPtr(10000)},
		{MuzakkiID: strPtr("mz-2"), MuzakkiNama: "Budi", ZakatFitrahUang: intPtr(20000)},
		{MuzakkiID: strPtr("mz-3"), MuzakkiNama: "Citra", ZakatFitrahUang: intPtr(30000)},
	}
	res, err := f.processor.Submit(f.ctx, rows, meta("R-partial"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `Muzakki "Budi"`)

	uang, err := f.mem.ListUangByCatatan(f.ctx, "1448h", bulk.ReceiptTag("R-partial"))
	require.NoError(t, err)
	require.Len(t, uang, 2)
	total := uang[0].JumlahUangRp + uang[1].JumlahUangRp
	assert.Equal(t, int64(40000), total)
}

// failingLogStore rejects the batch log write.
type failingLogStore struct {
	*store.Memory
}

func (f *failingLogStore) InsertLog(context.Context, bulk.Log) error {
	return errors.New("log table locked")
}

func TestProcessor_Submit_LogFailureDoesNotFlipResult(t *testing.T) {
	// The batch log is best-effort; its failure never appears in Errors.
	ctx := context.Background()
	mem := store.NewMemory()

	hash, err := auth.HashPassword("x")
	require.NoError(t, err)
	require.NoError(t, mem.InsertOperator(ctx, auth.Operator{
		ID: "op-1", Username: "kasir", Role: auth.RolePetugas, HashedPassword: hash,
	}))
	require.NoError(t, mem.InsertMuzakki(ctx, pemasukan.Muzakki{ID: "mz-1", Nama: "Ahmad"}))

	processor := bulk.NewProcessor(
		auth.NewService(mem), hakamil.NewResolver(mem), hakamil.NewEngine(mem),
		mem, &failingLogStore{Memory: mem},
	)

	res, err := processor.Submit(ctx, []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), MuzakkiNama: "Ahmad", ZakatFitrahUang: intPtr(1000)},
	}, meta("R-nolog"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
}

// =============================================================================
// REPRINT RECONSTRUCTION
// =============================================================================

func TestReconstructor_Reconstruct_RebuildsRowsFromPersistedData(t *testing.T) {
	// GIVEN: A committed two-row submission
	// WHEN: Reconstructing it by receipt number
	// THEN: The rows re-aggregate per muzakki with names resolved and the
	//       batch log attached

	f := newFixture(t)

	rows := []bulk.Row{
		{MuzakkiID: strPtr("mz-1"), MuzakkiNama: "Ahmad", ZakatFitrahUang: intPtr(45000), InfakUang: intPtr(5000)},
		{MuzakkiID: strPtr("mz-2"), MuzakkiNama: "Budi", ZakatFitrahBeras: decPtr("2.5")},
	}
	_, err := f.processor.Submit(f.ctx, rows, meta("R-re"))
	require.NoError(t, err)

	rep, err := f.reprints.Reconstruct(f.ctx, "1448h", "R-re")
	require.NoError(t, err)
	assert.Equal(t, "R-re", rep.ReceiptNo)
	require.NotNil(t, rep.Log)
	assert.Equal(t, 2, rep.Log.RowCount)
	require.Len(t, rep.Rows, 2)

	byID := map[string]bulk.Row{}
	for _, row := range rep.Rows {
		require.NotNil(t, row.MuzakkiID)
		byID[*row.MuzakkiID] = row
	}

	ahmad := byID["mz-1"]
	assert.Equal(t, "Ahmad", ahmad.MuzakkiNama)
	require.NotNil(t, ahmad.ZakatFitrahUang)
	assert.Equal(t, int64(45000), *ahmad.ZakatFitrahUang)
	require.NotNil(t, ahmad.InfakUang)
	assert.Equal(t, int64(5000), *ahmad.InfakUang)

	budi := byID["mz-2"]
	require.NotNil(t, budi.ZakatFitrahBeras)
	assert.True(t, budi.ZakatFitrahBeras.Equal(decimal.RequireFromString("2.5")))
	assert.Nil(t, budi.ZakatFitrahUang)
}

func TestReconstructor_Reconstruct_UnknownReceipt(t *testing.T) {
	f := newFixture(t)

	rep, err := f.reprints.Reconstruct(f.ctx, "1448h", "R-missing")
	require.NoError(t, err)
	assert.Empty(t, rep.Rows)
	assert.Nil(t, rep.Log)
}
