/*
processor.go - The bulk submission state machine

PER INVOCATION:
  AUTHENTICATE -> RESOLVE_BASIS -> (per row: VALIDATE ->
  (per cell: INSERT -> SNAPSHOT)) -> LOG_BATCH -> DONE

FAILURE TAXONOMY (the contract that matters):
  - Fatal: no authenticated operator, row count over the limit. The
    whole batch aborts; nothing is written.
  - Row-level recoverable: validation skips and individual insert
    failures. Recorded as an error string, processing continues. A
    10-row batch with one bad cell in row 3 still commits the rest and
    reports exactly one error. There is NO rollback of committed rows.
  - Best-effort: accrual snapshots and the batch log. Failures go to
    the operational log and never appear in the result's error list.

ORDERING:
  Cells run sequentially, never concurrently, so error attribution
  stays per-row and each snapshot can rely on its insert's durable id.
  There is no cancellation mid-batch; once started a submission runs to
  completion.
*/
package bulk

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/pemasukan"
)

// Processor runs bulk submissions.
type Processor struct {
	auth      *auth.Service
	basis     *hakamil.Resolver
	snapshots *hakamil.Engine
	income    pemasukan.Store
	logs      LogStore
	now       func() time.Time
}

func NewProcessor(a *auth.Service, basis *hakamil.Resolver, snapshots *hakamil.Engine, income pemasukan.Store, logs LogStore) *Processor {
	return &Processor{auth: a, basis: basis, snapshots: snapshots, income: income, logs: logs, now: time.Now}
}

// ReceiptTag is the note shared by every insert of a submission; the
// reprint reconstruction queries both income tables by it.
func ReceiptTag(receiptNo string) string {
	return "Bulk #" + receiptNo
}

// Submit processes all rows and always returns a Result unless the
// batch failed fatally before any write.
func (p *Processor) Submit(ctx context.Context, rows []Row, meta Meta) (*Result, error) {
	// AUTHENTICATE: fatal, nothing written.
	op, err := p.auth.CurrentOperator(ctx, meta.OperatorID)
	if err != nil {
		return nil, err
	}
	if meta.RowLimit > 0 && len(rows) > meta.RowLimit {
		return nil, fmt.Errorf("%d rows, limit %d: %w", len(rows), meta.RowLimit, ErrRowLimitExceeded)
	}

	// RESOLVE_BASIS: one read, held constant for the whole batch even if
	// the config is edited concurrently.
	basis, err := p.basis.Resolve(ctx, meta.TahunZakatID)
	if err != nil {
		return nil, fmt.Errorf("resolve basis: %w", err)
	}

	today := p.now().Truncate(24 * time.Hour)
	catatanRef := ReceiptTag(meta.ReceiptNo)
	var errs []string

	for _, row := range rows {
		// VALIDATE: skips are row-level errors, processing continues.
		if row.MuzakkiID == nil || *row.MuzakkiID == "" {
			errs = append(errs, fmt.Sprintf("Muzakki %q belum memiliki ID — baris dilewati.", row.MuzakkiNama))
			continue
		}
		uangEntries := row.uangEntries()
		berasEntries := row.berasEntries()
		if len(uangEntries) == 0 && len(berasEntries) == 0 {
			errs = append(errs, fmt.Sprintf("Muzakki %q tidak memiliki transaksi — baris dilewati.", row.MuzakkiNama))
			continue
		}

		// INSERT + SNAPSHOT per cell. Each insert failure is caught
		// individually and never stops the remaining cells or rows.
		for _, entry := range uangEntries {
			p.insertUang(ctx, row, entry, meta, today, catatanRef, op.ID, basis, &errs)
		}
		for _, entry := range berasEntries {
			p.insertBeras(ctx, row, entry, meta, today, catatanRef, op.ID, basis, &errs)
		}
	}

	// LOG_BATCH: always attempted, outcome-neutral.
	if err := p.logs.InsertLog(ctx, Log{
		ID:           uuid.NewString(),
		OperatorID:   op.ID,
		TahunZakatID: meta.TahunZakatID,
		ReceiptNo:    meta.ReceiptNo,
		RowCount:     len(rows),
		CreatedAt:    p.now(),
	}); err != nil {
		log.Printf("[bulk] failed to log submission %s: %v", meta.ReceiptNo, err)
	}

	return &Result{
		Success:   len(errs) == 0,
		ReceiptNo: meta.ReceiptNo,
		Rows:      rows,
		Errors:    errs,
	}, nil
}

func (p *Processor) insertUang(ctx context.Context, row Row, entry uangEntry, meta Meta,
	today time.Time, catatanRef, operatorID string, basis hakamil.ResolvedBasis, errs *[]string) {

	income := pemasukan.PemasukanUang{
		ID:           uuid.NewString(),
		TahunZakatID: meta.TahunZakatID,
		MuzakkiID:    *row.MuzakkiID,
		Kategori:     entry.kategori,
		Akun:         "kas",
		JumlahUangRp: entry.jumlah,
		Tanggal:      today,
		Catatan:      catatanRef,
		CreatedBy:    operatorID,
		CreatedAt:    p.now(),
	}
	if err := p.income.InsertUang(ctx, income); err != nil {
		*errs = append(*errs, fmt.Sprintf("Muzakki %q — %s: %v", row.MuzakkiNama, entry.kategori, err))
		return
	}

	p.snapshotBestEffort(ctx, string(entry.kategori), hakamil.SourcePemasukanUang, income.ID,
		meta.TahunZakatID, decimal.NewFromInt(entry.jumlah), today, catatanRef, operatorID, basis)
}

func (p *Processor) insertBeras(ctx context.Context, row Row, entry berasEntry, meta Meta,
	today time.Time, catatanRef, operatorID string, basis hakamil.ResolvedBasis, errs *[]string) {

	income := pemasukan.PemasukanBeras{
		ID:            uuid.NewString(),
		TahunZakatID:  meta.TahunZakatID,
		MuzakkiID:     *row.MuzakkiID,
		Kategori:      entry.kategori,
		JumlahBerasKg: entry.jumlah,
		Tanggal:       today,
		Catatan:       catatanRef,
		CreatedBy:     operatorID,
		CreatedAt:     p.now(),
	}
	if err := p.income.InsertBeras(ctx, income); err != nil {
		*errs = append(*errs, fmt.Sprintf("Muzakki %q — %s: %v", row.MuzakkiNama, entry.kategori, err))
		return
	}

	p.snapshotBestEffort(ctx, string(entry.kategori), hakamil.SourcePemasukanBeras, income.ID,
		meta.TahunZakatID, entry.jumlah, today, catatanRef, operatorID, basis)
}

// snapshotBestEffort swallows engine errors into the operational log.
// Snapshot failure never retroactively fails the income insert.
func (p *Processor) snapshotBestEffort(ctx context.Context, kategori string, srcType hakamil.SourceType,
	srcID, tahunZakatID string, gross decimal.Decimal, tanggal time.Time, catatan, operatorID string,
	basis hakamil.ResolvedBasis) {

	cat, ok := hakamil.MapKategori(kategori)
	if !ok {
		return
	}
	if _, err := p.snapshots.CreateSnapshot(ctx, hakamil.CreateSnapshotInput{
		TahunZakatID:   tahunZakatID,
		Kategori:       cat,
		Tanggal:        tanggal,
		Gross:          gross,
		Reconciliation: decimal.Zero,
		Basis:          basis,
		SourceType:     srcType,
		SourceID:       srcID,
		Catatan:        catatan,
		CreatedBy:      operatorID,
	}); err != nil {
		log.Printf("[bulk] snapshot for %s/%s failed: %v", srcType, srcID, err)
	}
}

// =============================================================================
// ROW EXPANSION - 6 nullable cells -> 0..6 independent inserts
// =============================================================================

type uangEntry struct {
	kategori pemasukan.KategoriUang
	jumlah   int64
}

type berasEntry struct {
	kategori pemasukan.KategoriBeras
	jumlah   decimal.Decimal
}

func (r Row) uangEntries() []uangEntry {
	var entries []uangEntry
	if r.ZakatFitrahUang != nil && *r.ZakatFitrahUang > 0 {
		entries = append(entries, uangEntry{pemasukan.ZakatFitrahUang, *r.ZakatFitrahUang})
	}
	if r.ZakatMaalUang != nil && *r.ZakatMaalUang > 0 {
		entries = append(entries, uangEntry{pemasukan.MaalPenghasilanUang, *r.ZakatMaalUang})
	}
	if r.InfakUang != nil && *r.InfakUang > 0 {
		entries = append(entries, uangEntry{pemasukan.InfakSedekahUang, *r.InfakUang})
	}
	return entries
}

func (r Row) berasEntries() []berasEntry {
	var entries []berasEntry
	if r.ZakatFitrahBeras != nil && r.ZakatFitrahBeras.IsPositive() {
		entries = append(entries, berasEntry{pemasukan.ZakatFitrahBeras, *r.ZakatFitrahBeras})
	}
	if r.ZakatMaalBeras != nil && r.ZakatMaalBeras.IsPositive() {
		entries = append(entries, berasEntry{pemasukan.MaalBeras, *r.ZakatMaalBeras})
	}
	if r.InfakBeras != nil && r.InfakBeras.IsPositive() {
		entries = append(entries, berasEntry{pemasukan.InfakSedekahBeras, *r.InfakBeras})
	}
	return entries
}
