/*
Package sqlite provides the SQLite-backed implementation of every
storage port in the system.

PURPOSE:
  One Store satisfies the persistence ports of ledger, rekonsiliasi,
  hakamil, pemasukan, tahun, auth and bulk. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:               Account registry (kas/bank)
  account_ledger_entries: Append-only running-balance ledger
  rekonsiliasi:           Manual adjustments (1:1 mirror in the ledger)
  hak_amil_configs:       Per-year basis mode + percentages
  hak_amil_snapshots:     Immutable accrual records (unique per source)
  pemasukan_uang/_beras:  Income rows
  bulk_submission_logs:   One row per bulk submit (unique receipt no)
  tahun_zakat, muzakki, users: Master data

WRITE DISCIPLINE:
  No UPDATE and no broad DELETE on account_ledger_entries: the single
  delete path is keyed by source_rekonsiliasi_id, mirroring the removal
  of the owning rekonsiliasi row. Snapshots are insert-only and guarded
  by a unique (source_type, source_id) index, so the engine's duplicate
  check holds even under concurrent callers.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging) for better
  concurrency: readers don't block, single writer at a time, better
  crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Ledger port definitions
  - ledger/store/memory.go: In-memory counterpart used in tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/bulk"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/pemasukan"
	"github.com/baitulmaal/zakat-engine/rekonsiliasi"
	"github.com/baitulmaal/zakat-engine/tahun"
)

// Store implements all storage ports over SQLite.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the database at path. Use ":memory:" for an
// in-memory database.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		account_name TEXT NOT NULL,
		account_channel TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS account_ledger_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		entry_type TEXT NOT NULL,
		amount_rp INTEGER NOT NULL,
		running_balance_before_rp INTEGER NOT NULL,
		running_balance_after_rp INTEGER NOT NULL,
		entry_date TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		notes TEXT,
		reference_no TEXT,
		manual_reconciliation_ref TEXT,
		source_rekonsiliasi_id TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: latest-entry lookup per account.
	CREATE INDEX IF NOT EXISTS idx_ledger_account_effective
		ON account_ledger_entries(account_id, effective_at DESC);

	-- Pairing invariant: at most one mirror entry per rekonsiliasi.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_source_rekonsiliasi
		ON account_ledger_entries(source_rekonsiliasi_id)
		WHERE source_rekonsiliasi_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS rekonsiliasi (
		id TEXT PRIMARY KEY,
		tahun_zakat_id TEXT NOT NULL,
		jenis TEXT NOT NULL,
		akun TEXT,
		jumlah_uang_rp INTEGER,
		jumlah_beras_kg TEXT,
		tanggal TEXT NOT NULL,
		catatan TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rekonsiliasi_tahun
		ON rekonsiliasi(tahun_zakat_id);

	CREATE TABLE IF NOT EXISTS hak_amil_configs (
		tahun_zakat_id TEXT PRIMARY KEY,
		basis_mode TEXT NOT NULL,
		persen_zakat_fitrah TEXT NOT NULL,
		persen_zakat_maal TEXT NOT NULL,
		persen_infak TEXT NOT NULL,
		persen_fidyah TEXT NOT NULL,
		persen_beras TEXT NOT NULL,
		updated_by TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hak_amil_snapshots (
		id TEXT PRIMARY KEY,
		tahun_zakat_id TEXT NOT NULL,
		kategori TEXT NOT NULL,
		tanggal TEXT NOT NULL,
		basis_mode TEXT NOT NULL,
		total_bruto TEXT NOT NULL,
		total_rekonsiliasi TEXT NOT NULL,
		total_neto TEXT NOT NULL,
		nominal_basis TEXT NOT NULL,
		persen_hak_amil TEXT NOT NULL,
		nominal_hak_amil TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		catatan TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Accrual idempotence: one snapshot per source transaction.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_source
		ON hak_amil_snapshots(source_type, source_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_tahun_tanggal
		ON hak_amil_snapshots(tahun_zakat_id, tanggal);

	CREATE TABLE IF NOT EXISTS pemasukan_uang (
		id TEXT PRIMARY KEY,
		tahun_zakat_id TEXT NOT NULL,
		muzakki_id TEXT NOT NULL,
		kategori TEXT NOT NULL,
		akun TEXT NOT NULL DEFAULT 'kas',
		jumlah_uang_rp INTEGER NOT NULL,
		tanggal TEXT NOT NULL,
		catatan TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pemasukan_uang_catatan
		ON pemasukan_uang(tahun_zakat_id, catatan);

	CREATE TABLE IF NOT EXISTS pemasukan_beras (
		id TEXT PRIMARY KEY,
		tahun_zakat_id TEXT NOT NULL,
		muzakki_id TEXT NOT NULL,
		kategori TEXT NOT NULL,
		jumlah_beras_kg TEXT NOT NULL,
		tanggal TEXT NOT NULL,
		catatan TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pemasukan_beras_catatan
		ON pemasukan_beras(tahun_zakat_id, catatan);

	CREATE TABLE IF NOT EXISTS muzakki (
		id TEXT PRIMARY KEY,
		nama TEXT NOT NULL,
		alamat TEXT,
		telepon TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tahun_zakat (
		id TEXT PRIMARY KEY,
		tahun_hijriah TEXT NOT NULL,
		tahun_masehi INTEGER NOT NULL,
		nilai_beras_per_kg_rp INTEGER NOT NULL DEFAULT 0,
		nilai_zakat_uang_rp INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		nama_lengkap TEXT NOT NULL,
		role TEXT NOT NULL,
		hashed_password BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bulk_submission_logs (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		tahun_zakat_id TEXT NOT NULL,
		receipt_no TEXT NOT NULL UNIQUE,
		row_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW TYPES
// =============================================================================

type accountRow struct {
	ID           string `db:"id"`
	Name         string `db:"account_name"`
	Channel      string `db:"account_channel"`
	Active       bool   `db:"is_active"`
	MetadataJSON string `db:"metadata_json"`
	SortOrder    int    `db:"sort_order"`
	CreatedBy    string `db:"created_by"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func toAccountRow(a ledger.Account) accountRow {
	meta, _ := json.Marshal(a.Metadata)
	return accountRow{
		ID:           string(a.ID),
		Name:         a.Name,
		Channel:      string(a.Channel),
		Active:       a.Active,
		MetadataJSON: string(meta),
		SortOrder:    a.SortOrder,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    fmtTime(a.CreatedAt),
		UpdatedAt:    fmtTime(a.UpdatedAt),
	}
}

func (r accountRow) toAccount() ledger.Account {
	meta := map[string]string{}
	_ = json.Unmarshal([]byte(r.MetadataJSON), &meta)
	return ledger.Account{
		ID:        ledger.AccountID(r.ID),
		Name:      r.Name,
		Channel:   ledger.Channel(r.Channel),
		Active:    r.Active,
		Metadata:  meta,
		SortOrder: r.SortOrder,
		CreatedBy: r.CreatedBy,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

type entryRow struct {
	ID           string         `db:"id"`
	AccountID    string         `db:"account_id"`
	EntryType    string         `db:"entry_type"`
	AmountRp     int64          `db:"amount_rp"`
	BalancePrior int64          `db:"running_balance_before_rp"`
	BalanceAfter int64          `db:"running_balance_after_rp"`
	EntryDate    string         `db:"entry_date"`
	EffectiveAt  string         `db:"effective_at"`
	Notes        sql.NullString `db:"notes"`
	ReferenceNo  sql.NullString `db:"reference_no"`
	ManualRef    sql.NullString `db:"manual_reconciliation_ref"`
	SourceRekID  sql.NullString `db:"source_rekonsiliasi_id"`
	CreatedBy    sql.NullString `db:"created_by"`
	CreatedAt    string         `db:"created_at"`
}

func toEntryRow(e ledger.Entry) entryRow {
	return entryRow{
		ID:           string(e.ID),
		AccountID:    string(e.AccountID),
		EntryType:    string(e.Type),
		AmountRp:     e.AmountRp,
		BalancePrior: e.RunningBalanceBeforeRp,
		BalanceAfter: e.RunningBalanceAfterRp,
		EntryDate:    fmtDate(e.EntryDate),
		EffectiveAt:  fmtTime(e.EffectiveAt),
		Notes:        nullString(e.Notes),
		ReferenceNo:  nullString(e.ReferenceNo),
		ManualRef:    nullString(e.ManualRef),
		SourceRekID:  nullString(e.SourceRekonsiliasiID),
		CreatedBy:    nullString(e.CreatedBy),
		CreatedAt:    fmtTime(e.CreatedAt),
	}
}

func (r entryRow) toEntry() ledger.Entry {
	return ledger.Entry{
		ID:                     ledger.EntryID(r.ID),
		AccountID:              ledger.AccountID(r.AccountID),
		Type:                   ledger.EntryType(r.EntryType),
		AmountRp:               r.AmountRp,
		RunningBalanceBeforeRp: r.BalancePrior,
		RunningBalanceAfterRp:  r.BalanceAfter,
		EntryDate:              parseTime(r.EntryDate),
		EffectiveAt:            parseTime(r.EffectiveAt),
		Notes:                  r.Notes.String,
		ReferenceNo:            r.ReferenceNo.String,
		ManualRef:              r.ManualRef.String,
		SourceRekonsiliasiID:   r.SourceRekID.String,
		CreatedBy:              r.CreatedBy.String,
		CreatedAt:              parseTime(r.CreatedAt),
	}
}

// =============================================================================
// ledger.AccountStore
// =============================================================================

func (s *Store) InsertAccount(ctx context.Context, a ledger.Account) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO accounts
		(id, account_name, account_channel, is_active, metadata_json, sort_order, created_by, created_at, updated_at)
		VALUES (:id, :account_name, :account_channel, :is_active, :metadata_json, :sort_order, :created_by, :created_at, :updated_at)
	`, toAccountRow(a))
	return err
}

func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE accounts SET
			account_name = :account_name,
			account_channel = :account_channel,
			is_active = :is_active,
			metadata_json = :metadata_json,
			sort_order = :sort_order,
			updated_at = :updated_at
		WHERE id = :id
	`, toAccountRow(a))
	return err
}

func (s *Store) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, string(id))
	return err
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	var r accountRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM accounts WHERE id = ?`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := r.toAccount()
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context, f ledger.AccountFilter) ([]ledger.Account, error) {
	query := `SELECT * FROM accounts WHERE 1=1`
	var args []any
	if f.Active != nil {
		query += ` AND is_active = ?`
		args = append(args, *f.Active)
	}
	if f.Channel != "" {
		query += ` AND account_channel = ?`
		args = append(args, string(f.Channel))
	}
	query += ` ORDER BY sort_order ASC, account_name ASC`

	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]ledger.Account, len(rows))
	for i, r := range rows {
		out[i] = r.toAccount()
	}
	return out, nil
}

func (s *Store) CountEntries(ctx context.Context, id ledger.AccountID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM account_ledger_entries WHERE account_id = ?`, string(id))
	return n, err
}

// =============================================================================
// ledger.EntryStore
// =============================================================================

func (s *Store) InsertEntry(ctx context.Context, e ledger.Entry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO account_ledger_entries
		(id, account_id, entry_type, amount_rp, running_balance_before_rp, running_balance_after_rp,
		 entry_date, effective_at, notes, reference_no, manual_reconciliation_ref, source_rekonsiliasi_id,
		 created_by, created_at)
		VALUES (:id, :account_id, :entry_type, :amount_rp, :running_balance_before_rp, :running_balance_after_rp,
		 :entry_date, :effective_at, :notes, :reference_no, :manual_reconciliation_ref, :source_rekonsiliasi_id,
		 :created_by, :created_at)
	`, toEntryRow(e))
	return err
}

func (s *Store) LatestEntry(ctx context.Context, accountID ledger.AccountID) (*ledger.Entry, error) {
	var r entryRow
	err := s.db.GetContext(ctx, &r, `
		SELECT * FROM account_ledger_entries
		WHERE account_id = ?
		ORDER BY effective_at DESC, created_at DESC
		LIMIT 1
	`, string(accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e := r.toEntry()
	return &e, nil
}

func (s *Store) ListEntries(ctx context.Context, accountID ledger.AccountID, f ledger.EntryFilter) ([]ledger.Entry, int, error) {
	where := ` WHERE account_id = ?`
	args := []any{string(accountID)}
	if f.Type != "" {
		where += ` AND entry_type = ?`
		args = append(args, string(f.Type))
	}
	if !f.DateFrom.IsZero() {
		where += ` AND entry_date >= ?`
		args = append(args, fmtDate(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where += ` AND entry_date <= ?`
		args = append(args, fmtDate(f.DateTo))
	}
	if f.Search != "" {
		where += ` AND (notes LIKE ? OR reference_no LIKE ? OR manual_reconciliation_ref LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM account_ledger_entries`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM account_ledger_entries` + where + ` ORDER BY effective_at DESC, created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, f.Limit, f.Offset)
	}

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	out := make([]ledger.Entry, len(rows))
	for i, r := range rows {
		out[i] = r.toEntry()
	}
	return out, total, nil
}

func (s *Store) EntriesBySource(ctx context.Context, sourceRekonsiliasiID string) ([]ledger.Entry, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM account_ledger_entries WHERE source_rekonsiliasi_id = ?`, sourceRekonsiliasiID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, len(rows))
	for i, r := range rows {
		out[i] = r.toEntry()
	}
	return out, nil
}

func (s *Store) DeleteEntriesBySource(ctx context.Context, sourceRekonsiliasiID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM account_ledger_entries WHERE source_rekonsiliasi_id = ?`, sourceRekonsiliasiID)
	return err
}

func (s *Store) SumEntries(ctx context.Context, accountID ledger.AccountID) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'OUT' THEN -amount_rp ELSE amount_rp END), 0)
		FROM account_ledger_entries WHERE account_id = ?
	`, string(accountID))
	return sum, err
}

func (s *Store) LatestBalances(ctx context.Context) (map[ledger.AccountID]int64, error) {
	type balanceRow struct {
		AccountID string `db:"account_id"`
		Balance   int64  `db:"current_balance"`
	}
	var rows []balanceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id AS account_id,
		       COALESCE((SELECT e.running_balance_after_rp
		                 FROM account_ledger_entries e
		                 WHERE e.account_id = a.id
		                 ORDER BY e.effective_at DESC, e.created_at DESC
		                 LIMIT 1), 0) AS current_balance
		FROM accounts a
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[ledger.AccountID]int64, len(rows))
	for _, r := range rows {
		out[ledger.AccountID(r.AccountID)] = r.Balance
	}
	return out, nil
}

// =============================================================================
// rekonsiliasi.Store
// =============================================================================

type rekonsiliasiRow struct {
	ID           string         `db:"id"`
	TahunZakatID string         `db:"tahun_zakat_id"`
	Jenis        string         `db:"jenis"`
	Akun         sql.NullString `db:"akun"`
	JumlahUangRp sql.NullInt64  `db:"jumlah_uang_rp"`
	JumlahKg     sql.NullString `db:"jumlah_beras_kg"`
	Tanggal      string         `db:"tanggal"`
	Catatan      string         `db:"catatan"`
	CreatedBy    sql.NullString `db:"created_by"`
	CreatedAt    string         `db:"created_at"`
}

func (r rekonsiliasiRow) toRekonsiliasi() rekonsiliasi.Rekonsiliasi {
	out := rekonsiliasi.Rekonsiliasi{
		ID:           r.ID,
		TahunZakatID: r.TahunZakatID,
		Jenis:        rekonsiliasi.Jenis(r.Jenis),
		Akun:         ledger.Channel(r.Akun.String),
		JumlahUangRp: r.JumlahUangRp.Int64,
		Tanggal:      parseTime(r.Tanggal),
		Catatan:      r.Catatan,
		CreatedBy:    r.CreatedBy.String,
		CreatedAt:    parseTime(r.CreatedAt),
	}
	if r.JumlahKg.Valid {
		out.JumlahBerasKg = parseDecimal(r.JumlahKg.String)
	}
	return out
}

func (s *Store) InsertRekonsiliasi(ctx context.Context, r rekonsiliasi.Rekonsiliasi) error {
	row := rekonsiliasiRow{
		ID:           r.ID,
		TahunZakatID: r.TahunZakatID,
		Jenis:        string(r.Jenis),
		Akun:         nullString(string(r.Akun)),
		Tanggal:      fmtDate(r.Tanggal),
		Catatan:      r.Catatan,
		CreatedBy:    nullString(r.CreatedBy),
		CreatedAt:    fmtTime(r.CreatedAt),
	}
	switch r.Jenis {
	case rekonsiliasi.JenisUang:
		row.JumlahUangRp = sql.NullInt64{Int64: r.JumlahUangRp, Valid: true}
	case rekonsiliasi.JenisBeras:
		row.JumlahKg = sql.NullString{String: r.JumlahBerasKg.String(), Valid: true}
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO rekonsiliasi
		(id, tahun_zakat_id, jenis, akun, jumlah_uang_rp, jumlah_beras_kg, tanggal, catatan, created_by, created_at)
		VALUES (:id, :tahun_zakat_id, :jenis, :akun, :jumlah_uang_rp, :jumlah_beras_kg, :tanggal, :catatan, :created_by, :created_at)
	`, row)
	return err
}

func (s *Store) DeleteRekonsiliasi(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rekonsiliasi WHERE id = ?`, id)
	return err
}

func (s *Store) GetRekonsiliasi(ctx context.Context, id string) (*rekonsiliasi.Rekonsiliasi, error) {
	var r rekonsiliasiRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM rekonsiliasi WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := r.toRekonsiliasi()
	return &out, nil
}

func (s *Store) ListRekonsiliasi(ctx context.Context, tahunZakatID string) ([]rekonsiliasi.Rekonsiliasi, error) {
	query := `SELECT * FROM rekonsiliasi`
	var args []any
	if tahunZakatID != "" {
		query += ` WHERE tahun_zakat_id = ?`
		args = append(args, tahunZakatID)
	}
	query += ` ORDER BY tanggal DESC, created_at DESC`

	var rows []rekonsiliasiRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]rekonsiliasi.Rekonsiliasi, len(rows))
	for i, r := range rows {
		out[i] = r.toRekonsiliasi()
	}
	return out, nil
}

// =============================================================================
// hakamil.ConfigStore
// =============================================================================

type configRow struct {
	TahunZakatID      string         `db:"tahun_zakat_id"`
	BasisMode         string         `db:"basis_mode"`
	PersenZakatFitrah string         `db:"persen_zakat_fitrah"`
	PersenZakatMaal   string         `db:"persen_zakat_maal"`
	PersenInfak       string         `db:"persen_infak"`
	PersenFidyah      string         `db:"persen_fidyah"`
	PersenBeras       string         `db:"persen_beras"`
	UpdatedBy         sql.NullString `db:"updated_by"`
	UpdatedAt         string         `db:"updated_at"`
}

func (s *Store) GetConfig(ctx context.Context, tahunZakatID string) (*hakamil.Config, error) {
	var r configRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM hak_amil_configs WHERE tahun_zakat_id = ?`, tahunZakatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hakamil.Config{
		TahunZakatID: r.TahunZakatID,
		BasisMode:    hakamil.BasisMode(r.BasisMode),
		Percent: map[hakamil.Category]decimal.Decimal{
			hakamil.CategoryZakatFitrah: parseDecimal(r.PersenZakatFitrah),
			hakamil.CategoryZakatMaal:   parseDecimal(r.PersenZakatMaal),
			hakamil.CategoryInfak:       parseDecimal(r.PersenInfak),
			hakamil.CategoryFidyah:      parseDecimal(r.PersenFidyah),
			hakamil.CategoryBeras:       parseDecimal(r.PersenBeras),
		},
		UpdatedBy: r.UpdatedBy.String,
		UpdatedAt: parseTime(r.UpdatedAt),
	}, nil
}

func (s *Store) UpsertConfig(ctx context.Context, c hakamil.Config) error {
	percent := func(cat hakamil.Category) string {
		if p, ok := c.Percent[cat]; ok {
			return p.String()
		}
		return hakamil.DefaultPercentages[cat].String()
	}
	row := configRow{
		TahunZakatID:      c.TahunZakatID,
		BasisMode:         string(c.BasisMode),
		PersenZakatFitrah: percent(hakamil.CategoryZakatFitrah),
		PersenZakatMaal:   percent(hakamil.CategoryZakatMaal),
		PersenInfak:       percent(hakamil.CategoryInfak),
		PersenFidyah:      percent(hakamil.CategoryFidyah),
		PersenBeras:       percent(hakamil.CategoryBeras),
		UpdatedBy:         nullString(c.UpdatedBy),
		UpdatedAt:         fmtTime(c.UpdatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hak_amil_configs
		(tahun_zakat_id, basis_mode, persen_zakat_fitrah, persen_zakat_maal, persen_infak, persen_fidyah, persen_beras, updated_by, updated_at)
		VALUES (:tahun_zakat_id, :basis_mode, :persen_zakat_fitrah, :persen_zakat_maal, :persen_infak, :persen_fidyah, :persen_beras, :updated_by, :updated_at)
		ON CONFLICT (tahun_zakat_id) DO UPDATE SET
			basis_mode = excluded.basis_mode,
			persen_zakat_fitrah = excluded.persen_zakat_fitrah,
			persen_zakat_maal = excluded.persen_zakat_maal,
			persen_infak = excluded.persen_infak,
			persen_fidyah = excluded.persen_fidyah,
			persen_beras = excluded.persen_beras,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`, row)
	return err
}

// =============================================================================
// hakamil.SnapshotStore
// =============================================================================

type snapshotRow struct {
	ID                string         `db:"id"`
	TahunZakatID      string         `db:"tahun_zakat_id"`
	Kategori          string         `db:"kategori"`
	Tanggal           string         `db:"tanggal"`
	BasisMode         string         `db:"basis_mode"`
	TotalBruto        string         `db:"total_bruto"`
	TotalRekonsiliasi string         `db:"total_rekonsiliasi"`
	TotalNeto         string         `db:"total_neto"`
	NominalBasis      string         `db:"nominal_basis"`
	PersenHakAmil     string         `db:"persen_hak_amil"`
	NominalHakAmil    string         `db:"nominal_hak_amil"`
	SourceType        string         `db:"source_type"`
	SourceID          string         `db:"source_id"`
	Catatan           sql.NullString `db:"catatan"`
	CreatedBy         sql.NullString `db:"created_by"`
	CreatedAt         string         `db:"created_at"`
}

func (r snapshotRow) toSnapshot() hakamil.Snapshot {
	return hakamil.Snapshot{
		ID:                r.ID,
		TahunZakatID:      r.TahunZakatID,
		Kategori:          hakamil.Category(r.Kategori),
		Tanggal:           parseTime(r.Tanggal),
		BasisMode:         hakamil.BasisMode(r.BasisMode),
		TotalBruto:        parseDecimal(r.TotalBruto),
		TotalRekonsiliasi: parseDecimal(r.TotalRekonsiliasi),
		TotalNeto:         parseDecimal(r.TotalNeto),
		BasisNominal:      parseDecimal(r.NominalBasis),
		Persen:            parseDecimal(r.PersenHakAmil),
		NominalHakAmil:    parseDecimal(r.NominalHakAmil),
		SourceType:        hakamil.SourceType(r.SourceType),
		SourceID:          r.SourceID,
		Catatan:           r.Catatan.String,
		CreatedBy:         r.CreatedBy.String,
		CreatedAt:         parseTime(r.CreatedAt),
	}
}

func (s *Store) InsertSnapshot(ctx context.Context, snap hakamil.Snapshot) error {
	row := snapshotRow{
		ID:                snap.ID,
		TahunZakatID:      snap.TahunZakatID,
		Kategori:          string(snap.Kategori),
		Tanggal:           fmtDate(snap.Tanggal),
		BasisMode:         string(snap.BasisMode),
		TotalBruto:        snap.TotalBruto.String(),
		TotalRekonsiliasi: snap.TotalRekonsiliasi.String(),
		TotalNeto:         snap.TotalNeto.String(),
		NominalBasis:      snap.BasisNominal.String(),
		PersenHakAmil:     snap.Persen.String(),
		NominalHakAmil:    snap.NominalHakAmil.String(),
		SourceType:        string(snap.SourceType),
		SourceID:          snap.SourceID,
		Catatan:           nullString(snap.Catatan),
		CreatedBy:         nullString(snap.CreatedBy),
		CreatedAt:         fmtTime(snap.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hak_amil_snapshots
		(id, tahun_zakat_id, kategori, tanggal, basis_mode, total_bruto, total_rekonsiliasi, total_neto,
		 nominal_basis, persen_hak_amil, nominal_hak_amil, source_type, source_id, catatan, created_by, created_at)
		VALUES (:id, :tahun_zakat_id, :kategori, :tanggal, :basis_mode, :total_bruto, :total_rekonsiliasi, :total_neto,
		 :nominal_basis, :persen_hak_amil, :nominal_hak_amil, :source_type, :source_id, :catatan, :created_by, :created_at)
	`, row)
	return err
}

func (s *Store) GetSnapshotBySource(ctx context.Context, sourceType hakamil.SourceType, sourceID string) (*hakamil.Snapshot, error) {
	var r snapshotRow
	err := s.db.GetContext(ctx, &r,
		`SELECT * FROM hak_amil_snapshots WHERE source_type = ? AND source_id = ?`,
		string(sourceType), sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := r.toSnapshot()
	return &out, nil
}

func (s *Store) ListSnapshots(ctx context.Context, tahunZakatID string, from, to time.Time) ([]hakamil.Snapshot, error) {
	query := `SELECT * FROM hak_amil_snapshots WHERE tahun_zakat_id = ?`
	args := []any{tahunZakatID}
	if !from.IsZero() {
		query += ` AND tanggal >= ?`
		args = append(args, fmtDate(from))
	}
	if !to.IsZero() {
		query += ` AND tanggal <= ?`
		args = append(args, fmtDate(to))
	}
	query += ` ORDER BY tanggal ASC`

	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]hakamil.Snapshot, len(rows))
	for i, r := range rows {
		out[i] = r.toSnapshot()
	}
	return out, nil
}

// =============================================================================
// pemasukan.Store
// =============================================================================

type pemasukanUangRow struct {
	ID           string         `db:"id"`
	TahunZakatID string         `db:"tahun_zakat_id"`
	MuzakkiID    string         `db:"muzakki_id"`
	Kategori     string         `db:"kategori"`
	Akun         string         `db:"akun"`
	JumlahUangRp int64          `db:"jumlah_uang_rp"`
	Tanggal      string         `db:"tanggal"`
	Catatan      sql.NullString `db:"catatan"`
	CreatedBy    sql.NullString `db:"created_by"`
	CreatedAt    string         `db:"created_at"`
}

func (s *Store) InsertUang(ctx context.Context, p pemasukan.PemasukanUang) error {
	row := pemasukanUangRow{
		ID:           p.ID,
		TahunZakatID: p.TahunZakatID,
		MuzakkiID:    p.MuzakkiID,
		Kategori:     string(p.Kategori),
		Akun:         p.Akun,
		JumlahUangRp: p.JumlahUangRp,
		Tanggal:      fmtDate(p.Tanggal),
		Catatan:      nullString(p.Catatan),
		CreatedBy:    nullString(p.CreatedBy),
		CreatedAt:    fmtTime(p.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pemasukan_uang
		(id, tahun_zakat_id, muzakki_id, kategori, akun, jumlah_uang_rp, tanggal, catatan, created_by, created_at)
		VALUES (:id, :tahun_zakat_id, :muzakki_id, :kategori, :akun, :jumlah_uang_rp, :tanggal, :catatan, :created_by, :created_at)
	`, row)
	return err
}

func (s *Store) DeleteUang(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pemasukan_uang WHERE id = ?`, id)
	return err
}

func (s *Store) ListUangByCatatan(ctx context.Context, tahunZakatID, catatan string) ([]pemasukan.PemasukanUang, error) {
	var rows []pemasukanUangRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM pemasukan_uang WHERE tahun_zakat_id = ? AND catatan = ?
		ORDER BY created_at ASC
	`, tahunZakatID, catatan)
	if err != nil {
		return nil, err
	}
	out := make([]pemasukan.PemasukanUang, len(rows))
	for i, r := range rows {
		out[i] = pemasukan.PemasukanUang{
			ID:           r.ID,
			TahunZakatID: r.TahunZakatID,
			MuzakkiID:    r.MuzakkiID,
			Kategori:     pemasukan.KategoriUang(r.Kategori),
			Akun:         r.Akun,
			JumlahUangRp: r.JumlahUangRp,
			Tanggal:      parseTime(r.Tanggal),
			Catatan:      r.Catatan.String,
			CreatedBy:    r.CreatedBy.String,
			CreatedAt:    parseTime(r.CreatedAt),
		}
	}
	return out, nil
}

type pemasukanBerasRow struct {
	ID            string         `db:"id"`
	TahunZakatID  string         `db:"tahun_zakat_id"`
	MuzakkiID     string         `db:"muzakki_id"`
	Kategori      string         `db:"kategori"`
	JumlahBerasKg string         `db:"jumlah_beras_kg"`
	Tanggal       string         `db:"tanggal"`
	Catatan       sql.NullString `db:"catatan"`
	CreatedBy     sql.NullString `db:"created_by"`
	CreatedAt     string         `db:"created_at"`
}

func (s *Store) InsertBeras(ctx context.Context, p pemasukan.PemasukanBeras) error {
	row := pemasukanBerasRow{
		ID:            p.ID,
		TahunZakatID:  p.TahunZakatID,
		MuzakkiID:     p.MuzakkiID,
		Kategori:      string(p.Kategori),
		JumlahBerasKg: p.JumlahBerasKg.String(),
		Tanggal:       fmtDate(p.Tanggal),
		Catatan:       nullString(p.Catatan),
		CreatedBy:     nullString(p.CreatedBy),
		CreatedAt:     fmtTime(p.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pemasukan_beras
		(id, tahun_zakat_id, muzakki_id, kategori, jumlah_beras_kg, tanggal, catatan, created_by, created_at)
		VALUES (:id, :tahun_zakat_id, :muzakki_id, :kategori, :jumlah_beras_kg, :tanggal, :catatan, :created_by, :created_at)
	`, row)
	return err
}

func (s *Store) ListBerasByCatatan(ctx context.Context, tahunZakatID, catatan string) ([]pemasukan.PemasukanBeras, error) {
	var rows []pemasukanBerasRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM pemasukan_beras WHERE tahun_zakat_id = ? AND catatan = ?
		ORDER BY created_at ASC
	`, tahunZakatID, catatan)
	if err != nil {
		return nil, err
	}
	out := make([]pemasukan.PemasukanBeras, len(rows))
	for i, r := range rows {
		out[i] = pemasukan.PemasukanBeras{
			ID:            r.ID,
			TahunZakatID:  r.TahunZakatID,
			MuzakkiID:     r.MuzakkiID,
			Kategori:      pemasukan.KategoriBeras(r.Kategori),
			JumlahBerasKg: parseDecimal(r.JumlahBerasKg),
			Tanggal:       parseTime(r.Tanggal),
			Catatan:       r.Catatan.String,
			CreatedBy:     r.CreatedBy.String,
			CreatedAt:     parseTime(r.CreatedAt),
		}
	}
	return out, nil
}

// =============================================================================
// pemasukan.MuzakkiStore
// =============================================================================

type muzakkiRow struct {
	ID        string         `db:"id"`
	Nama      string         `db:"nama"`
	Alamat    sql.NullString `db:"alamat"`
	Telepon   sql.NullString `db:"telepon"`
	CreatedAt string         `db:"created_at"`
}

func (s *Store) InsertMuzakki(ctx context.Context, m pemasukan.Muzakki) error {
	row := muzakkiRow{
		ID:        m.ID,
		Nama:      m.Nama,
		Alamat:    nullString(m.Alamat),
		Telepon:   nullString(m.Telepon),
		CreatedAt: fmtTime(m.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO muzakki (id, nama, alamat, telepon, created_at)
		VALUES (:id, :nama, :alamat, :telepon, :created_at)
	`, row)
	return err
}

func (s *Store) GetMuzakki(ctx context.Context, id string) (*pemasukan.Muzakki, error) {
	var r muzakkiRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM muzakki WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pemasukan.Muzakki{
		ID:        r.ID,
		Nama:      r.Nama,
		Alamat:    r.Alamat.String,
		Telepon:   r.Telepon.String,
		CreatedAt: parseTime(r.CreatedAt),
	}, nil
}

func (s *Store) ListMuzakki(ctx context.Context) ([]pemasukan.Muzakki, error) {
	var rows []muzakkiRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM muzakki ORDER BY nama ASC`); err != nil {
		return nil, err
	}
	out := make([]pemasukan.Muzakki, len(rows))
	for i, r := range rows {
		out[i] = pemasukan.Muzakki{
			ID:        r.ID,
			Nama:      r.Nama,
			Alamat:    r.Alamat.String,
			Telepon:   r.Telepon.String,
			CreatedAt: parseTime(r.CreatedAt),
		}
	}
	return out, nil
}

// =============================================================================
// tahun.Store
// =============================================================================

type tahunRow struct {
	ID                string `db:"id"`
	TahunHijriah      string `db:"tahun_hijriah"`
	TahunMasehi       int    `db:"tahun_masehi"`
	NilaiBerasPerKgRp int64  `db:"nilai_beras_per_kg_rp"`
	NilaiZakatUangRp  int64  `db:"nilai_zakat_uang_rp"`
	Active            bool   `db:"is_active"`
	CreatedAt         string `db:"created_at"`
}

func (s *Store) InsertTahun(ctx context.Context, t tahun.TahunZakat) error {
	row := tahunRow{
		ID:                t.ID,
		TahunHijriah:      t.TahunHijriah,
		TahunMasehi:       t.TahunMasehi,
		NilaiBerasPerKgRp: t.NilaiBerasPerKgRp,
		NilaiZakatUangRp:  t.NilaiZakatUangRp,
		Active:            t.Active,
		CreatedAt:         fmtTime(t.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tahun_zakat (id, tahun_hijriah, tahun_masehi, nilai_beras_per_kg_rp, nilai_zakat_uang_rp, is_active, created_at)
		VALUES (:id, :tahun_hijriah, :tahun_masehi, :nilai_beras_per_kg_rp, :nilai_zakat_uang_rp, :is_active, :created_at)
	`, row)
	return err
}

func (s *Store) GetTahun(ctx context.Context, id string) (*tahun.TahunZakat, error) {
	var r tahunRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM tahun_zakat WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tahun.TahunZakat{
		ID:                r.ID,
		TahunHijriah:      r.TahunHijriah,
		TahunMasehi:       r.TahunMasehi,
		NilaiBerasPerKgRp: r.NilaiBerasPerKgRp,
		NilaiZakatUangRp:  r.NilaiZakatUangRp,
		Active:            r.Active,
		CreatedAt:         parseTime(r.CreatedAt),
	}, nil
}

func (s *Store) ListTahun(ctx context.Context) ([]tahun.TahunZakat, error) {
	var rows []tahunRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM tahun_zakat ORDER BY tahun_masehi DESC`); err != nil {
		return nil, err
	}
	out := make([]tahun.TahunZakat, len(rows))
	for i, r := range rows {
		out[i] = tahun.TahunZakat{
			ID:                r.ID,
			TahunHijriah:      r.TahunHijriah,
			TahunMasehi:       r.TahunMasehi,
			NilaiBerasPerKgRp: r.NilaiBerasPerKgRp,
			NilaiZakatUangRp:  r.NilaiZakatUangRp,
			Active:            r.Active,
			CreatedAt:         parseTime(r.CreatedAt),
		}
	}
	return out, nil
}

// =============================================================================
// auth.Store
// =============================================================================

type userRow struct {
	ID             string `db:"id"`
	Username       string `db:"username"`
	NamaLengkap    string `db:"nama_lengkap"`
	Role           string `db:"role"`
	HashedPassword []byte `db:"hashed_password"`
	CreatedAt      string `db:"created_at"`
}

func (r userRow) toOperator() auth.Operator {
	return auth.Operator{
		ID:             r.ID,
		Username:       r.Username,
		NamaLengkap:    r.NamaLengkap,
		Role:           auth.Role(r.Role),
		HashedPassword: r.HashedPassword,
		CreatedAt:      parseTime(r.CreatedAt),
	}
}

func (s *Store) InsertOperator(ctx context.Context, op auth.Operator) error {
	row := userRow{
		ID:             op.ID,
		Username:       op.Username,
		NamaLengkap:    op.NamaLengkap,
		Role:           string(op.Role),
		HashedPassword: op.HashedPassword,
		CreatedAt:      fmtTime(op.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, nama_lengkap, role, hashed_password, created_at)
		VALUES (:id, :username, :nama_lengkap, :role, :hashed_password, :created_at)
	`, row)
	return err
}

func (s *Store) GetOperator(ctx context.Context, id string) (*auth.Operator, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	op := r.toOperator()
	return &op, nil
}

func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (*auth.Operator, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	op := r.toOperator()
	return &op, nil
}

// =============================================================================
// bulk.LogStore
// =============================================================================

type logRow struct {
	ID           string `db:"id"`
	OperatorID   string `db:"operator_id"`
	TahunZakatID string `db:"tahun_zakat_id"`
	ReceiptNo    string `db:"receipt_no"`
	RowCount     int    `db:"row_count"`
	CreatedAt    string `db:"created_at"`
}

func (s *Store) InsertLog(ctx context.Context, l bulk.Log) error {
	row := logRow{
		ID:           l.ID,
		OperatorID:   l.OperatorID,
		TahunZakatID: l.TahunZakatID,
		ReceiptNo:    l.ReceiptNo,
		RowCount:     l.RowCount,
		CreatedAt:    fmtTime(l.CreatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO bulk_submission_logs (id, operator_id, tahun_zakat_id, receipt_no, row_count, created_at)
		VALUES (:id, :operator_id, :tahun_zakat_id, :receipt_no, :row_count, :created_at)
	`, row)
	return err
}

func (s *Store) GetLogByReceiptNo(ctx context.Context, receiptNo string) (*bulk.Log, error) {
	var r logRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM bulk_submission_logs WHERE receipt_no = ?`, receiptNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bulk.Log{
		ID:           r.ID,
		OperatorID:   r.OperatorID,
		TahunZakatID: r.TahunZakatID,
		ReceiptNo:    r.ReceiptNo,
		RowCount:     r.RowCount,
		CreatedAt:    parseTime(r.CreatedAt),
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-01-02")
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
