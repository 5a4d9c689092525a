/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Money is whole Rupiah (int64). Rice quantities and hak amil figures
  are decimal strings on the wire, matching shopspring/decimal's JSON
  encoding.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/bulk"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/pemasukan"
	"github.com/baitulmaal/zakat-engine/rekonsiliasi"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string      `json:"token"`
	Operator OperatorDTO `json:"operator"`
}

type OperatorDTO struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	NamaLengkap string `json:"nama_lengkap"`
	Role        string `json:"role"`
}

// =============================================================================
// ACCOUNTS AND LEDGER
// =============================================================================

type AccountDTO struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Channel   string            `json:"channel"`
	Active    bool              `json:"active"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SortOrder int               `json:"sort_order"`
	CreatedAt string            `json:"created_at,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

type CreateAccountRequest struct {
	Name      string            `json:"name"`
	Channel   string            `json:"channel"`
	Active    *bool             `json:"active,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SortOrder int               `json:"sort_order"`
}

type UpdateAccountRequest struct {
	Name      *string           `json:"name,omitempty"`
	Channel   *string           `json:"channel,omitempty"`
	Active    *bool             `json:"active,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SortOrder *int              `json:"sort_order,omitempty"`
}

type EntryDTO struct {
	ID                     string `json:"id"`
	AccountID              string `json:"account_id"`
	Type                   string `json:"type"`
	AmountRp               int64  `json:"amount_rp"`
	RunningBalanceBeforeRp int64  `json:"running_balance_before_rp"`
	RunningBalanceAfterRp  int64  `json:"running_balance_after_rp"`
	EntryDate              string `json:"entry_date"`
	EffectiveAt            string `json:"effective_at"`
	Notes                  string `json:"notes,omitempty"`
	ReferenceNo            string `json:"reference_no,omitempty"`
	ManualRef              string `json:"manual_reconciliation_ref,omitempty"`
	SourceRekonsiliasiID   string `json:"source_rekonsiliasi_id,omitempty"`
	CreatedAt              string `json:"created_at,omitempty"`
}

type AppendEntryRequest struct {
	AccountID   string `json:"account_id"`
	Type        string `json:"type"`
	AmountRp    int64  `json:"amount_rp"`
	EntryDate   string `json:"entry_date,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ReferenceNo string `json:"reference_no,omitempty"`
}

type LedgerPageResponse struct {
	Entries []EntryDTO `json:"entries"`
	Total   int        `json:"total"`
}

type BalanceDTO struct {
	AccountID string `json:"account_id"`
	BalanceRp int64  `json:"balance_rp"`
}

// =============================================================================
// REKONSILIASI
// =============================================================================

type RekonsiliasiDTO struct {
	ID            string          `json:"id"`
	TahunZakatID  string          `json:"tahun_zakat_id"`
	Jenis         string          `json:"jenis"`
	Akun          string          `json:"akun,omitempty"`
	JumlahUangRp  int64           `json:"jumlah_uang_rp,omitempty"`
	JumlahBerasKg decimal.Decimal `json:"jumlah_beras_kg,omitempty"`
	Tanggal       string          `json:"tanggal"`
	Catatan       string          `json:"catatan"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

type CreateRekonsiliasiRequest struct {
	TahunZakatID string          `json:"tahun_zakat_id"`
	Jenis        string          `json:"jenis"`
	Akun         string          `json:"akun,omitempty"`
	Jumlah       decimal.Decimal `json:"jumlah"`
	Tanggal      string          `json:"tanggal,omitempty"`
	Catatan      string          `json:"catatan"`
}

type RekonsiliasiSummaryDTO struct {
	TotalUangRp  int64           `json:"total_uang_rp"`
	TotalBerasKg decimal.Decimal `json:"total_beras_kg"`
}

// =============================================================================
// HAK AMIL
// =============================================================================

type HakAmilConfigDTO struct {
	TahunZakatID string            `json:"tahun_zakat_id"`
	BasisMode    string            `json:"basis_mode"`
	Percent      map[string]string `json:"percent"`
}

type UpdateHakAmilConfigRequest struct {
	BasisMode string            `json:"basis_mode"`
	Percent   map[string]string `json:"percent,omitempty"`
}

type CategorySummaryDTO struct {
	Kategori          string          `json:"kategori"`
	TotalBruto        decimal.Decimal `json:"total_bruto"`
	TotalRekonsiliasi decimal.Decimal `json:"total_rekonsiliasi"`
	TotalNeto         decimal.Decimal `json:"total_neto"`
	Persen            decimal.Decimal `json:"persen"`
	NominalHakAmil    decimal.Decimal `json:"nominal_hak_amil"`
}

type HakAmilSummaryDTO struct {
	Categories             []CategorySummaryDTO `json:"categories"`
	GrandTotalBruto        decimal.Decimal      `json:"grand_total_bruto"`
	GrandTotalRekonsiliasi decimal.Decimal      `json:"grand_total_rekonsiliasi"`
	GrandTotalNeto         decimal.Decimal      `json:"grand_total_neto"`
	GrandTotalHakAmil      decimal.Decimal      `json:"grand_total_hak_amil"`
}

// =============================================================================
// PEMASUKAN
// =============================================================================

type RecordUangRequest struct {
	TahunZakatID string `json:"tahun_zakat_id"`
	MuzakkiID    string `json:"muzakki_id"`
	Kategori     string `json:"kategori"`
	Akun         string `json:"akun,omitempty"`
	JumlahUangRp int64  `json:"jumlah_uang_rp"`
	Tanggal      string `json:"tanggal,omitempty"`
	Catatan      string `json:"catatan,omitempty"`
}

type RecordBerasRequest struct {
	TahunZakatID  string          `json:"tahun_zakat_id"`
	MuzakkiID     string          `json:"muzakki_id"`
	Kategori      string          `json:"kategori"`
	JumlahBerasKg decimal.Decimal `json:"jumlah_beras_kg"`
	Tanggal       string          `json:"tanggal,omitempty"`
	Catatan       string          `json:"catatan,omitempty"`
}

type PemasukanUangDTO struct {
	ID           string `json:"id"`
	TahunZakatID string `json:"tahun_zakat_id"`
	MuzakkiID    string `json:"muzakki_id"`
	Kategori     string `json:"kategori"`
	JumlahUangRp int64  `json:"jumlah_uang_rp"`
	Tanggal      string `json:"tanggal"`
	Catatan      string `json:"catatan,omitempty"`
}

type PemasukanBerasDTO struct {
	ID            string          `json:"id"`
	TahunZakatID  string          `json:"tahun_zakat_id"`
	MuzakkiID     string          `json:"muzakki_id"`
	Kategori      string          `json:"kategori"`
	JumlahBerasKg decimal.Decimal `json:"jumlah_beras_kg"`
	Tanggal       string          `json:"tanggal"`
	Catatan       string          `json:"catatan,omitempty"`
}

type MuzakkiDTO struct {
	ID      string `json:"id"`
	Nama    string `json:"nama"`
	Alamat  string `json:"alamat,omitempty"`
	Telepon string `json:"telepon,omitempty"`
}

type CreateMuzakkiRequest struct {
	Nama    string `json:"nama"`
	Alamat  string `json:"alamat,omitempty"`
	Telepon string `json:"telepon,omitempty"`
}

// =============================================================================
// BULK
// =============================================================================

// BulkRowDTO uses pointers so "cell absent" and "cell zero" stay
// distinguishable, matching the payment-sheet grid.
type BulkRowDTO struct {
	MuzakkiID   *string `json:"muzakki_id,omitempty"`
	MuzakkiNama string  `json:"muzakki_nama"`

	ZakatFitrahBeras *decimal.Decimal `json:"zakat_fitrah_beras,omitempty"`
	ZakatFitrahUang  *int64           `json:"zakat_fitrah_uang,omitempty"`
	ZakatMaalBeras   *decimal.Decimal `json:"zakat_maal_beras,omitempty"`
	ZakatMaalUang    *int64           `json:"zakat_maal_uang,omitempty"`
	InfakBeras       *decimal.Decimal `json:"infak_beras,omitempty"`
	InfakUang        *int64           `json:"infak_uang,omitempty"`
}

type BulkSubmitRequest struct {
	TahunZakatID string `json:"tahun_zakat_id"`
	// ReceiptNo is optional; the handler generates one when absent.
	ReceiptNo string       `json:"receipt_no,omitempty"`
	Rows      []BulkRowDTO `json:"rows"`
}

type BulkResultDTO struct {
	Success   bool         `json:"success"`
	ReceiptNo string       `json:"receipt_no"`
	Rows      []BulkRowDTO `json:"rows"`
	Errors    []string     `json:"errors,omitempty"`
}

type BulkReprintDTO struct {
	ReceiptNo string       `json:"receipt_no"`
	Rows      []BulkRowDTO `json:"rows"`
	RowCount  int          `json:"row_count,omitempty"`
	CreatedAt string       `json:"created_at,omitempty"`
}

// =============================================================================
// TAHUN
// =============================================================================

type TahunDTO struct {
	ID                string `json:"id"`
	TahunHijriah      string `json:"tahun_hijriah"`
	TahunMasehi       int    `json:"tahun_masehi"`
	NilaiBerasPerKgRp int64  `json:"nilai_beras_per_kg_rp"`
	NilaiZakatUangRp  int64  `json:"nilai_zakat_uang_rp"`
	Active            bool   `json:"active"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Channel:   string(a.Channel),
		Active:    a.Active,
		Metadata:  a.Metadata,
		SortOrder: a.SortOrder,
		CreatedAt: fmtTime(a.CreatedAt),
		UpdatedAt: fmtTime(a.UpdatedAt),
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:                     string(e.ID),
		AccountID:              string(e.AccountID),
		Type:                   string(e.Type),
		AmountRp:               e.AmountRp,
		RunningBalanceBeforeRp: e.RunningBalanceBeforeRp,
		RunningBalanceAfterRp:  e.RunningBalanceAfterRp,
		EntryDate:              fmtDate(e.EntryDate),
		EffectiveAt:            fmtTime(e.EffectiveAt),
		Notes:                  e.Notes,
		ReferenceNo:            e.ReferenceNo,
		ManualRef:              e.ManualRef,
		SourceRekonsiliasiID:   e.SourceRekonsiliasiID,
		CreatedAt:              fmtTime(e.CreatedAt),
	}
}

func toRekonsiliasiDTO(r rekonsiliasi.Rekonsiliasi) RekonsiliasiDTO {
	return RekonsiliasiDTO{
		ID:            r.ID,
		TahunZakatID:  r.TahunZakatID,
		Jenis:         string(r.Jenis),
		Akun:          string(r.Akun),
		JumlahUangRp:  r.JumlahUangRp,
		JumlahBerasKg: r.JumlahBerasKg,
		Tanggal:       fmtDate(r.Tanggal),
		Catatan:       r.Catatan,
		CreatedAt:     fmtTime(r.CreatedAt),
	}
}

func toSummaryDTO(s hakamil.Summary) HakAmilSummaryDTO {
	out := HakAmilSummaryDTO{
		Categories:             make([]CategorySummaryDTO, len(s.Categories)),
		GrandTotalBruto:        s.GrandTotalBruto,
		GrandTotalRekonsiliasi: s.GrandTotalRekonsiliasi,
		GrandTotalNeto:         s.GrandTotalNeto,
		GrandTotalHakAmil:      s.GrandTotalHakAmil,
	}
	for i, c := range s.Categories {
		out.Categories[i] = CategorySummaryDTO{
			Kategori:          string(c.Kategori),
			TotalBruto:        c.TotalBruto,
			TotalRekonsiliasi: c.TotalRekonsiliasi,
			TotalNeto:         c.TotalNeto,
			Persen:            c.Persen,
			NominalHakAmil:    c.NominalHakAmil,
		}
	}
	return out
}

func toBulkRow(d BulkRowDTO) bulk.Row {
	return bulk.Row{
		MuzakkiID:        d.MuzakkiID,
		MuzakkiNama:      d.MuzakkiNama,
		ZakatFitrahBeras: d.ZakatFitrahBeras,
		ZakatFitrahUang:  d.ZakatFitrahUang,
		ZakatMaalBeras:   d.ZakatMaalBeras,
		ZakatMaalUang:    d.ZakatMaalUang,
		InfakBeras:       d.InfakBeras,
		InfakUang:        d.InfakUang,
	}
}

func toBulkRowDTO(r bulk.Row) BulkRowDTO {
	return BulkRowDTO{
		MuzakkiID:        r.MuzakkiID,
		MuzakkiNama:      r.MuzakkiNama,
		ZakatFitrahBeras: r.ZakatFitrahBeras,
		ZakatFitrahUang:  r.ZakatFitrahUang,
		ZakatMaalBeras:   r.ZakatMaalBeras,
		ZakatMaalUang:    r.ZakatMaalUang,
		InfakBeras:       r.InfakBeras,
		InfakUang:        r.InfakUang,
	}
}

func toPemasukanUangDTO(p pemasukan.PemasukanUang) PemasukanUangDTO {
	return PemasukanUangDTO{
		ID:           p.ID,
		TahunZakatID: p.TahunZakatID,
		MuzakkiID:    p.MuzakkiID,
		Kategori:     string(p.Kategori),
		JumlahUangRp: p.JumlahUangRp,
		Tanggal:      fmtDate(p.Tanggal),
		Catatan:      p.Catatan,
	}
}

func toPemasukanBerasDTO(p pemasukan.PemasukanBeras) PemasukanBerasDTO {
	return PemasukanBerasDTO{
		ID:            p.ID,
		TahunZakatID:  p.TahunZakatID,
		MuzakkiID:     p.MuzakkiID,
		Kategori:      string(p.Kategori),
		JumlahBerasKg: p.JumlahBerasKg,
		Tanggal:       fmtDate(p.Tanggal),
		Catatan:       p.Catatan,
	}
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
