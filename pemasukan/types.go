/*
Package pemasukan records inbound zakat payments: money (Rupiah) rows
and rice (kilogram) rows, each tied to a muzakki and a fiscal year.

Income rows are the source transactions the hak amil engine snapshots;
the snapshot keeps a 1:1 link back through (source type, source id).
*/
package pemasukan

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORIES
// =============================================================================

// KategoriUang enumerates money-income categories.
type KategoriUang string

const (
	ZakatFitrahUang     KategoriUang = "zakat_fitrah_uang"
	MaalPenghasilanUang KategoriUang = "maal_penghasilan_uang"
	InfakSedekahUang    KategoriUang = "infak_sedekah_uang"
	FidyahUang          KategoriUang = "fidyah_uang"
)

// KategoriBeras enumerates rice-income categories.
type KategoriBeras string

const (
	ZakatFitrahBeras  KategoriBeras = "zakat_fitrah_beras"
	MaalBeras         KategoriBeras = "maal_beras"
	InfakSedekahBeras KategoriBeras = "infak_sedekah_beras"
	FidyahBeras       KategoriBeras = "fidyah_beras"
)

// =============================================================================
// INCOME ROWS
// =============================================================================

// PemasukanUang is one money-income row.
type PemasukanUang struct {
	ID           string
	TahunZakatID string
	MuzakkiID    string
	Kategori     KategoriUang
	Akun         string // channel tag, "kas" for over-the-counter intake
	JumlahUangRp int64
	Tanggal      time.Time
	Catatan      string
	CreatedBy    string
	CreatedAt    time.Time
}

// PemasukanBeras is one rice-income row. Quantities are kilograms and
// may be fractional.
type PemasukanBeras struct {
	ID            string
	TahunZakatID  string
	MuzakkiID     string
	Kategori      KategoriBeras
	JumlahBerasKg decimal.Decimal
	Tanggal       time.Time
	Catatan       string
	CreatedBy     string
	CreatedAt     time.Time
}

// =============================================================================
// MASTER DATA - Muzakki (zakat payers)
// =============================================================================

// Muzakki is a donor record, referenced by income rows.
type Muzakki struct {
	ID        string
	Nama      string
	Alamat    string
	Telepon   string
	CreatedAt time.Time
}

// =============================================================================
// STORES
// =============================================================================

// Store persists income rows.
type Store interface {
	// InsertUang appends one money row. Row-level atomic; the returned
	// id is durable before the call returns.
	InsertUang(ctx context.Context, p PemasukanUang) error
	// DeleteUang removes one money row. The ledger-pairing saga uses it
	// as its compensation step.
	DeleteUang(ctx context.Context, id string) error
	// InsertBeras appends one rice row.
	InsertBeras(ctx context.Context, p PemasukanBeras) error

	// ListUangByCatatan / ListBerasByCatatan find rows sharing a note
	// tag. Reprint reconstruction queries both tables this way.
	ListUangByCatatan(ctx context.Context, tahunZakatID, catatan string) ([]PemasukanUang, error)
	ListBerasByCatatan(ctx context.Context, tahunZakatID, catatan string) ([]PemasukanBeras, error)
}

// MuzakkiStore persists donor master data.
type MuzakkiStore interface {
	InsertMuzakki(ctx context.Context, m Muzakki) error
	GetMuzakki(ctx context.Context, id string) (*Muzakki, error)
	ListMuzakki(ctx context.Context) ([]Muzakki, error)
}
