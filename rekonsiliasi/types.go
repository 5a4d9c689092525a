// Package rekonsiliasi records manual adjustments that correct system
// counts against physical cash and rice stock, keeping a 1:1 mirror
// entry in the account ledger in sync.
package rekonsiliasi

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/ledger"
)

// Jenis says whether an adjustment corrects money or rice stock.
type Jenis string

const (
	JenisUang  Jenis = "uang"
	JenisBeras Jenis = "beras"
)

// ManualRefPrefix derives the audit reference of a rekonsiliasi's
// mirror ledger entry from its id.
const ManualRefPrefix = "MANUAL-REKONSILIASI-"

// Rekonsiliasi is one manual adjustment. Amounts are signed: positive
// is an addition, negative a deduction. Rice adjustments keep their kg
// amount here; only the ledger mirror carries the money equivalent.
type Rekonsiliasi struct {
	ID           string
	TahunZakatID string
	Jenis        Jenis
	Akun         ledger.Channel // set for money adjustments only

	JumlahUangRp  int64           // signed, jenis uang
	JumlahBerasKg decimal.Decimal // signed, jenis beras

	Tanggal   time.Time
	Catatan   string // required, describes the cause
	CreatedBy string
	CreatedAt time.Time
}

// Summary totals a year's adjustments.
type Summary struct {
	TotalUangRp  int64
	TotalBerasKg decimal.Decimal
}

// Store persists rekonsiliasi rows.
type Store interface {
	InsertRekonsiliasi(ctx context.Context, r Rekonsiliasi) error
	DeleteRekonsiliasi(ctx context.Context, id string) error
	GetRekonsiliasi(ctx context.Context, id string) (*Rekonsiliasi, error)
	ListRekonsiliasi(ctx context.Context, tahunZakatID string) ([]Rekonsiliasi, error)
}
