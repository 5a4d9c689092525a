// Package tahun holds fiscal year (tahun zakat) master data: the yearly
// collection period with its configured rice and money valuation rates.
package tahun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTahunNotFound is returned for an unknown fiscal year id.
var ErrTahunNotFound = errors.New("tahun zakat not found")

// TahunZakat is one yearly collection period.
type TahunZakat struct {
	ID           string
	TahunHijriah string
	TahunMasehi  int

	// NilaiBerasPerKgRp values one kilogram of rice in whole Rupiah for
	// ledger bookkeeping. Rice records keep their kg amounts; only the
	// ledger mirror uses this conversion.
	NilaiBerasPerKgRp int64

	// NilaiZakatUangRp is the per-person money rate for zakat fitrah.
	NilaiZakatUangRp int64

	Active    bool
	CreatedAt time.Time
}

// Store persists fiscal years.
type Store interface {
	InsertTahun(ctx context.Context, t TahunZakat) error
	GetTahun(ctx context.Context, id string) (*TahunZakat, error)
	ListTahun(ctx context.Context) ([]TahunZakat, error)
}

// Service exposes the valuation reads the bookkeeping core consumes.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, id string) (*TahunZakat, error) {
	return s.store.GetTahun(ctx, id)
}

// RiceValuePerKg returns the year's rice valuation in Rupiah per kg.
func (s *Service) RiceValuePerKg(ctx context.Context, tahunZakatID string) (int64, error) {
	t, err := s.store.GetTahun(ctx, tahunZakatID)
	if err != nil {
		return 0, err
	}
	if t == nil {
		return 0, fmt.Errorf("%s: %w", tahunZakatID, ErrTahunNotFound)
	}
	return t.NilaiBerasPerKgRp, nil
}

// RiceToRupiah converts a kg quantity to its whole-Rupiah ledger
// equivalent, rounded half away from zero.
func RiceToRupiah(kg decimal.Decimal, valuePerKgRp int64) int64 {
	return kg.Mul(decimal.NewFromInt(valuePerKgRp)).Round(0).IntPart()
}
