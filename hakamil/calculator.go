/*
Package hakamil computes and records the charity operator's accrual
("hak amil") on inbound zakat transactions.

PURPOSE:
  Every qualifying income row earns the operator a configured percentage
  of the amount, computed under a switchable accounting basis: gross
  inflow, or inflow net of manual reconciliation adjustments. The
  breakdown is frozen into an immutable snapshot per source transaction
  so later config edits never rewrite history.

KEY CONCEPTS IN THIS FILE (calculator.go):
  - Category: accrual category (zakat_fitrah, zakat_maal, infak, ...)
  - BasisMode: gross_before_reconciliation vs net_after_reconciliation
  - Breakdown: the full bruto/neto/persen/nominal derivation
  - MapKategori: raw income category -> accrual category

PRECISION:
  Percentages are fractional (12.5%), so the math runs on
  decimal.Decimal and the final nominal is rounded half away from zero
  to whole Rupiah. Integer or float arithmetic would drift.

SEE ALSO:
  - basis.go: Per-year config resolution
  - snapshot.go: The snapshot engine that persists breakdowns
*/
package hakamil

import "github.com/shopspring/decimal"

// =============================================================================
// CATEGORIES AND BASIS MODE
// =============================================================================

// Category is an accrual category. Income rows map onto these; rows in
// unmapped categories earn no accrual at all.
type Category string

const (
	CategoryZakatFitrah Category = "zakat_fitrah"
	CategoryZakatMaal   Category = "zakat_maal"
	CategoryInfak       Category = "infak"
	CategoryFidyah      Category = "fidyah"
	CategoryBeras       Category = "beras"
)

// Categories lists every accrual category in presentation order.
var Categories = []Category{
	CategoryZakatFitrah,
	CategoryZakatMaal,
	CategoryInfak,
	CategoryFidyah,
	CategoryBeras,
}

// BasisMode selects what the accrual percentage applies to.
type BasisMode string

const (
	BasisGross BasisMode = "gross_before_reconciliation"
	BasisNet   BasisMode = "net_after_reconciliation"
)

// DefaultBasisMode applies when a year has no config row.
const DefaultBasisMode = BasisGross

// DefaultPercentages are the fallback accrual percentages per category.
var DefaultPercentages = map[Category]decimal.Decimal{
	CategoryZakatFitrah: decimal.RequireFromString("12.5"),
	CategoryZakatMaal:   decimal.RequireFromString("12.5"),
	CategoryInfak:       decimal.NewFromInt(20),
	CategoryFidyah:      decimal.Zero,
	CategoryBeras:       decimal.Zero,
}

// =============================================================================
// CATEGORY MAPPING
// =============================================================================

var kategoriMapping = map[string]Category{
	"zakat_fitrah_uang":     CategoryZakatFitrah,
	"zakat_fitrah_beras":    CategoryZakatFitrah,
	"maal_penghasilan_uang": CategoryZakatMaal,
	"maal_beras":            CategoryZakatMaal,
	"fidyah_uang":           CategoryFidyah,
	"fidyah_beras":          CategoryFidyah,
	"infak_sedekah_uang":    CategoryInfak,
	"infak_sedekah_beras":   CategoryInfak,
}

// MapKategori maps a raw income category to its accrual category.
// ok == false means the income earns no accrual and the snapshot engine
// is skipped, not errored.
func MapKategori(kategori string) (Category, bool) {
	c, ok := kategoriMapping[kategori]
	return c, ok
}

// =============================================================================
// BREAKDOWN
// =============================================================================

// BreakdownInput is one accrual computation request.
type BreakdownInput struct {
	Category       Category
	Gross          decimal.Decimal
	Reconciliation decimal.Decimal // 0 for ordinary transactions
	BasisMode      BasisMode
	Percent        *decimal.Decimal // nil = DefaultPercentages[Category]
}

// Breakdown is the frozen derivation persisted into a snapshot.
type Breakdown struct {
	Category     Category
	BasisMode    BasisMode
	Bruto        decimal.Decimal
	Rekonsiliasi decimal.Decimal
	Neto         decimal.Decimal
	BasisNominal decimal.Decimal
	Persen       decimal.Decimal
	Nominal      decimal.Decimal // whole Rupiah, rounded half away from zero
}

// BuildBreakdown derives the accrual figures for one transaction.
//
//	neto    = bruto - rekonsiliasi
//	basis   = bruto (gross mode) | neto (net mode)
//	nominal = round(basis * persen / 100)
func BuildBreakdown(in BreakdownInput) Breakdown {
	mode := in.BasisMode
	if mode == "" {
		mode = DefaultBasisMode
	}

	persen := DefaultPercentages[in.Category]
	if in.Percent != nil {
		persen = *in.Percent
	}

	neto := in.Gross.Sub(in.Reconciliation)
	basis := neto
	if mode == BasisGross {
		basis = in.Gross
	}

	return Breakdown{
		Category:     in.Category,
		BasisMode:    mode,
		Bruto:        in.Gross,
		Rekonsiliasi: in.Reconciliation,
		Neto:         neto,
		BasisNominal: basis,
		Persen:       persen,
		// decimal.Round rounds half away from zero, the deterministic
		// rounding the receipts are reconciled against.
		Nominal: basis.Mul(persen).Div(decimal.NewFromInt(100)).Round(0),
	}
}
