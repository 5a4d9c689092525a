package hakamil

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARIES - Read-only aggregation for report surfaces
// =============================================================================

// CategorySummary aggregates a year's snapshots for one category.
type CategorySummary struct {
	Kategori          Category
	TotalBruto        decimal.Decimal
	TotalRekonsiliasi decimal.Decimal
	TotalNeto         decimal.Decimal
	Persen            decimal.Decimal
	NominalHakAmil    decimal.Decimal
}

// Summary is the per-category rollup plus grand totals.
type Summary struct {
	Categories             []CategorySummary
	GrandTotalBruto        decimal.Decimal
	GrandTotalRekonsiliasi decimal.Decimal
	GrandTotalNeto         decimal.Decimal
	GrandTotalHakAmil      decimal.Decimal
}

// Reporter aggregates snapshots for the report UIs. The aggregation is
// recomputed from persisted snapshot rows, never from request memory.
type Reporter struct {
	store SnapshotStore
}

func NewReporter(store SnapshotStore) *Reporter {
	return &Reporter{store: store}
}

// YearlySummary aggregates all of a year's snapshots.
func (r *Reporter) YearlySummary(ctx context.Context, tahunZakatID string) (Summary, error) {
	snaps, err := r.store.ListSnapshots(ctx, tahunZakatID, time.Time{}, time.Time{})
	if err != nil {
		return Summary{}, err
	}
	return aggregate(snaps), nil
}

// MonthlySummary aggregates the snapshots with Tanggal inside the given
// calendar month.
func (r *Reporter) MonthlySummary(ctx context.Context, tahunZakatID string, year int, month time.Month) (Summary, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	snaps, err := r.store.ListSnapshots(ctx, tahunZakatID, from, to)
	if err != nil {
		return Summary{}, err
	}
	return aggregate(snaps), nil
}

func aggregate(snaps []Snapshot) Summary {
	byCat := make(map[Category]*CategorySummary, len(Categories))
	order := make([]Category, len(Categories))
	copy(order, Categories)
	for _, c := range Categories {
		byCat[c] = &CategorySummary{Kategori: c, Persen: DefaultPercentages[c]}
	}

	// Snapshots outside the known category set still count; they get
	// appended after the fixed categories, in name order.
	var extras []Category
	for _, s := range snaps {
		cs, ok := byCat[s.Kategori]
		if !ok {
			cs = &CategorySummary{Kategori: s.Kategori}
			byCat[s.Kategori] = cs
			extras = append(extras, s.Kategori)
		}
		cs.TotalBruto = cs.TotalBruto.Add(s.TotalBruto)
		cs.TotalRekonsiliasi = cs.TotalRekonsiliasi.Add(s.TotalRekonsiliasi)
		cs.TotalNeto = cs.TotalNeto.Add(s.TotalNeto)
		cs.NominalHakAmil = cs.NominalHakAmil.Add(s.NominalHakAmil)
		cs.Persen = s.Persen // last snapshot's frozen rate for display
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })
	order = append(order, extras...)

	var out Summary
	for _, c := range order {
		cs := byCat[c]
		out.Categories = append(out.Categories, *cs)
		out.GrandTotalBruto = out.GrandTotalBruto.Add(cs.TotalBruto)
		out.GrandTotalRekonsiliasi = out.GrandTotalRekonsiliasi.Add(cs.TotalRekonsiliasi)
		out.GrandTotalNeto = out.GrandTotalNeto.Add(cs.TotalNeto)
		out.GrandTotalHakAmil = out.GrandTotalHakAmil.Add(cs.NominalHakAmil)
	}
	return out
}
