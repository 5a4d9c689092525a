/*
reprint.go - Receipt reconstruction from persisted rows

A bulk submission has no first-class aggregate, so reprinting re-queries
both income tables by the shared receipt tag and re-aggregates per
muzakki. The result is compatible with the original in-memory rows but
not guaranteed byte-identical: sums come from persisted data, not from a
replay of the original request.
*/
package bulk

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/pemasukan"
)

// Reprint is a reconstructed submission.
type Reprint struct {
	ReceiptNo string
	Rows      []Row
	Log       *Log // nil when the batch-log write itself failed
}

// Reconstructor rebuilds submissions for reprinting.
type Reconstructor struct {
	income  pemasukan.Store
	muzakki pemasukan.MuzakkiStore
	logs    LogStore
}

func NewReconstructor(income pemasukan.Store, muzakki pemasukan.MuzakkiStore, logs LogStore) *Reconstructor {
	return &Reconstructor{income: income, muzakki: muzakki, logs: logs}
}

// Reconstruct rebuilds the rows of a receipt from the income tables.
func (r *Reconstructor) Reconstruct(ctx context.Context, tahunZakatID, receiptNo string) (*Reprint, error) {
	tag := ReceiptTag(receiptNo)

	uang, err := r.income.ListUangByCatatan(ctx, tahunZakatID, tag)
	if err != nil {
		return nil, fmt.Errorf("query pemasukan uang: %w", err)
	}
	beras, err := r.income.ListBerasByCatatan(ctx, tahunZakatID, tag)
	if err != nil {
		return nil, fmt.Errorf("query pemasukan beras: %w", err)
	}

	rowsByMuzakki := map[string]*Row{}
	var order []string
	rowFor := func(muzakkiID string) *Row {
		if row, ok := rowsByMuzakki[muzakkiID]; ok {
			return row
		}
		id := muzakkiID
		row := &Row{MuzakkiID: &id}
		if m, err := r.muzakki.GetMuzakki(ctx, muzakkiID); err == nil && m != nil {
			row.MuzakkiNama = m.Nama
		}
		rowsByMuzakki[muzakkiID] = row
		order = append(order, muzakkiID)
		return row
	}

	for _, p := range uang {
		row := rowFor(p.MuzakkiID)
		switch p.Kategori {
		case pemasukan.ZakatFitrahUang:
			addUang(&row.ZakatFitrahUang, p.JumlahUangRp)
		case pemasukan.MaalPenghasilanUang:
			addUang(&row.ZakatMaalUang, p.JumlahUangRp)
		case pemasukan.InfakSedekahUang:
			addUang(&row.InfakUang, p.JumlahUangRp)
		}
	}
	for _, p := range beras {
		row := rowFor(p.MuzakkiID)
		switch p.Kategori {
		case pemasukan.ZakatFitrahBeras:
			addBeras(&row.ZakatFitrahBeras, p.JumlahBerasKg)
		case pemasukan.MaalBeras:
			addBeras(&row.ZakatMaalBeras, p.JumlahBerasKg)
		case pemasukan.InfakSedekahBeras:
			addBeras(&row.InfakBeras, p.JumlahBerasKg)
		}
	}

	sort.Strings(order)
	rows := make([]Row, 0, len(order))
	for _, id := range order {
		rows = append(rows, *rowsByMuzakki[id])
	}

	// The log row is informative only; a missing one (its write failed
	// at submit time) does not make the receipt unprintable.
	logRow, err := r.logs.GetLogByReceiptNo(ctx, receiptNo)
	if err != nil {
		return nil, fmt.Errorf("query submission log: %w", err)
	}

	return &Reprint{ReceiptNo: receiptNo, Rows: rows, Log: logRow}, nil
}

func addUang(cell **int64, amount int64) {
	if *cell == nil {
		v := int64(0)
		*cell = &v
	}
	**cell += amount
}

func addBeras(cell **decimal.Decimal, amount decimal.Decimal) {
	if *cell == nil {
		v := decimal.Zero
		*cell = &v
	}
	sum := (*cell).Add(amount)
	*cell = &sum
}
