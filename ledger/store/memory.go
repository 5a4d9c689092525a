// Package store provides the in-memory storage-port implementation used
// by tests and demo mode. It replaces the original system's global
// offline mirror: the core never branches on an "offline" flag, it just
// receives this store at process start instead of the SQLite one.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/bulk"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/pemasukan"
	"github.com/baitulmaal/zakat-engine/rekonsiliasi"
	"github.com/baitulmaal/zakat-engine/tahun"
)

// =============================================================================
// MEMORY STORE - Implements every persistence port
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	accounts map[ledger.AccountID]ledger.Account
	entries  []ledger.Entry

	rekonsiliasi map[string]rekonsiliasi.Rekonsiliasi

	configs   map[string]hakamil.Config
	snapshots []hakamil.Snapshot

	uang  []pemasukan.PemasukanUang
	beras []pemasukan.PemasukanBeras

	muzakki   map[string]pemasukan.Muzakki
	tahun     map[string]tahun.TahunZakat
	operators map[string]auth.Operator
	logs      map[string]bulk.Log // keyed by receipt no
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[ledger.AccountID]ledger.Account),
		rekonsiliasi: make(map[string]rekonsiliasi.Rekonsiliasi),
		configs:      make(map[string]hakamil.Config),
		muzakki:      make(map[string]pemasukan.Muzakki),
		tahun:        make(map[string]tahun.TahunZakat),
		operators:    make(map[string]auth.Operator),
		logs:         make(map[string]bulk.Log),
	}
}

// =============================================================================
// ledger.AccountStore
// =============================================================================

func (m *Memory) InsertAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) UpdateAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return ledger.ErrAccountNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *Memory) ListAccounts(_ context.Context, f ledger.AccountFilter) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Account
	for _, a := range m.accounts {
		if f.Active != nil && a.Active != *f.Active {
			continue
		}
		if f.Channel != "" && a.Channel != f.Channel {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) CountEntries(_ context.Context, id ledger.AccountID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.AccountID == id {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// ledger.EntryStore
// =============================================================================

func (m *Memory) InsertEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) LatestEntry(_ context.Context, accountID ledger.AccountID) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *ledger.Entry
	for i := range m.entries {
		e := m.entries[i]
		if e.AccountID != accountID {
			continue
		}
		if latest == nil || e.EffectiveAt.After(latest.EffectiveAt) ||
			(e.EffectiveAt.Equal(latest.EffectiveAt) && e.CreatedAt.After(latest.CreatedAt)) {
			cp := e
			latest = &cp
		}
	}
	return latest, nil
}

func (m *Memory) ListEntries(_ context.Context, accountID ledger.AccountID, f ledger.EntryFilter) ([]ledger.Entry, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []ledger.Entry
	for _, e := range m.entries {
		if e.AccountID != accountID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if !f.DateFrom.IsZero() && e.EntryDate.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && e.EntryDate.After(f.DateTo) {
			continue
		}
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(e.Notes), s) &&
				!strings.Contains(strings.ToLower(e.ReferenceNo), s) &&
				!strings.Contains(strings.ToLower(e.ManualRef), s) {
				continue
			}
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].EffectiveAt.After(matched[j].EffectiveAt)
	})

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *Memory) EntriesBySource(_ context.Context, sourceRekonsiliasiID string) ([]ledger.Entry, error) {
	if sourceRekonsiliasiID == "" {
		// Ordinary entries carry no source id; sqlite stores that as
		// NULL and matches nothing. Mirror that here.
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.SourceRekonsiliasiID == sourceRekonsiliasiID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) DeleteEntriesBySource(_ context.Context, sourceRekonsiliasiID string) error {
	if sourceRekonsiliasiID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.SourceRekonsiliasiID != sourceRekonsiliasiID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *Memory) SumEntries(_ context.Context, accountID ledger.AccountID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum += e.SignedAmount()
		}
	}
	return sum, nil
}

func (m *Memory) LatestBalances(ctx context.Context) (map[ledger.AccountID]int64, error) {
	m.mu.RLock()
	accountIDs := make([]ledger.AccountID, 0, len(m.accounts))
	for id := range m.accounts {
		accountIDs = append(accountIDs, id)
	}
	m.mu.RUnlock()

	out := make(map[ledger.AccountID]int64, len(accountIDs))
	for _, id := range accountIDs {
		latest, err := m.LatestEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			out[id] = latest.RunningBalanceAfterRp
		} else {
			out[id] = 0
		}
	}
	return out, nil
}

// =============================================================================
// rekonsiliasi.Store
// =============================================================================

func (m *Memory) InsertRekonsiliasi(_ context.Context, r rekonsiliasi.Rekonsiliasi) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rekonsiliasi[r.ID] = r
	return nil
}

func (m *Memory) DeleteRekonsiliasi(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rekonsiliasi, id)
	return nil
}

func (m *Memory) GetRekonsiliasi(_ context.Context, id string) (*rekonsiliasi.Rekonsiliasi, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rekonsiliasi[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) ListRekonsiliasi(_ context.Context, tahunZakatID string) ([]rekonsiliasi.Rekonsiliasi, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rekonsiliasi.Rekonsiliasi
	for _, r := range m.rekonsiliasi {
		if tahunZakatID == "" || r.TahunZakatID == tahunZakatID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tanggal.After(out[j].Tanggal) })
	return out, nil
}

// =============================================================================
// hakamil.ConfigStore + hakamil.SnapshotStore
// =============================================================================

func (m *Memory) GetConfig(_ context.Context, tahunZakatID string) (*hakamil.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.configs[tahunZakatID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) UpsertConfig(_ context.Context, c hakamil.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[c.TahunZakatID] = c
	return nil
}

func (m *Memory) InsertSnapshot(_ context.Context, s hakamil.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *Memory) GetSnapshotBySource(_ context.Context, sourceType hakamil.SourceType, sourceID string) (*hakamil.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.snapshots {
		if m.snapshots[i].SourceType == sourceType && m.snapshots[i].SourceID == sourceID {
			cp := m.snapshots[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListSnapshots(_ context.Context, tahunZakatID string, from, to time.Time) ([]hakamil.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hakamil.Snapshot
	for _, s := range m.snapshots {
		if s.TahunZakatID != tahunZakatID {
			continue
		}
		if !from.IsZero() && s.Tanggal.Before(from) {
			continue
		}
		if !to.IsZero() && s.Tanggal.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// =============================================================================
// pemasukan.Store + pemasukan.MuzakkiStore
// =============================================================================

func (m *Memory) InsertUang(_ context.Context, p pemasukan.PemasukanUang) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uang = append(m.uang, p)
	return nil
}

func (m *Memory) DeleteUang(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.uang[:0]
	for _, p := range m.uang {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.uang = kept
	return nil
}

func (m *Memory) InsertBeras(_ context.Context, p pemasukan.PemasukanBeras) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beras = append(m.beras, p)
	return nil
}

func (m *Memory) ListUangByCatatan(_ context.Context, tahunZakatID, catatan string) ([]pemasukan.PemasukanUang, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []pemasukan.PemasukanUang
	for _, p := range m.uang {
		if p.TahunZakatID == tahunZakatID && p.Catatan == catatan {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) ListBerasByCatatan(_ context.Context, tahunZakatID, catatan string) ([]pemasukan.PemasukanBeras, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []pemasukan.PemasukanBeras
	for _, p := range m.beras {
		if p.TahunZakatID == tahunZakatID && p.Catatan == catatan {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) InsertMuzakki(_ context.Context, mz pemasukan.Muzakki) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muzakki[mz.ID] = mz
	return nil
}

func (m *Memory) GetMuzakki(_ context.Context, id string) (*pemasukan.Muzakki, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mz, ok := m.muzakki[id]; ok {
		return &mz, nil
	}
	return nil, nil
}

func (m *Memory) ListMuzakki(_ context.Context) ([]pemasukan.Muzakki, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pemasukan.Muzakki, 0, len(m.muzakki))
	for _, mz := range m.muzakki {
		out = append(out, mz)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nama < out[j].Nama })
	return out, nil
}

// =============================================================================
// tahun.Store
// =============================================================================

func (m *Memory) InsertTahun(_ context.Context, t tahun.TahunZakat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tahun[t.ID] = t
	return nil
}

func (m *Memory) GetTahun(_ context.Context, id string) (*tahun.TahunZakat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tahun[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *Memory) ListTahun(_ context.Context) ([]tahun.TahunZakat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]tahun.TahunZakat, 0, len(m.tahun))
	for _, t := range m.tahun {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TahunMasehi > out[j].TahunMasehi })
	return out, nil
}

// =============================================================================
// auth.Store
// =============================================================================

func (m *Memory) InsertOperator(_ context.Context, op auth.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operators[op.ID] = op
	return nil
}

func (m *Memory) GetOperator(_ context.Context, id string) (*auth.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if op, ok := m.operators[id]; ok {
		return &op, nil
	}
	return nil, nil
}

func (m *Memory) GetOperatorByUsername(_ context.Context, username string) (*auth.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, op := range m.operators {
		if op.Username == username {
			cp := op
			return &cp, nil
		}
	}
	return nil, nil
}

// =============================================================================
// bulk.LogStore
// =============================================================================

func (m *Memory) InsertLog(_ context.Context, l bulk.Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[l.ReceiptNo] = l
	return nil
}

func (m *Memory) GetLogByReceiptNo(_ context.Context, receiptNo string) (*bulk.Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.logs[receiptNo]; ok {
		return &l, nil
	}
	return nil, nil
}
