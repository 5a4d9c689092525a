/*
ledger.go - Append-only account ledger with running-balance snapshots

PURPOSE:
  The Ledger records money movements into per-account running-balance
  entries. Every inbound payment, outbound spend, and manual
  reconciliation adjustment lands here.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never updated. The single delete path is
     the mirror of deleting an owning rekonsiliasi record.
  2. REPLAYABLE: replaying all entries in EffectiveAt order from zero
     reproduces every stored running balance.
  3. VALIDATED PAIRING: a rekonsiliasi may own at most one entry; a
     second append for the same source is rejected, not assumed away.

KNOWN RACE (accepted, do not "fix"):
  The running balance is computed by reading the account's latest entry
  and adding the new delta. Two concurrent appends to the same account
  can both read the same "latest" and compute the same before-value. The
  store's transaction model exposes no cross-request locking to this
  layer, so the cached balance is BEST-EFFORT ONLY. Callers that need an
  authoritative figure must use RecomputeBalance, which sums all entries
  instead of trusting the latest snapshot. Deleting a rekonsiliasi
  mirror entry does not renumber downstream balances for the same
  reason; RecomputeBalance is the end-of-day answer there too.

SEE ALSO:
  - store.go: Persistence ports
  - rekonsiliasi/manager.go: The only caller of DeleteBySource
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger coordinates entry appends over a Store.
type Ledger struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// NewWithClock is used by tests that need a fixed clock.
func NewWithClock(store Store, now func() time.Time) *Ledger {
	return &Ledger{store: store, now: now}
}

// AppendInput carries everything needed to append one entry.
type AppendInput struct {
	AccountID AccountID
	Type      EntryType

	// AmountRp: positive for IN/OUT; signed for REKONSILIASI.
	AmountRp int64

	EntryDate   time.Time // zero = today
	EffectiveAt time.Time // zero = now
	Notes       string
	ReferenceNo string

	// ManualRef overrides the generated manual reference. Rekonsiliasi
	// mirror entries pass a deterministic ref derived from the source id.
	ManualRef            string
	SourceRekonsiliasiID string

	CreatedBy string
}

// Append validates the input, computes the running balance from the
// account's latest entry, and persists one new entry.
//
// Preconditions:
//   - the account exists
//   - the account is active, unless this is a rekonsiliasi entry
//     (historical corrections on deactivated accounts are permitted)
//   - amount > 0 for IN/OUT, amount != 0 for REKONSILIASI
//   - the source rekonsiliasi, if any, has no mirror entry yet
func (l *Ledger) Append(ctx context.Context, in AppendInput) (*Entry, error) {
	acct, err := l.store.GetAccount(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", in.AccountID, err)
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}
	if !acct.Active && in.Type != EntryRekonsiliasi {
		return nil, ErrAccountInactive
	}

	switch in.Type {
	case EntryRekonsiliasi:
		if in.AmountRp == 0 {
			return nil, ErrAmountZero
		}
	default:
		if in.AmountRp <= 0 {
			return nil, ErrAmountNotPositive
		}
	}

	if in.SourceRekonsiliasiID != "" {
		existing, err := l.store.EntriesBySource(ctx, in.SourceRekonsiliasiID)
		if err != nil {
			return nil, fmt.Errorf("check source pairing: %w", err)
		}
		if len(existing) > 0 {
			return nil, ErrDuplicateSource
		}
	}

	// Best-effort read of the last-known balance. See the package note on
	// the accepted read-modify-write race.
	before := int64(0)
	latest, err := l.store.LatestEntry(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load latest entry: %w", err)
	}
	if latest != nil {
		before = latest.RunningBalanceAfterRp
	}

	now := l.now()
	entry := Entry{
		ID:                     EntryID(uuid.NewString()),
		AccountID:              in.AccountID,
		Type:                   in.Type,
		AmountRp:               in.AmountRp,
		RunningBalanceBeforeRp: before,
		EntryDate:              in.EntryDate,
		EffectiveAt:            in.EffectiveAt,
		Notes:                  in.Notes,
		ReferenceNo:            in.ReferenceNo,
		ManualRef:              in.ManualRef,
		SourceRekonsiliasiID:   in.SourceRekonsiliasiID,
		CreatedBy:              in.CreatedBy,
		CreatedAt:              now,
	}
	entry.RunningBalanceAfterRp = before + entry.SignedAmount()

	if entry.EntryDate.IsZero() {
		entry.EntryDate = now.Truncate(24 * time.Hour)
	}
	if entry.EffectiveAt.IsZero() {
		entry.EffectiveAt = now
	}
	if entry.ManualRef == "" && entry.SourceRekonsiliasiID == "" {
		entry.ManualRef = fmt.Sprintf("manual-%s-%d", in.AccountID, now.UnixMilli())
	}

	if err := l.store.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	return &entry, nil
}

// =============================================================================
// BALANCE READS
// =============================================================================

// LastKnownBalance returns the cached balance from the newest entry.
// Fast, but not authoritative under concurrent appends.
func (l *Ledger) LastKnownBalance(ctx context.Context, accountID AccountID) (int64, error) {
	latest, err := l.store.LatestEntry(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return latest.RunningBalanceAfterRp, nil
}

// RecomputeBalance sums every entry of the account. This is the
// authoritative balance for end-of-day reconciliation.
func (l *Ledger) RecomputeBalance(ctx context.Context, accountID AccountID) (int64, error) {
	acct, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, ErrAccountNotFound
	}
	return l.store.SumEntries(ctx, accountID)
}

// VerifyBalance compares the cached balance against the recomputed one
// and reports drift. Drift is expected after concurrent appends or a
// rekonsiliasi deletion; the caller decides whether to care.
func (l *Ledger) VerifyBalance(ctx context.Context, accountID AccountID) error {
	cached, err := l.LastKnownBalance(ctx, accountID)
	if err != nil {
		return err
	}
	actual, err := l.RecomputeBalance(ctx, accountID)
	if err != nil {
		return err
	}
	if cached != actual {
		return &BalanceDriftError{AccountID: accountID, CachedRp: cached, ActualRp: actual}
	}
	return nil
}

// LastKnownBalances returns the cached balance of every account at once.
func (l *Ledger) LastKnownBalances(ctx context.Context) (map[AccountID]int64, error) {
	return l.store.LatestBalances(ctx)
}

// =============================================================================
// QUERIES AND SOURCE-LINKED DELETION
// =============================================================================

// Entries lists an account's entries, newest first, with the total count
// for pagination.
func (l *Ledger) Entries(ctx context.Context, accountID AccountID, f EntryFilter) ([]Entry, int, error) {
	return l.store.ListEntries(ctx, accountID, f)
}

// EntriesBySource returns the mirror entries of a rekonsiliasi record.
func (l *Ledger) EntriesBySource(ctx context.Context, sourceRekonsiliasiID string) ([]Entry, error) {
	return l.store.EntriesBySource(ctx, sourceRekonsiliasiID)
}

// DeleteBySource removes a rekonsiliasi's mirror entries. Used only by
// the reconciliation manager; downstream running balances are NOT
// renumbered (accepted limitation, see the package note).
func (l *Ledger) DeleteBySource(ctx context.Context, sourceRekonsiliasiID string) error {
	return l.store.DeleteEntriesBySource(ctx, sourceRekonsiliasiID)
}
