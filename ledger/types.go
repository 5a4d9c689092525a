/*
Package ledger provides the account registry and the per-account ledger.

PURPOSE:
  This package contains the bookkeeping core: named financial accounts
  (cash drawers and bank accounts) and an append-only sequence of entries
  per account, each carrying a running-balance snapshot. The ledger is
  the source of truth for "current balance".

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A named kas/bank account with lifecycle state
  - Entry: One ledger line with before/after running balances
  - Channel: kas (cash) vs bank
  - EntryType: IN, OUT, REKONSILIASI

DESIGN PRINCIPLES:
  1. Whole Rupiah: amounts are int64, no minor units
  2. Append-only: entries are never updated; the only delete is the
     mirror of deleting an owning rekonsiliasi record
  3. Best-effort balance: the running balance on the latest entry is a
     cache, not an authoritative value (see ledger.go)

SEE ALSO:
  - ledger.go: Append/recompute operations and the balance race note
  - store.go: Persistence ports
  - errors.go: Sentinel and structured errors
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string

// =============================================================================
// ACCOUNT - Named kas/bank account
// =============================================================================

// Channel says where the money physically sits.
type Channel string

const (
	ChannelKas  Channel = "kas"
	ChannelBank Channel = "bank"
)

// Account is a registry record. Accounts with ledger history are never
// physically deleted; they are deactivated instead.
type Account struct {
	ID        AccountID
	Name      string
	Channel   Channel
	Active    bool
	Metadata  map[string]string
	SortOrder int

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// ENTRY - One ledger line
// =============================================================================

type EntryType string

const (
	EntryIn  EntryType = "IN"
	EntryOut EntryType = "OUT"
	// EntryRekonsiliasi carries a signed amount: positive adds to the
	// balance, negative deducts. IN/OUT amounts are always positive.
	EntryRekonsiliasi EntryType = "REKONSILIASI"
)

// Entry is one append-only ledger line.
//
// INVARIANT (per account, ordered by EffectiveAt):
//   RunningBalanceAfterRp[i]  == RunningBalanceBeforeRp[i] + SignedAmount(i)
//   RunningBalanceBeforeRp[i+1] == RunningBalanceAfterRp[i]
//
// At most one of ManualRef / SourceRekonsiliasiID identifies the entry's
// origin; rekonsiliasi entries carry both, with ManualRef derived
// deterministically from the rekonsiliasi id for audit traceability.
type Entry struct {
	ID        EntryID
	AccountID AccountID
	Type      EntryType

	// AmountRp is whole Rupiah. Positive for IN/OUT; signed for
	// REKONSILIASI (see EntryType).
	AmountRp int64

	RunningBalanceBeforeRp int64
	RunningBalanceAfterRp  int64

	EntryDate   time.Time // calendar date of the movement
	EffectiveAt time.Time // ordering key within an account

	Notes                string
	ReferenceNo          string
	ManualRef            string // manual_reconciliation_ref in storage
	SourceRekonsiliasiID string // set only on rekonsiliasi mirror entries

	CreatedBy string
	CreatedAt time.Time
}

// SignedAmount returns the delta this entry applies to the running balance.
func (e Entry) SignedAmount() int64 {
	switch e.Type {
	case EntryOut:
		return -e.AmountRp
	default: // IN, REKONSILIASI
		return e.AmountRp
	}
}

// =============================================================================
// QUERY FILTERS
// =============================================================================

// EntryFilter narrows ledger listings. Zero values mean "no constraint".
type EntryFilter struct {
	Type     EntryType
	DateFrom time.Time
	DateTo   time.Time
	Search   string // matches notes, reference no, manual ref
	Limit    int
	Offset   int
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Active  *bool
	Channel Channel
}
