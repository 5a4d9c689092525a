/*
store.go - Persistence ports for accounts and ledger entries

PURPOSE:
  Defines the interface between the bookkeeping core and the database.
  The core never branches on where data lives: a SQLite-backed store and
  an in-memory store both satisfy these ports, and the implementation is
  chosen once at process start (cmd/server).

WRITE CONTRACT:
  Entries are append-only. The single delete operation exists only so a
  rekonsiliasi record and its mirror entry can be removed together; no
  other caller uses it, and no update operation exists at all.

CONCURRENCY:
  Implementations must provide row-level atomic inserts. Nothing more is
  assumed; see ledger.go for the accepted running-balance race.

IMPLEMENTATIONS:
  - store/sqlite: production store (sqlx over mattn/go-sqlite3)
  - ledger/store: in-memory store for tests and demo mode
*/
package ledger

import "context"

// =============================================================================
// ACCOUNT STORE
// =============================================================================

// AccountStore persists the account registry.
type AccountStore interface {
	InsertAccount(ctx context.Context, a Account) error
	UpdateAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, id AccountID) error

	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]Account, error)

	// CountEntries reports how many ledger entries reference the account.
	// Used to reject physical deletion of accounts with history.
	CountEntries(ctx context.Context, id AccountID) (int, error)
}

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryStore persists ledger entries.
type EntryStore interface {
	// InsertEntry appends one entry. Row-level atomic.
	InsertEntry(ctx context.Context, e Entry) error

	// LatestEntry returns the newest entry for an account by EffectiveAt
	// (ties broken by CreatedAt), or nil if the account has no entries.
	LatestEntry(ctx context.Context, accountID AccountID) (*Entry, error)

	// ListEntries returns entries for an account, newest first.
	ListEntries(ctx context.Context, accountID AccountID, f EntryFilter) ([]Entry, int, error)

	// EntriesBySource returns every entry whose SourceRekonsiliasiID
	// matches. The pairing invariant says this is 0 or 1 rows; callers
	// must treat more as corruption.
	EntriesBySource(ctx context.Context, sourceRekonsiliasiID string) ([]Entry, error)

	// DeleteEntriesBySource removes the mirror entries of a rekonsiliasi.
	// The ONLY delete path into the ledger.
	DeleteEntriesBySource(ctx context.Context, sourceRekonsiliasiID string) error

	// SumEntries returns the authoritative balance: the sum of signed
	// amounts over all entries of the account.
	SumEntries(ctx context.Context, accountID AccountID) (int64, error)

	// LatestBalances returns the last-known balance per account in one
	// query (cache semantics, see ledger.go).
	LatestBalances(ctx context.Context) (map[AccountID]int64, error)
}

// Store is the full persistence port for this package.
type Store interface {
	AccountStore
	EntryStore
}
