/*
errors.go - Centralized error types for the bookkeeping core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Downstream packages (rekonsiliasi, bulk, api) wrap these with context.

ERROR CATEGORIES:
  1. Registry errors - account lifecycle violations
  2. Ledger errors - append/delete contract violations
  3. Consistency errors - invariants that should never break

USAGE:
  if errors.Is(err, ledger.ErrAccountHasEntries) {
      // surface as a 409 to the operator
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountInactive is returned when appending a voluntary entry to a
	// deactivated account. Rekonsiliasi entries are exempt (historical
	// corrections may target inactive accounts).
	ErrAccountInactive = errors.New("account is inactive")

	// ErrAccountHasEntries is returned when deleting an account that owns
	// ledger history. Such accounts can only be deactivated.
	ErrAccountHasEntries = errors.New("account has ledger entries")

	// ErrAmountNotPositive is returned for IN/OUT entries with amount <= 0.
	ErrAmountNotPositive = errors.New("amount must be greater than zero")

	// ErrAmountZero is returned for rekonsiliasi entries with amount == 0.
	ErrAmountZero = errors.New("amount must not be zero")

	// ErrDuplicateSource is returned when appending a second ledger entry
	// for a rekonsiliasi that already has its mirror entry. The 1:1
	// pairing is validated, not assumed.
	ErrDuplicateSource = errors.New("source rekonsiliasi already has a ledger entry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MultiplicityError reports a broken 1:1 rekonsiliasi/ledger pairing
// discovered at delete time. This is an internal-consistency failure,
// never a user error.
type MultiplicityError struct {
	SourceRekonsiliasiID string
	Count                int
}

func (e *MultiplicityError) Error() string {
	return fmt.Sprintf("rekonsiliasi %s has %d linked ledger entries, want exactly 1",
		e.SourceRekonsiliasiID, e.Count)
}

// BalanceDriftError reports a divergence between the cached running
// balance on the latest entry and the authoritative sum of all entries.
// Returned by VerifyBalance, not by normal appends.
type BalanceDriftError struct {
	AccountID AccountID
	CachedRp  int64
	ActualRp  int64
}

func (e *BalanceDriftError) Error() string {
	return fmt.Sprintf("account %s balance drift: cached %d, recomputed %d",
		e.AccountID, e.CachedRp, e.ActualRp)
}
