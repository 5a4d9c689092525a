package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *ledger.Registry, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return ledger.New(mem), ledger.NewRegistry(mem), mem
}

func newKasAccount(t *testing.T, reg *ledger.Registry) *ledger.Account {
	t.Helper()
	acct, err := reg.Create(context.Background(), ledger.CreateAccountInput{
		Name:    "Kas Utama",
		Channel: ledger.ChannelKas,
	})
	require.NoError(t, err)
	return acct
}

// =============================================================================
// RUNNING BALANCE TESTS
// =============================================================================

func TestLedger_Append_ChainsRunningBalances(t *testing.T) {
	// GIVEN: An empty kas account
	// WHEN: Appending IN 100000, OUT 30000, REKONSILIASI -5000
	// THEN: Each entry's before equals the previous after, ending at 65000

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	e1, err := l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 100_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), e1.RunningBalanceBeforeRp)
	assert.Equal(t, int64(100_000), e1.RunningBalanceAfterRp)

	e2, err := l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryOut, AmountRp: 30_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), e2.RunningBalanceBeforeRp)
	assert.Equal(t, int64(70_000), e2.RunningBalanceAfterRp)

	e3, err := l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: -5_000,
		SourceRekonsiliasiID: "rek-1",
		ManualRef:            "MANUAL-REKONSILIASI-rek-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70_000), e3.RunningBalanceBeforeRp)
	assert.Equal(t, int64(65_000), e3.RunningBalanceAfterRp)

	balance, err := l.LastKnownBalance(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(65_000), balance)
}

func TestLedger_RecomputeBalance_MatchesReplay(t *testing.T) {
	// GIVEN: A sequence of appends
	// WHEN: Recomputing from all entries
	// THEN: The recomputed sum equals the cached balance and VerifyBalance passes

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	amounts := []struct {
		typ ledger.EntryType
		amt int64
	}{
		{ledger.EntryIn, 50_000},
		{ledger.EntryIn, 25_000},
		{ledger.EntryOut, 10_000},
		{ledger.EntryIn, 1},
		{ledger.EntryOut, 15_001},
	}
	for _, a := range amounts {
		_, err := l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: a.typ, AmountRp: a.amt})
		require.NoError(t, err)
	}

	recomputed, err := l.RecomputeBalance(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(49_999), recomputed)

	assert.NoError(t, l.VerifyBalance(ctx, acct.ID))
}

func TestLedger_VerifyBalance_ReportsDriftAfterSourceDelete(t *testing.T) {
	// GIVEN: An IN entry followed by a rekonsiliasi mirror entry
	// WHEN: The mirror is deleted (downstream balances are not renumbered)
	// THEN: VerifyBalance reports drift between cached and recomputed values

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	_, err := l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: 20_000,
		SourceRekonsiliasiID: "rek-drift",
	})
	require.NoError(t, err)
	_, err = l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 5_000,
	})
	require.NoError(t, err)

	require.NoError(t, l.DeleteBySource(ctx, "rek-drift"))

	err = l.VerifyBalance(ctx, acct.ID)
	require.Error(t, err)
	var drift *ledger.BalanceDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, int64(25_000), drift.CachedRp)
	assert.Equal(t, int64(5_000), drift.ActualRp)

	// RecomputeBalance remains the authoritative answer.
	recomputed, err := l.RecomputeBalance(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), recomputed)
}

func TestLedger_DeleteBySource_EmptySourceMatchesNothing(t *testing.T) {
	// GIVEN: Ordinary IN/OUT entries, which carry no source id
	// WHEN: Deleting by an empty source id
	// THEN: No entry is touched; empty means "no source", not "any entry"

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	_, err := l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 10_000})
	require.NoError(t, err)
	_, err = l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryOut, AmountRp: 4_000})
	require.NoError(t, err)

	require.NoError(t, l.DeleteBySource(ctx, ""))

	_, total, err := l.Entries(ctx, acct.ID, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	matched, err := l.EntriesBySource(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, matched)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestLedger_Append_UnknownAccount_Rejected(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, err := l.Append(context.Background(), ledger.AppendInput{
		AccountID: "nope", Type: ledger.EntryIn, AmountRp: 1000,
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestLedger_Append_InactiveAccount_RejectsVoluntaryEntries(t *testing.T) {
	// GIVEN: A deactivated account
	// WHEN: Appending IN vs REKONSILIASI
	// THEN: IN is rejected, the historical correction is permitted

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	inactive := false
	_, err := reg.Update(ctx, ledger.UpdateAccountInput{ID: acct.ID, Active: &inactive})
	require.NoError(t, err)

	_, err = l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 1000})
	assert.ErrorIs(t, err, ledger.ErrAccountInactive)

	_, err = l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: -1000,
		SourceRekonsiliasiID: "rek-hist",
	})
	assert.NoError(t, err, "rekonsiliasi entries may target inactive accounts")
}

func TestLedger_Append_AmountValidation(t *testing.T) {
	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	_, err := l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 0})
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)

	_, err = l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryOut, AmountRp: -500})
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)

	_, err = l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: 0,
		SourceRekonsiliasiID: "rek-zero",
	})
	assert.ErrorIs(t, err, ledger.ErrAmountZero)

	// Negative rekonsiliasi amounts are legal deductions.
	e, err := l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: -500,
		SourceRekonsiliasiID: "rek-neg",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-500), e.SignedAmount())
}

func TestLedger_Append_DuplicateSource_Rejected(t *testing.T) {
	// GIVEN: A rekonsiliasi that already has its mirror entry
	// WHEN: Appending a second entry for the same source
	// THEN: The append is rejected; the 1:1 pairing is validated, not assumed

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	_, err := l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: 1000,
		SourceRekonsiliasiID: "rek-dup",
	})
	require.NoError(t, err)

	_, err = l.Append(ctx, ledger.AppendInput{
		AccountID: acct.ID, Type: ledger.EntryRekonsiliasi, AmountRp: 1000,
		SourceRekonsiliasiID: "rek-dup",
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateSource)

	entries, err := l.EntriesBySource(ctx, "rek-dup")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_Append_GeneratesManualRefWhenAbsent(t *testing.T) {
	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	e, err := l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 100})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ManualRef)
	assert.False(t, e.EntryDate.IsZero())
	assert.False(t, e.EffectiveAt.IsZero())
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestLedger_Entries_FiltersAndPaginates(t *testing.T) {
	// GIVEN: Five entries, alternating IN/OUT
	// WHEN: Listing with a type filter and a page size of 2
	// THEN: The page holds 2 entries and total reflects the filtered count

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		typ := ledger.EntryIn
		if i%2 == 1 {
			typ = ledger.EntryOut
		}
		_, err := l.Append(ctx, ledger.AppendInput{
			AccountID:   acct.ID,
			Type:        typ,
			AmountRp:    int64(1000 * (i + 1)),
			EffectiveAt: base.Add(time.Duration(i) * time.Hour),
			EntryDate:   base,
		})
		require.NoError(t, err)
	}

	page, total, err := l.Entries(ctx, acct.ID, ledger.EntryFilter{
		Type:  ledger.EntryIn,
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	// Newest first.
	assert.True(t, page[0].EffectiveAt.After(page[1].EffectiveAt))
}

// =============================================================================
// ACCOUNT REGISTRY TESTS
// =============================================================================

func TestRegistry_Delete_RejectsAccountsWithHistory(t *testing.T) {
	// GIVEN: An account with one ledger entry
	// WHEN: Deleting it
	// THEN: Deletion is rejected; the account must be deactivated instead

	l, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	_, err := l.Append(ctx, ledger.AppendInput{AccountID: acct.ID, Type: ledger.EntryIn, AmountRp: 100})
	require.NoError(t, err)

	err = reg.Delete(ctx, acct.ID)
	assert.ErrorIs(t, err, ledger.ErrAccountHasEntries)

	// Deactivation is the supported lifecycle exit.
	inactive := false
	updated, err := reg.Update(ctx, ledger.UpdateAccountInput{ID: acct.ID, Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestRegistry_Delete_EmptyAccount_Succeeds(t *testing.T) {
	_, reg, _ := newTestLedger(t)
	ctx := context.Background()
	acct := newKasAccount(t, reg)

	require.NoError(t, reg.Delete(ctx, acct.ID))

	got, err := reg.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegistry_Create_ValidatesChannel(t *testing.T) {
	_, reg, _ := newTestLedger(t)

	_, err := reg.Create(context.Background(), ledger.CreateAccountInput{Name: "X", Channel: "wallet"})
	assert.Error(t, err)

	_, err = reg.Create(context.Background(), ledger.CreateAccountInput{Channel: ledger.ChannelKas})
	assert.Error(t, err, "name is required")
}

func TestRegistry_ResolveByChannel_FallsBackToKas(t *testing.T) {
	// GIVEN: Only a kas account exists
	// WHEN: Resolving the bank channel
	// THEN: The kas account is returned as the operational fallback

	_, reg, _ := newTestLedger(t)
	ctx := context.Background()
	kas := newKasAccount(t, reg)

	resolved, err := reg.ResolveByChannel(ctx, ledger.ChannelBank)
	require.NoError(t, err)
	assert.Equal(t, kas.ID, resolved.ID)

	// With a bank account present, the preference wins.
	bank, err := reg.Create(ctx, ledger.CreateAccountInput{Name: "Bank Syariah", Channel: ledger.ChannelBank})
	require.NoError(t, err)

	resolved, err = reg.ResolveByChannel(ctx, ledger.ChannelBank)
	require.NoError(t, err)
	assert.Equal(t, bank.ID, resolved.ID)
}

func TestRegistry_ResolveByChannel_NoAccounts(t *testing.T) {
	_, reg, _ := newTestLedger(t)

	_, err := reg.ResolveByChannel(context.Background(), ledger.ChannelKas)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
