package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ACCOUNT REGISTRY
// =============================================================================

// Registry manages the account master list. Accounts belong to the
// organization; there is no per-user ownership.
type Registry struct {
	store AccountStore
	now   func() time.Time
}

func NewRegistry(store AccountStore) *Registry {
	return &Registry{store: store, now: time.Now}
}

// CreateAccountInput carries operator-supplied account fields.
type CreateAccountInput struct {
	Name      string
	Channel   Channel
	Active    *bool // nil = active
	Metadata  map[string]string
	SortOrder int
	CreatedBy string
}

func (r *Registry) Create(ctx context.Context, in CreateAccountInput) (*Account, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if in.Channel != ChannelKas && in.Channel != ChannelBank {
		return nil, fmt.Errorf("unknown account channel %q", in.Channel)
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	meta := in.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	now := r.now()
	acct := Account{
		ID:        AccountID(uuid.NewString()),
		Name:      in.Name,
		Channel:   in.Channel,
		Active:    active,
		Metadata:  meta,
		SortOrder: in.SortOrder,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.InsertAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &acct, nil
}

// UpdateAccountInput updates mutable account fields. Nil pointers leave
// the current value untouched.
type UpdateAccountInput struct {
	ID        AccountID
	Name      *string
	Channel   *Channel
	Active    *bool
	Metadata  map[string]string
	SortOrder *int
}

func (r *Registry) Update(ctx context.Context, in UpdateAccountInput) (*Account, error) {
	acct, err := r.store.GetAccount(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}

	if in.Name != nil {
		acct.Name = *in.Name
	}
	if in.Channel != nil {
		acct.Channel = *in.Channel
	}
	if in.Active != nil {
		acct.Active = *in.Active
	}
	if in.Metadata != nil {
		acct.Metadata = in.Metadata
	}
	if in.SortOrder != nil {
		acct.SortOrder = *in.SortOrder
	}
	acct.UpdatedAt = r.now()

	if err := r.store.UpdateAccount(ctx, *acct); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return acct, nil
}

// Delete removes an account with no ledger history. Accounts that own
// entries must be deactivated instead; deletion is rejected.
func (r *Registry) Delete(ctx context.Context, id AccountID) error {
	acct, err := r.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrAccountNotFound
	}

	n, err := r.store.CountEntries(ctx, id)
	if err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	if n > 0 {
		return ErrAccountHasEntries
	}

	return r.store.DeleteAccount(ctx, id)
}

func (r *Registry) Get(ctx context.Context, id AccountID) (*Account, error) {
	return r.store.GetAccount(ctx, id)
}

func (r *Registry) List(ctx context.Context, f AccountFilter) ([]Account, error) {
	return r.store.ListAccounts(ctx, f)
}

// ResolveByChannel finds the preferred active account for a channel,
// falling back to the default kas account when the channel has none.
// Money rekonsiliasi resolves kas/bank by preference; rice always lands
// on the operational kas account (rice has no bank equivalent).
func (r *Registry) ResolveByChannel(ctx context.Context, preferred Channel) (*Account, error) {
	active := true
	if preferred != "" {
		accts, err := r.store.ListAccounts(ctx, AccountFilter{Active: &active, Channel: preferred})
		if err != nil {
			return nil, err
		}
		if len(accts) > 0 {
			return &accts[0], nil
		}
	}
	// Fallback: default kas account.
	accts, err := r.store.ListAccounts(ctx, AccountFilter{Active: &active, Channel: ChannelKas})
	if err != nil {
		return nil, err
	}
	if len(accts) == 0 {
		return nil, fmt.Errorf("resolve %q account: %w", preferred, ErrAccountNotFound)
	}
	return &accts[0], nil
}
