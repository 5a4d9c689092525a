package hakamil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PER-YEAR CONFIG
// =============================================================================

// Config is a fiscal year's accrual settings. Mutated only through the
// settings surface; the core treats it as read-only input.
type Config struct {
	TahunZakatID string
	BasisMode    BasisMode
	Percent      map[Category]decimal.Decimal

	UpdatedBy string
	UpdatedAt time.Time
}

// ConfigStore persists per-year configs.
type ConfigStore interface {
	GetConfig(ctx context.Context, tahunZakatID string) (*Config, error)
	UpsertConfig(ctx context.Context, c Config) error
}

// =============================================================================
// BASIS RESOLVER
// =============================================================================

// ResolvedBasis is a year's basis mode plus percentages, fetched once
// per batch operation and held constant for that operation's duration.
// Concurrent config edits must not change a batch mid-flight.
type ResolvedBasis struct {
	Mode    BasisMode
	Percent map[Category]decimal.Decimal
}

// PercentFor returns the configured percentage for a category, falling
// back to the package default.
func (b ResolvedBasis) PercentFor(c Category) decimal.Decimal {
	if p, ok := b.Percent[c]; ok {
		return p
	}
	return DefaultPercentages[c]
}

// Resolver reads a year's basis config.
type Resolver struct {
	configs ConfigStore
}

func NewResolver(configs ConfigStore) *Resolver {
	return &Resolver{configs: configs}
}

// Resolve reads the year's config. An unconfigured year resolves to the
// gross basis with default percentages.
func (r *Resolver) Resolve(ctx context.Context, tahunZakatID string) (ResolvedBasis, error) {
	cfg, err := r.configs.GetConfig(ctx, tahunZakatID)
	if err != nil {
		return ResolvedBasis{}, err
	}
	if cfg == nil {
		return ResolvedBasis{Mode: DefaultBasisMode, Percent: DefaultPercentages}, nil
	}

	mode := cfg.BasisMode
	if mode == "" {
		mode = DefaultBasisMode
	}
	percent := cfg.Percent
	if percent == nil {
		percent = DefaultPercentages
	}
	return ResolvedBasis{Mode: mode, Percent: percent}, nil
}
