package postgres

import (
	"context"
	"fmt"
	"time"

	"almox/internal/core/numerator"
	"almox/internal/core/tenant"
)

// Numerator implements numerator.Generator against the tenant database.
//
// Numbers come from an atomic counter table: one UPSERT with RETURNING
// per number, so concurrent creators can never compute the same value.
// Counters are scoped per prefix and year.
type Numerator struct{}

// NewNumerator creates a sequence generator. The tenant pool is taken
// from context per call, so one instance serves all tenants.
func NewNumerator() *Numerator {
	return &Numerator{}
}

var _ numerator.Generator = (*Numerator)(nil)

// GetNextNumber generates the next number for the configured sequence.
func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	key := buildSequenceKey(cfg, period)

	var num int64
	err := tenant.MustGetPool(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next sequence value: %w", err)
	}

	return formatSequenceNumber(cfg, period, num), nil
}

// SetNextNumber sets the counter so the next generated value is value.
// Used by data migrations that import pre-existing numbered documents.
func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	key := buildSequenceKey(cfg, period)

	_, err := tenant.MustGetPool(ctx).Exec(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
	`, key, value-1)
	if err != nil {
		return fmt.Errorf("set sequence value: %w", err)
	}
	return nil
}

func buildSequenceKey(cfg numerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

func formatSequenceNumber(cfg numerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}
