package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bike-marketplace/internal/usage"
)

// UsageRepo stores the monthly counters in 'usage_monthly' and the
// cross-period values in 'usage_state'.  It implements usage.Store.
type UsageRepo struct{ db *sqlx.DB }

func NewUsageRepo(db *sqlx.DB) *UsageRepo { return &UsageRepo{db: db} }

var _ usage.Store = (*UsageRepo)(nil)

// EnsurePeriod creates the month row on first touch.
func (r *UsageRepo) EnsurePeriod(ctx context.Context, p usage.Period, now int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO usage_monthly (period_key, period_start, class_a_ops, class_b_ops, api_requests, updated_at) VALUES (?,?,0,0,0,?)",
		p.Key, p.Start, now)
	return err
}

// Monthly reads the counters for key; a missing row reads as zero.
func (r *UsageRepo) Monthly(ctx context.Context, key string) (usage.Counters, error) {
	var row struct {
		ClassA int64 `db:"class_a_ops"`
		ClassB int64 `db:"class_b_ops"`
		API    int64 `db:"api_requests"`
	}
	err := r.db.GetContext(ctx, &row,
		"SELECT class_a_ops, class_b_ops, api_requests FROM usage_monthly WHERE period_key=?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return usage.Counters{}, nil
	}
	if err != nil {
		return usage.Counters{}, err
	}
	return usage.Counters{ClassAOps: row.ClassA, ClassBOps: row.ClassB, APIRequests: row.API}, nil
}

// Increment adds d in a single UPDATE.
func (r *UsageRepo) Increment(ctx context.Context, key string, d usage.Counters, now int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE usage_monthly SET class_a_ops = class_a_ops + ?, class_b_ops = class_b_ops + ?,
			api_requests = api_requests + ?, updated_at = ? WHERE period_key=?`,
		d.ClassAOps, d.ClassBOps, d.APIRequests, now, key)
	return err
}

// State reads one value from usage_state.
func (r *UsageRepo) State(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.GetContext(ctx, &v, "SELECT state_value FROM usage_state WHERE state_key=?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetState upserts one value in usage_state.
func (r *UsageRepo) SetState(ctx context.Context, key, value string, now int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_state (state_key, state_value, updated_at) VALUES (?,?,?)
			ON DUPLICATE KEY UPDATE state_value = VALUES(state_value), updated_at = VALUES(updated_at)`,
		key, value, now)
	return err
}
