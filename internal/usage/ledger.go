// Package usage keeps the monthly budget of blob store operations and the
// running total of stored bytes, and decides when writes must pause.
//
// Accounting is advisory.  Ledger writes are not atomic with the blob or
// row changes they describe, and concurrent writers may drift the totals
// by a small margin.
package usage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/metrics"
)

// OpClass is a billing category of blob store operation.
type OpClass int

const (
	ClassA OpClass = iota // writes and lists
	ClassB                // reads
)

// Ledger is the only writer of usage counters.
type Ledger struct {
	store Store
	clock clock.Clock
	quota config.Quota
}

// NewLedger builds a Ledger over store.
func NewLedger(store Store, clk clock.Clock, quota config.Quota) *Ledger {
	return &Ledger{store: store, clock: clk, quota: quota}
}

// RecordOp adds n operations of the given class to the current month.
func (l *Ledger) RecordOp(ctx context.Context, class OpClass, n int64) error {
	var d Counters
	switch class {
	case ClassA:
		d.ClassAOps = n
	case ClassB:
		d.ClassBOps = n
	default:
		return fmt.Errorf("usage: unknown op class %d", class)
	}
	return l.increment(ctx, d)
}

// RecordAPIRequest adds n API requests to the current month.
func (l *Ledger) RecordAPIRequest(ctx context.Context, n int64) error {
	return l.increment(ctx, Counters{APIRequests: n})
}

func (l *Ledger) increment(ctx context.Context, d Counters) error {
	if d.zero() {
		return nil
	}
	now := l.clock.Now()
	p := PeriodOf(now)
	if err := l.store.EnsurePeriod(ctx, p, now.Unix()); err != nil {
		return fmt.Errorf("usage: ensure period: %w", err)
	}
	if err := l.store.Increment(ctx, p.Key, d, now.Unix()); err != nil {
		return fmt.Errorf("usage: increment: %w", err)
	}
	return nil
}

// StorageBytes returns the running stored byte total.
func (l *Ledger) StorageBytes(ctx context.Context) (int64, error) {
	n, err := l.stateInt(ctx, StateStorageBytes)
	if err != nil {
		return 0, err
	}
	return max(0, n), nil
}

// AdjustStorageBytes folds delta into the stored byte total, clamping at
// zero, and returns the new total.
func (l *Ledger) AdjustStorageBytes(ctx context.Context, delta int64) (int64, error) {
	cur, err := l.StorageBytes(ctx)
	if err != nil {
		return 0, err
	}
	next := max(0, cur+delta)
	if err := l.setStateInt(ctx, StateStorageBytes, next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetSnapshotBytes records the size of the latest snapshot blob and moves
// the stored byte total by the difference from the previous snapshot.
func (l *Ledger) SetSnapshotBytes(ctx context.Context, bytes int64) error {
	prev, err := l.stateInt(ctx, StateSnapshotBytes)
	if err != nil {
		return err
	}
	if _, err := l.AdjustStorageBytes(ctx, bytes-prev); err != nil {
		return err
	}
	return l.setStateInt(ctx, StateSnapshotBytes, bytes)
}

// OverrideEnabled reports whether the admin lifted the cutoff.
func (l *Ledger) OverrideEnabled(ctx context.Context) (bool, error) {
	v, ok, err := l.store.State(ctx, StateOverride)
	if err != nil {
		return false, fmt.Errorf("usage: read override: %w", err)
	}
	return ok && v == "true", nil
}

// SetOverride toggles the admin override.
func (l *Ledger) SetOverride(ctx context.Context, enabled bool) error {
	return l.store.SetState(ctx, StateOverride, strconv.FormatBool(enabled), l.clock.Now().Unix())
}

// Summary computes the usage report for the current month.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	now := l.clock.Now()
	p := PeriodOf(now)
	if err := l.store.EnsurePeriod(ctx, p, now.Unix()); err != nil {
		return Summary{}, fmt.Errorf("usage: ensure period: %w", err)
	}
	c, err := l.store.Monthly(ctx, p.Key)
	if err != nil {
		return Summary{}, fmt.Errorf("usage: read monthly: %w", err)
	}
	storage, err := l.StorageBytes(ctx)
	if err != nil {
		return Summary{}, err
	}
	override, err := l.OverrideEnabled(ctx)
	if err != nil {
		return Summary{}, err
	}
	s := buildSummary(p, c, storage, override, l.quota)
	metrics.ObserveUsage(c.ClassAOps, c.ClassBOps, c.APIRequests, storage, s.Blocked)
	return s, nil
}

func (l *Ledger) stateInt(ctx context.Context, key string) (int64, error) {
	v, ok, err := l.store.State(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("usage: read %s: %w", key, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Unparseable values read as zero.
		return 0, nil
	}
	return n, nil
}

func (l *Ledger) setStateInt(ctx context.Context, key string, n int64) error {
	if err := l.store.SetState(ctx, key, strconv.FormatInt(n, 10), l.clock.Now().Unix()); err != nil {
		return fmt.Errorf("usage: write %s: %w", key, err)
	}
	return nil
}
