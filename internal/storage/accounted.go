package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/metrics"
	"github.com/iliyamo/bike-marketplace/internal/usage"
)

// Ledger is the subset of the usage ledger the adapter reports into.
type Ledger interface {
	RecordOp(ctx context.Context, class usage.OpClass, n int64) error
	AdjustStorageBytes(ctx context.Context, delta int64) (int64, error)
}

// Invalidator drops cached copies of blobs that changed or went away.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Accounted mirrors every blob operation into the usage ledger.  Ledger
// failures are logged and never fail the blob operation.
type Accounted struct {
	backend Store
	ledger  Ledger
	log     *zap.SugaredLogger
	inv     Invalidator
}

// NewAccounted wraps backend.
func NewAccounted(backend Store, ledger Ledger, log *zap.SugaredLogger) *Accounted {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Accounted{backend: backend, ledger: ledger, log: log}
}

// SetInvalidator makes overwrites and releases evict cached responses.
// Call it before the store is shared.
func (a *Accounted) SetInvalidator(inv Invalidator) { a.inv = inv }

// Put writes a new object and charges one class A operation plus its size.
// It returns the number of bytes written.
func (a *Accounted) Put(ctx context.Context, key string, data []byte, opts PutOptions) (int64, error) {
	if err := a.backend.Put(ctx, key, data, opts); err != nil {
		return 0, err
	}
	n := int64(len(data))
	a.recordOp(ctx, usage.ClassA, 1)
	if _, err := a.ledger.AdjustStorageBytes(ctx, n); err != nil {
		a.log.Warnw("usage: storage adjust failed", "key", key, "delta", n, "error", err)
	}
	return n, nil
}

// Overwrite replaces an object in place and charges one class A operation.
// Size accounting is left to the caller, which knows the previous size.
func (a *Accounted) Overwrite(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if err := a.backend.Put(ctx, key, data, opts); err != nil {
		return err
	}
	a.recordOp(ctx, usage.ClassA, 1)
	a.invalidate(ctx, key)
	return nil
}

// Get reads an object and charges one class B operation.
func (a *Accounted) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := a.backend.Get(ctx, key)
	a.recordOp(ctx, usage.ClassB, 1)
	return obj, err
}

// Release deletes the given keys.  sizes is index aligned with keys; the
// stored byte total drops by the size of every key that is gone
// afterwards.  All keys are attempted; failures are joined and returned
// for the caller to log.
func (a *Accounted) Release(ctx context.Context, keys []string, sizes []int64) error {
	var errs []error
	var freed, attempted int64
	var gone []string
	for i, raw := range keys {
		key := NormalizeKey(raw)
		if key == "" {
			continue
		}
		attempted++
		if err := a.backend.Delete(ctx, key); err != nil {
			metrics.StorageError("delete")
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		gone = append(gone, key)
		if i < len(sizes) && sizes[i] > 0 {
			freed += sizes[i]
		}
	}
	if attempted > 0 {
		a.recordOp(ctx, usage.ClassA, attempted)
	}
	a.invalidate(ctx, gone...)
	if freed > 0 {
		if _, err := a.ledger.AdjustStorageBytes(ctx, -freed); err != nil {
			a.log.Warnw("usage: storage adjust failed", "delta", -freed, "error", err)
		}
	}
	return errors.Join(errs...)
}

func (a *Accounted) invalidate(ctx context.Context, keys ...string) {
	if a.inv == nil || len(keys) == 0 {
		return
	}
	if err := a.inv.Invalidate(ctx, keys...); err != nil {
		a.log.Warnw("blob cache invalidation failed", "keys", keys, "error", err)
	}
}

func (a *Accounted) recordOp(ctx context.Context, class usage.OpClass, n int64) {
	if err := a.ledger.RecordOp(ctx, class, n); err != nil {
		a.log.Warnw("usage: record op failed", "class", class, "n", n, "error", err)
	}
}
