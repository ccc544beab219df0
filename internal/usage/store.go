package usage

import "context"

// Counters are the per-month operation totals.
type Counters struct {
	ClassAOps   int64
	ClassBOps   int64
	APIRequests int64
}

func (c Counters) zero() bool { return c.ClassAOps == 0 && c.ClassBOps == 0 && c.APIRequests == 0 }

// Store persists usage counters and process-wide state values.  The MySQL
// implementation lives in the repository package; MemoryStore serves tests
// and the in-memory backend.
type Store interface {
	// EnsurePeriod creates a zeroed row for p if none exists.
	EnsurePeriod(ctx context.Context, p Period, now int64) error
	// Monthly returns the counters for the period key.  A missing row reads
	// as zero.
	Monthly(ctx context.Context, key string) (Counters, error)
	// Increment adds d to the counters of the period key.
	Increment(ctx context.Context, key string, d Counters, now int64) error
	// State returns a stored value and whether it was present.
	State(ctx context.Context, key string) (string, bool, error)
	// SetState writes or replaces a stored value.
	SetState(ctx context.Context, key, value string, now int64) error
}

// State keys.
const (
	StateStorageBytes  = "storage_bytes"
	StateSnapshotBytes = "snapshot_bytes"
	StateOverride      = "override_enabled"
)
