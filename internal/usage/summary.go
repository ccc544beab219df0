package usage

import (
	"math"

	"github.com/iliyamo/bike-marketplace/internal/config"
)

// BlockReason names the resource that tripped the cutoff.
type BlockReason string

const (
	BlockStorage BlockReason = "storage"
	BlockClassA  BlockReason = "class_a"
	BlockClassB  BlockReason = "class_b"
)

// Message is the caller facing explanation for a block.
func (r BlockReason) Message() string {
	switch r {
	case BlockStorage:
		return "Uploads paused because storage is near the free tier limit. Ask the admin to enable override or wait for reset."
	case BlockClassA:
		return "Service paused because write requests are near the free tier limit. Ask the admin to enable override or wait for reset."
	case BlockClassB:
		return "Service paused because read requests are near the free tier limit. Ask the admin to enable override or wait for reset."
	}
	return "Service paused to stay within the storage free tier. Ask the admin to enable override or wait for the monthly reset."
}

// Summary is the full usage report returned to admins.
type Summary struct {
	PeriodKey       string       `json:"period_key"`
	PeriodStart     int64        `json:"period_start"`
	ResetAt         int64        `json:"reset_at"`
	Usage           Usage        `json:"usage"`
	Limits          Limits       `json:"limits"`
	Cutoff          Cutoff       `json:"cutoff"`
	OverrideEnabled bool         `json:"override_enabled"`
	Blocked         bool         `json:"blocked"`
	BlockReason     *BlockReason `json:"block_reason"`
	Estimate        Estimate     `json:"estimate"`
	Pricing         Pricing      `json:"pricing"`
	Note            string       `json:"note"`
}

type Usage struct {
	ClassAOps    int64 `json:"class_a_ops"`
	ClassBOps    int64 `json:"class_b_ops"`
	APIRequests  int64 `json:"api_requests"`
	StorageBytes int64 `json:"storage_bytes"`
}

type Limits struct {
	ClassAOps      int64   `json:"class_a_ops"`
	ClassBOps      int64   `json:"class_b_ops"`
	StorageBytes   int64   `json:"storage_bytes"`
	CutoffFraction float64 `json:"cutoff_fraction"`
	BytesPerGB     int64   `json:"bytes_per_gb"`
}

type Cutoff struct {
	StorageBytes int64 `json:"storage_bytes"`
	ClassAOps    int64 `json:"class_a_ops"`
	ClassBOps    int64 `json:"class_b_ops"`
}

// Estimate is advisory.  It never gates behaviour.
type Estimate struct {
	StorageGB              float64 `json:"storage_gb"`
	BillableStorageGB      float64 `json:"billable_storage_gb"`
	BillableClassAMillions float64 `json:"billable_class_a_millions"`
	BillableClassBMillions float64 `json:"billable_class_b_millions"`
	StorageCost            float64 `json:"storage_cost"`
	ClassACost             float64 `json:"class_a_cost"`
	ClassBCost             float64 `json:"class_b_cost"`
	TotalCost              float64 `json:"total_cost"`
}

type Pricing struct {
	StoragePerGB     float64 `json:"storage_per_gb"`
	ClassAPerMillion float64 `json:"class_a_per_million"`
	ClassBPerMillion float64 `json:"class_b_per_million"`
}

const summaryNote = "Estimates only. Counts backend-tracked storage operations and current stored bytes; reads served directly by the CDN are not included."

func cutoffOf(limit int64, fraction float64) int64 {
	return int64(math.Floor(float64(limit) * fraction))
}

// buildSummary derives the block decision and the cost estimate from raw
// counters.  Storage is checked first, then class A, then class B.
func buildSummary(p Period, c Counters, storage int64, override bool, q config.Quota) Summary {
	cut := Cutoff{
		StorageBytes: cutoffOf(q.StorageBytes, q.CutoffFraction),
		ClassAOps:    cutoffOf(q.ClassAOps, q.CutoffFraction),
		ClassBOps:    cutoffOf(q.ClassBOps, q.CutoffFraction),
	}
	var reason *BlockReason
	if !override {
		var r BlockReason
		switch {
		case storage >= cut.StorageBytes:
			r = BlockStorage
		case c.ClassAOps >= cut.ClassAOps:
			r = BlockClassA
		case c.ClassBOps >= cut.ClassBOps:
			r = BlockClassB
		}
		if r != "" {
			reason = &r
		}
	}

	perGB := float64(q.BytesPerGB)
	storageGB := float64(storage) / perGB
	billableGB := math.Max(0, storageGB-float64(q.StorageBytes)/perGB)
	billableA := float64(max(0, c.ClassAOps-q.ClassAOps)) / 1_000_000
	billableB := float64(max(0, c.ClassBOps-q.ClassBOps)) / 1_000_000
	est := Estimate{
		StorageGB:              storageGB,
		BillableStorageGB:      billableGB,
		BillableClassAMillions: billableA,
		BillableClassBMillions: billableB,
		StorageCost:            billableGB * q.StoragePerGB,
		ClassACost:             billableA * q.ClassAPerMillion,
		ClassBCost:             billableB * q.ClassBPerMillion,
	}
	est.TotalCost = est.StorageCost + est.ClassACost + est.ClassBCost

	return Summary{
		PeriodKey:   p.Key,
		PeriodStart: p.Start,
		ResetAt:     p.ResetAt,
		Usage: Usage{
			ClassAOps:    c.ClassAOps,
			ClassBOps:    c.ClassBOps,
			APIRequests:  c.APIRequests,
			StorageBytes: storage,
		},
		Limits: Limits{
			ClassAOps:      q.ClassAOps,
			ClassBOps:      q.ClassBOps,
			StorageBytes:   q.StorageBytes,
			CutoffFraction: q.CutoffFraction,
			BytesPerGB:     q.BytesPerGB,
		},
		Cutoff:          cut,
		OverrideEnabled: override,
		Blocked:         reason != nil,
		BlockReason:     reason,
		Estimate:        est,
		Pricing: Pricing{
			StoragePerGB:     q.StoragePerGB,
			ClassAPerMillion: q.ClassAPerMillion,
			ClassBPerMillion: q.ClassBPerMillion,
		},
		Note: summaryNote,
	}
}
