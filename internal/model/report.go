package model

// ReportStatus moves forward only: open, under_review, done.
type ReportStatus string

const (
	ReportOpen        ReportStatus = "open"
	ReportUnderReview ReportStatus = "under_review"
	ReportDone        ReportStatus = "done"
)

// Order returns the position of s in the status progression, or -1 for an
// unknown value.
func (s ReportStatus) Order() int {
	switch s {
	case ReportOpen:
		return 0
	case ReportUnderReview:
		return 1
	case ReportDone:
		return 2
	}
	return -1
}

// Report is a moderation complaint about a listing.
type Report struct {
	ID         string       `json:"report_id"`
	ListingID  string       `json:"listing_id"`
	CreatedAt  int64        `json:"created_at"`
	Reason     string       `json:"reason"`
	Details    *string      `json:"details"`
	Status     ReportStatus `json:"status"`
	SeenAt     *int64       `json:"seen_at"`
	DoneAt     *int64       `json:"done_at"`
	IPHash     *string      `json:"ip_hash,omitempty"`
	IPStoredAt *int64       `json:"-"`
}

// BlockedIP is a denylist entry keyed by the salted client IP hash.
type BlockedIP struct {
	IPHash    string  `json:"ip_hash"`
	CreatedAt int64   `json:"created_at"`
	Reason    *string `json:"reason"`
}
