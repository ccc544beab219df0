package usage

import "time"

// Period is a calendar month in UTC.  Counters are keyed by Key, so a new
// month starts from zero without any explicit reset.
type Period struct {
	Key     string // "YYYY-MM"
	Start   int64  // first second of the month
	ResetAt int64  // first second of the next month
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Key:     start.Format("2006-01"),
		Start:   start.Unix(),
		ResetAt: start.AddDate(0, 1, 0).Unix(),
	}
}
