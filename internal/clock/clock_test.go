package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fake(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(10 * time.Minute)
	if got := c.Now().Sub(start); got != 10*time.Minute {
		t.Fatalf("elapsed = %s, want 10m", got)
	}
	c.Advance(-time.Hour)
	if got := c.Now().Sub(start); got != 10*time.Minute {
		t.Fatalf("negative advance moved clock: %s", got)
	}
}

func TestRealClockIsUTC(t *testing.T) {
	if loc := Real().Now().Location(); loc != time.UTC {
		t.Fatalf("location = %v, want UTC", loc)
	}
}
