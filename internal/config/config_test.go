package config

import (
	"testing"
	"time"
)

func TestLoadLimitsDefaults(t *testing.T) {
	got := LoadLimits()
	if got != DefaultLimits() {
		t.Fatalf("LoadLimits() = %+v, want defaults", got)
	}
	if got.MaxImages != 2 || got.MaxImageBytes != 1_200_000 {
		t.Fatalf("unexpected image limits: %+v", got)
	}
}

func TestLoadTTLOverridesDays(t *testing.T) {
	t.Setenv("TTL_LISTING_DAYS", "7")
	t.Setenv("TTL_REPORT_DAYS", "bogus")
	got := LoadTTL()
	if got.Listing != 7*24*time.Hour {
		t.Fatalf("Listing = %s, want 168h", got.Listing)
	}
	if got.Report != DefaultTTL().Report {
		t.Fatalf("Report = %s, want default on parse error", got.Report)
	}
}

func TestLoadQuotaRejectsBadCutoff(t *testing.T) {
	t.Setenv("QUOTA_CUTOFF_FRACTION", "1.5")
	t.Setenv("QUOTA_CLASS_A_OPS", "500")
	q := LoadQuota()
	if q.CutoffFraction != 0.99 {
		t.Fatalf("CutoffFraction = %v, want 0.99", q.CutoffFraction)
	}
	if q.ClassAOps != 500 {
		t.Fatalf("ClassAOps = %d, want 500", q.ClassAOps)
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Admin@Example.com, ,ops@example.com ")
	got := envList("ADMIN_EMAILS")
	if len(got) != 2 || got[0] != "admin@example.com" || got[1] != "ops@example.com" {
		t.Fatalf("envList = %q", got)
	}
}

func TestLoadRateLimitDerivesLocalRate(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "2")
	cfg := LoadRateLimitConfig()
	if cfg.LocalRPS != 4 {
		t.Fatalf("LocalRPS = %v, want 4", cfg.LocalRPS)
	}
}
