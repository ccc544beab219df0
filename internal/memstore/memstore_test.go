package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/repository"
)

func listing(id, seller string, created, expires, rank int64) *model.Listing {
	return &model.Listing{
		ID: id, SellerID: seller, CreatedAt: created, ExpiresAt: expires, Rank: rank,
		Status: model.ListingActive, ImageKeys: []string{"img/" + id}, ImageSizes: []int64{10},
	}
}

func TestLiveListingsOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InsertListing(ctx, listing("a", "s1", 100, 1000, 0))
	_ = s.InsertListing(ctx, listing("b", "s1", 200, 1000, 0))
	_ = s.InsertListing(ctx, listing("c", "s1", 50, 1000, 5))
	_ = s.InsertListing(ctx, listing("d", "s1", 300, 10, 9)) // expired by time

	got, err := s.LiveListings(ctx, 500)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, l := range got {
		ids = append(ids, l.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "b" || ids[2] != "a" {
		t.Fatalf("order = %v, want [c b a]", ids)
	}
}

func TestCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	l := listing("a", "s1", 1, 10, 0)
	_ = s.InsertListing(ctx, l)
	l.ImageKeys[0] = "mutated"

	got, _ := s.ListingByID(ctx, "a")
	if got.ImageKeys[0] != "img/a" {
		t.Fatalf("store shares slices with caller: %v", got.ImageKeys)
	}
}

func TestMarkExpiredAndHardDeleteCandidates(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InsertListing(ctx, listing("a", "s1", 1, 10, 0))

	due, _ := s.ListingsToExpire(ctx, 11)
	if len(due) != 1 {
		t.Fatalf("ListingsToExpire = %d rows", len(due))
	}
	_ = s.MarkListingExpired(ctx, "a")
	got, _ := s.ListingByID(ctx, "a")
	if got.Status != model.ListingExpired || len(got.ImageKeys) != 0 || len(got.ImageSizes) != 0 {
		t.Fatalf("after expire: %+v", got)
	}
	if ids, _ := s.ExpiredListingIDs(ctx, 10); len(ids) != 0 {
		t.Fatalf("expires_at == cut should not be deleted yet: %v", ids)
	}
	if ids, _ := s.ExpiredListingIDs(ctx, 11); len(ids) != 1 {
		t.Fatalf("ExpiredListingIDs = %v", ids)
	}
}

func TestContactsForSellerAndCooldownQuery(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InsertListing(ctx, listing("a", "s1", 1, 100, 0))
	_ = s.InsertListing(ctx, listing("b", "s2", 1, 100, 0))
	h := "hash"
	_ = s.InsertContact(ctx, &model.BuyerContact{ID: "c1", ListingID: "a", CreatedAt: 5, IPHash: &h})
	_ = s.InsertContact(ctx, &model.BuyerContact{ID: "c2", ListingID: "b", CreatedAt: 6})

	mine, _ := s.ContactsForSeller(ctx, "s1")
	if len(mine) != 1 || mine[0].ID != "c1" {
		t.Fatalf("ContactsForSeller = %+v", mine)
	}
	if ok, _ := s.RecentContactExists(ctx, "a", "hash", 5); !ok {
		t.Fatal("contact at since should count")
	}
	if ok, _ := s.RecentContactExists(ctx, "a", "hash", 6); ok {
		t.Fatal("contact before since should not count")
	}
}

func TestScrubKeepsRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	h, at := "hash", int64(10)
	_ = s.InsertReport(ctx, &model.Report{ID: "r1", CreatedAt: 10, IPHash: &h, IPStoredAt: &at})
	n, _ := s.ScrubReportIPs(ctx, 11)
	if n != 1 {
		t.Fatalf("scrubbed %d", n)
	}
	r, err := s.ReportByID(ctx, "r1")
	if err != nil || r.IPHash != nil || r.IPStoredAt != nil {
		t.Fatalf("report after scrub: %+v, %v", r, err)
	}
}

func TestSellerLookups(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertSeller(ctx, &model.Seller{ID: "s1", TokenHash: "h1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertSeller(ctx, &model.Seller{ID: "s2", TokenHash: "h1"}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate hash err = %v", err)
	}
	_ = s.UpdateSellerToken(ctx, "s1", "h2")
	if _, err := s.SellerByTokenHash(ctx, "h1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("old hash still resolves: %v", err)
	}
	if sel, err := s.SellerByTokenHash(ctx, "h2"); err != nil || sel.ID != "s1" {
		t.Fatalf("new hash: %+v %v", sel, err)
	}
	if err := s.UpdateSellerToken(ctx, "nope", "x"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown seller err = %v", err)
	}
}

func TestBlockIPIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := "spam"
	_ = s.BlockIP(ctx, model.BlockedIP{IPHash: "h", CreatedAt: 1, Reason: &first})
	_ = s.BlockIP(ctx, model.BlockedIP{IPHash: "h", CreatedAt: 2})
	if ok, _ := s.IsBlocked(ctx, "h"); !ok {
		t.Fatal("expected blocked")
	}
	if s.blocked["h"].CreatedAt != 1 {
		t.Fatal("second insert should be ignored")
	}
}
