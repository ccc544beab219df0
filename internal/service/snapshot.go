package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/storage"
	"github.com/iliyamo/bike-marketplace/internal/usage"
)

// Snapshot blob location and metadata.
const (
	SnapshotKey          = "snapshots/listings.json"
	snapshotCacheControl = "public, max-age=60"
)

// Snapshots builds the public listing document.
type Snapshots struct {
	listings ListingStore
	blobs    *storage.Accounted
	ledger   *usage.Ledger
	clock    clock.Clock
	baseURL  string
}

func NewSnapshots(listings ListingStore, blobs *storage.Accounted, ledger *usage.Ledger, clk clock.Clock, baseURL string) *Snapshots {
	return &Snapshots{listings: listings, blobs: blobs, ledger: ledger, clock: clk, baseURL: baseURL}
}

// Build projects the live listings without writing anything.
func (s *Snapshots) Build(ctx context.Context) (model.Snapshot, error) {
	now := s.clock.Now().Unix()
	rows, err := s.listings.LiveListings(ctx, now)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: list live: %w", err)
	}
	snap := model.Snapshot{GeneratedAt: now, Listings: make([]model.PublicListing, 0, len(rows))}
	for i := range rows {
		snap.Listings = append(snap.Listings, PublicView(&rows[i], s.baseURL))
	}
	return snap, nil
}

// Rebuild writes a fresh snapshot blob.  The write is one class A
// operation and its size replaces the previous snapshot in the stored
// byte total.
func (s *Snapshots) Rebuild(ctx context.Context) (model.Snapshot, error) {
	snap, err := s.Build(ctx)
	if err != nil {
		return snap, err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return snap, fmt.Errorf("snapshot: marshal: %w", err)
	}
	opts := storage.PutOptions{ContentType: "application/json", CacheControl: snapshotCacheControl}
	if err := s.blobs.Overwrite(ctx, SnapshotKey, body, opts); err != nil {
		return snap, fmt.Errorf("snapshot: put: %w", err)
	}
	if err := s.ledger.SetSnapshotBytes(ctx, int64(len(body))); err != nil {
		return snap, fmt.Errorf("snapshot: record size: %w", err)
	}
	return snap, nil
}

// PublicView is the public projection of l.  Contact fields survive only
// in public_contact mode.
func PublicView(l *model.Listing, baseURL string) model.PublicListing {
	pl := model.PublicListing{
		ID:               l.ID,
		CreatedAt:        l.CreatedAt,
		ExpiresAt:        l.ExpiresAt,
		Rank:             l.Rank,
		PriceSEK:         l.PriceSEK,
		Brand:            l.Brand,
		Type:             l.Type,
		Condition:        l.Condition,
		WheelSizeIn:      l.WheelSizeIn,
		Features:         nonNilStrings(l.Features),
		Faults:           nonNilStrings(l.Faults),
		Location:         l.Location,
		Description:      l.Description,
		DeliveryPossible: l.DeliveryPossible,
		DeliveryPriceSEK: l.DeliveryPriceSEK,
		ContactMode:      l.ContactMode,
		CurrencyMode:     l.CurrencyMode,
		PaymentMethods:   nonNilStrings(l.PaymentMethods),
		ImageURLs:        imageURLs(baseURL, l.ImageKeys),
	}
	if l.ContactMode == model.ContactPublic {
		pl.PublicEmail = l.PublicEmail
		pl.PublicPhone = l.PublicPhone
		pl.PublicPhoneMethods = l.PublicPhoneMethods
	}
	return pl
}

func imageURLs(baseURL string, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if u := storage.PublicURL(baseURL, k); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
