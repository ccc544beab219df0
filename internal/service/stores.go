package service

import (
	"context"

	"github.com/iliyamo/bike-marketplace/internal/model"
)

// The persistence interfaces below are implemented by the MySQL
// repositories and by memstore.  Lookups of absent rows return
// repository.ErrNotFound.

// SellerStore persists seller identities.
type SellerStore interface {
	InsertSeller(ctx context.Context, s *model.Seller) error
	SellerByTokenHash(ctx context.Context, hash string) (*model.Seller, error)
	SellerByID(ctx context.Context, id string) (*model.Seller, error)
	// UpdateSellerToken overwrites the stored hash in place.
	UpdateSellerToken(ctx context.Context, sellerID, hash string) error
	TouchSellerLogin(ctx context.Context, sellerID string, at int64) error
}

// ListingStore persists listings.  Every method is a single statement in
// the MySQL implementation.
type ListingStore interface {
	InsertListing(ctx context.Context, l *model.Listing) error
	ListingByID(ctx context.Context, id string) (*model.Listing, error)
	// UpdateListing rewrites the editable fields and both image arrays.
	UpdateListing(ctx context.Context, l *model.Listing) error
	UpdateListingPrice(ctx context.Context, id string, price int64) error
	// DeleteListing reports whether a row was removed.
	DeleteListing(ctx context.Context, id string) (bool, error)
	// SetListingRank reports whether a row matched.
	SetListingRank(ctx context.Context, id string, rank int64) (bool, error)
	// LiveListings returns active listings with expires_at >= now, highest
	// rank first and newest first within a rank.
	LiveListings(ctx context.Context, now int64) ([]model.Listing, error)
	// AllListings returns every row, newest first.
	AllListings(ctx context.Context) ([]model.Listing, error)
	// ListingsBySeller returns the seller's rows, newest first.
	ListingsBySeller(ctx context.Context, sellerID string) ([]model.Listing, error)
	// ExtendSellerListings adds by seconds to every live listing of the
	// seller and returns the number of rows touched.
	ExtendSellerListings(ctx context.Context, sellerID string, now, by int64) (int64, error)
	// ListingsToExpire returns active listings with expires_at < now.
	ListingsToExpire(ctx context.Context, now int64) ([]model.Listing, error)
	// MarkListingExpired sets status expired and clears both image arrays.
	MarkListingExpired(ctx context.Context, id string) error
	// ExpiredListingIDs returns expired listings with expires_at < before.
	ExpiredListingIDs(ctx context.Context, before int64) ([]string, error)
	ScrubListingIPs(ctx context.Context, before int64) (int64, error)
}

// ContactStore persists buyer messages.
type ContactStore interface {
	InsertContact(ctx context.Context, c *model.BuyerContact) error
	// RecentContactExists reports a contact for the listing from ipHash
	// created at or after since.
	RecentContactExists(ctx context.Context, listingID, ipHash string, since int64) (bool, error)
	DeleteContactsForListing(ctx context.Context, listingID string) (int64, error)
	DeleteExpiredContacts(ctx context.Context, now int64) (int64, error)
	// ContactsForSeller joins through listings, newest first.
	ContactsForSeller(ctx context.Context, sellerID string) ([]model.BuyerContact, error)
	AllContacts(ctx context.Context) ([]model.BuyerContact, error)
	ScrubContactIPs(ctx context.Context, before int64) (int64, error)
}

// ReportStore persists moderation reports.
type ReportStore interface {
	InsertReport(ctx context.Context, r *model.Report) error
	ReportByID(ctx context.Context, id string) (*model.Report, error)
	// SaveReportStatus writes status, seen_at and done_at of r.
	SaveReportStatus(ctx context.Context, r *model.Report) error
	AllReports(ctx context.Context) ([]model.Report, error)
	DeleteReportsBefore(ctx context.Context, before int64) (int64, error)
	ScrubReportIPs(ctx context.Context, before int64) (int64, error)
}

// BlocklistStore persists the IP denylist.
type BlocklistStore interface {
	IsBlocked(ctx context.Context, ipHash string) (bool, error)
	// BlockIP inserts b unless the hash is already present.
	BlockIP(ctx context.Context, b model.BlockedIP) error
}

// Stores groups every persistence dependency.
type Stores struct {
	Sellers   SellerStore
	Listings  ListingStore
	Contacts  ContactStore
	Reports   ReportStore
	Blocklist BlocklistStore
}
