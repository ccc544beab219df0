package service

import (
	"context"
	"strings"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/usage"
)

// Admin holds the moderation reads and the small admin writes that do not
// touch the listing lifecycle.
type Admin struct {
	stores  Stores
	sellers *Sellers
	gate    *Gate
	ledger  *usage.Ledger
	clock   clock.Clock
	baseURL string
}

func NewAdmin(stores Stores, sellers *Sellers, gate *Gate, ledger *usage.Ledger, clk clock.Clock, baseURL string) *Admin {
	return &Admin{stores: stores, sellers: sellers, gate: gate, ledger: ledger, clock: clk, baseURL: baseURL}
}

// AdminListing is a full listing row with resolved image URLs.
type AdminListing struct {
	model.Listing
	ImageURLs []string `json:"image_urls"`
}

// Overview lists everything, newest first.
type Overview struct {
	Listings []AdminListing       `json:"listings"`
	Contacts []model.BuyerContact `json:"contacts"`
	Reports  []model.Report       `json:"reports"`
}

func (a *Admin) Overview(ctx context.Context) (Overview, error) {
	rows, err := a.stores.Listings.AllListings(ctx)
	if err != nil {
		return Overview{}, internal("all listings", err)
	}
	ov := Overview{Listings: make([]AdminListing, 0, len(rows))}
	for _, l := range rows {
		ov.Listings = append(ov.Listings, AdminListing{Listing: l, ImageURLs: imageURLs(a.baseURL, l.ImageKeys)})
	}
	if ov.Contacts, err = a.stores.Contacts.AllContacts(ctx); err != nil {
		return Overview{}, internal("all contacts", err)
	}
	if ov.Reports, err = a.stores.Reports.AllReports(ctx); err != nil {
		return Overview{}, internal("all reports", err)
	}
	return ov, nil
}

// BlockIP denylists a hash, or a raw address hashed here.  An existing
// entry is left untouched.
func (a *Admin) BlockIP(ctx context.Context, ipHash, rawIP, reason string) error {
	ipHash = strings.TrimSpace(ipHash)
	if ipHash == "" && strings.TrimSpace(rawIP) != "" {
		h, err := a.gate.HashIP(strings.TrimSpace(rawIP))
		if err != nil {
			return invalid("IP hash required.")
		}
		ipHash = h
	}
	if ipHash == "" {
		return invalid("IP hash required.")
	}
	entry := model.BlockedIP{IPHash: ipHash, CreatedAt: a.clock.Now().Unix()}
	if r := strings.TrimSpace(reason); r != "" {
		entry.Reason = &r
	}
	if err := a.stores.Blocklist.BlockIP(ctx, entry); err != nil {
		return internal("block ip", err)
	}
	return nil
}

// ResetSellerToken mints a replacement token for a seller named directly
// or through one of its listings.
func (a *Admin) ResetSellerToken(ctx context.Context, sellerID, listingID string) (string, string, error) {
	sellerID = strings.TrimSpace(sellerID)
	listingID = strings.TrimSpace(listingID)
	if sellerID == "" && listingID != "" {
		l, err := a.stores.Listings.ListingByID(ctx, listingID)
		if err != nil && !isNotFound(err) {
			return "", "", internal("listing lookup", err)
		}
		if l != nil {
			sellerID = l.SellerID
		} else {
			return "", "", notFound(MsgSellerNotFound)
		}
	}
	if sellerID == "" {
		return "", "", invalid("seller_id or listing_id required.")
	}
	token, err := a.sellers.ResetToken(ctx, sellerID)
	if err != nil {
		return "", "", err
	}
	return sellerID, token, nil
}

// Usage returns the current usage summary.
func (a *Admin) Usage(ctx context.Context) (usage.Summary, error) {
	s, err := a.ledger.Summary(ctx)
	if err != nil {
		return usage.Summary{}, internal("usage summary", err)
	}
	return s, nil
}

// SetOverride toggles the cutoff override and returns the new summary.
func (a *Admin) SetOverride(ctx context.Context, enabled bool) (usage.Summary, error) {
	if err := a.ledger.SetOverride(ctx, enabled); err != nil {
		return usage.Summary{}, internal("set override", err)
	}
	return a.Usage(ctx)
}

// AllowAdmin reports whether email may use the admin surface.  An empty
// allow-list admits everyone.
func AllowAdmin(allow []string, email string) bool {
	if len(allow) == 0 {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range allow {
		if a == email {
			return true
		}
	}
	return false
}
