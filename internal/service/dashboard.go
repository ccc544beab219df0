package service

import (
	"context"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/model"
)

// Dashboard is the seller's own view of listings and buyer messages.
type Dashboard struct {
	sellers     *Sellers
	sellerStore SellerStore
	listings    ListingStore
	contacts    ContactStore
	clock       clock.Clock
	ttl         config.TTL
}

func NewDashboard(sellers *Sellers, stores Stores, clk clock.Clock, ttl config.TTL) *Dashboard {
	return &Dashboard{
		sellers:     sellers,
		sellerStore: stores.Sellers,
		listings:    stores.Listings,
		contacts:    stores.Contacts,
		clock:       clk,
		ttl:         ttl,
	}
}

// DashboardView is returned to the seller.  IP hashes are stripped.
type DashboardView struct {
	ExtensionApplied bool                 `json:"extension_applied"`
	Listings         []model.Listing      `json:"listings"`
	Contacts         []model.BuyerContact `json:"contacts"`
}

// Open resolves the seller and, at most once per login window, extends
// every live listing of the seller.
func (d *Dashboard) Open(ctx context.Context, token string) (DashboardView, error) {
	seller, err := d.sellers.Resolve(ctx, token)
	if err != nil {
		return DashboardView{}, err
	}
	now := d.clock.Now().Unix()
	var view DashboardView
	window := int64(d.ttl.LoginWindow.Seconds())
	if seller.LastLoginAt == nil || now-*seller.LastLoginAt >= window {
		if _, err := d.listings.ExtendSellerListings(ctx, seller.ID, now, int64(d.ttl.Extend.Seconds())); err != nil {
			return DashboardView{}, internal("extend listings", err)
		}
		if err := d.sellerStore.TouchSellerLogin(ctx, seller.ID, now); err != nil {
			return DashboardView{}, internal("touch login", err)
		}
		view.ExtensionApplied = true
	}

	if view.Listings, err = d.listings.ListingsBySeller(ctx, seller.ID); err != nil {
		return DashboardView{}, internal("seller listings", err)
	}
	if view.Contacts, err = d.contacts.ContactsForSeller(ctx, seller.ID); err != nil {
		return DashboardView{}, internal("seller contacts", err)
	}
	for i := range view.Listings {
		view.Listings[i].IPHash = nil
	}
	for i := range view.Contacts {
		view.Contacts[i].IPHash = nil
	}
	return view, nil
}
