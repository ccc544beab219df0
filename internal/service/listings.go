package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/queue"
	"github.com/iliyamo/bike-marketplace/internal/repository"
	"github.com/iliyamo/bike-marketplace/internal/storage"
	"github.com/iliyamo/bike-marketplace/internal/utils"
	"github.com/iliyamo/bike-marketplace/internal/validation"
)

// QuotaChecker is satisfied by Gate.
type QuotaChecker interface {
	CheckQuota(ctx context.Context) error
}

// Listings orchestrates listing writes across rows, blobs, the usage
// ledger and the snapshot.  Statements are not wrapped in a transaction;
// each step is individually atomic and the sweeper reconciles leftovers.
type Listings struct {
	listings  ListingStore
	contacts  ContactStore
	sellers   *Sellers
	blobs     *storage.Accounted
	snapshots *Snapshots
	quota     QuotaChecker
	clock     clock.Clock
	limits    config.Limits
	ttl       config.TTL
	events    emitter
	log       *zap.SugaredLogger
}

// ListingsDeps wires a Listings.
type ListingsDeps struct {
	Listings  ListingStore
	Contacts  ContactStore
	Sellers   *Sellers
	Blobs     *storage.Accounted
	Snapshots *Snapshots
	Quota     QuotaChecker
	Clock     clock.Clock
	Limits    config.Limits
	TTL       config.TTL
	Events    queue.Publisher
	Log       *zap.SugaredLogger
}

func NewListings(d ListingsDeps) *Listings {
	log := d.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Listings{
		listings:  d.Listings,
		contacts:  d.Contacts,
		sellers:   d.Sellers,
		blobs:     d.Blobs,
		snapshots: d.Snapshots,
		quota:     d.Quota,
		clock:     d.Clock,
		limits:    d.Limits,
		ttl:       d.TTL,
		events:    emitter{pub: d.Events, log: log},
		log:       log,
	}
}

// CreateInput is a submitted listing.  Admission must already have passed.
type CreateInput struct {
	Fields      validation.ListingInput
	SellerToken string
	Images      []form.Upload
	Caller      Caller
}

// CreateResult carries the new id and, only for a freshly minted seller,
// the plaintext token.
type CreateResult struct {
	ListingID   string  `json:"listing_id"`
	SellerToken *string `json:"seller_token"`
}

// Create validates, resolves or mints the seller, stores the images,
// inserts the row and rebuilds the snapshot.
func (m *Listings) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	fields, err := validation.Listing(in.Fields, m.limits)
	if err != nil {
		return CreateResult{}, fromValidation(err)
	}

	var seller *model.Seller
	if strings.TrimSpace(in.SellerToken) != "" {
		if seller, err = m.sellers.Resolve(ctx, in.SellerToken); err != nil {
			return CreateResult{}, err
		}
	}
	if err := checkImages(in.Images, m.limits); err != nil {
		return CreateResult{}, err
	}

	var res CreateResult
	if seller == nil {
		minted, token, err := m.sellers.Mint(ctx)
		if err != nil {
			return CreateResult{}, err
		}
		seller = minted
		res.SellerToken = &token
	}

	now := m.clock.Now().Unix()
	l := &model.Listing{
		ID:        utils.NewID(),
		SellerID:  seller.ID,
		CreatedAt: now,
		ExpiresAt: now + int64(m.ttl.Listing.Seconds()),
		Status:    model.ListingActive,
		Rank:      0,
	}
	fields.Apply(l)
	if l.ImageKeys, l.ImageSizes, err = storeImages(ctx, m.blobs, l.ID, in.Images); err != nil {
		return CreateResult{}, err
	}
	if h := in.Caller.hashPtr(); h != nil {
		l.IPHash = h
		l.IPStoredAt = &now
	}

	if err := m.listings.InsertListing(ctx, l); err != nil {
		m.release(ctx, l.ID, l.ImageKeys, l.ImageSizes)
		return CreateResult{}, internal("insert listing", err)
	}
	m.rebuild(ctx)
	m.events.emit(ctx, queue.ListingCreated, l, ActorSeller, now)

	res.ListingID = l.ID
	return res, nil
}

// UpdatePrice changes the price of a live listing owned by the token's
// seller.  An unchanged price reports noChange and writes nothing.
func (m *Listings) UpdatePrice(ctx context.Context, token, listingID, rawPrice string) (noChange bool, err error) {
	price, err := validation.Price(rawPrice)
	if err != nil {
		return false, fromValidation(err)
	}
	seller, err := m.sellers.Resolve(ctx, token)
	if err != nil {
		return false, err
	}
	now := m.clock.Now().Unix()
	l, err := m.lookup(ctx, listingID)
	if err != nil {
		return false, err
	}
	if l == nil || l.SellerID != seller.ID || !l.Live(now) {
		return false, notFound(MsgListingNotFound)
	}
	if l.PriceSEK == price {
		return true, nil
	}
	if err := m.listings.UpdateListingPrice(ctx, l.ID, price); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound(MsgListingNotFound)
		}
		return false, internal("update price", err)
	}
	l.PriceSEK = price
	m.rebuild(ctx)
	m.events.emit(ctx, queue.ListingPriceUpdated, l, ActorSeller, now)
	return false, nil
}

// DeleteBySeller removes a listing owned by the token's seller.  An absent
// listing reports alreadyDeleted; one owned by somebody else is not found.
func (m *Listings) DeleteBySeller(ctx context.Context, token, listingID string) (alreadyDeleted bool, err error) {
	seller, err := m.sellers.Resolve(ctx, token)
	if err != nil {
		return false, err
	}
	l, err := m.lookup(ctx, listingID)
	if err != nil {
		return false, err
	}
	if l == nil {
		return true, nil
	}
	if l.SellerID != seller.ID {
		return false, notFound(MsgListingNotFound)
	}
	return false, m.remove(ctx, l, ActorSeller)
}

// AdminDelete removes any listing.  An absent listing reports
// alreadyDeleted.
func (m *Listings) AdminDelete(ctx context.Context, listingID string) (alreadyDeleted bool, err error) {
	if strings.TrimSpace(listingID) == "" {
		return false, invalid(MsgListingIDMissing)
	}
	l, err := m.lookup(ctx, listingID)
	if err != nil {
		return false, err
	}
	if l == nil {
		return true, nil
	}
	return false, m.remove(ctx, l, ActorAdmin)
}

// AdminUpdateInput is a full edit.  Images replaces the stored images when
// non-empty; otherwise ClearImages drops them; otherwise they are kept.
type AdminUpdateInput struct {
	ListingID   string
	Fields      validation.ListingInput
	Images      []form.Upload
	ClearImages bool
}

// AdminUpdate applies a full edit.  The usage cutoff only applies when new
// files are uploaded.
func (m *Listings) AdminUpdate(ctx context.Context, in AdminUpdateInput) error {
	id := strings.TrimSpace(in.ListingID)
	if id == "" {
		return invalid("listing_id is required.")
	}
	l, err := m.lookup(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return notFound(MsgListingNotFound)
	}
	fields, err := validation.Listing(in.Fields, m.limits)
	if err != nil {
		return fromValidation(err)
	}
	if len(in.Images) > m.limits.MaxImages {
		return invalid(MsgTooManyImages)
	}
	if len(in.Images) > 0 {
		if err := m.quota.CheckQuota(ctx); err != nil {
			return err
		}
	}
	if err := checkImages(in.Images, m.limits); err != nil {
		return err
	}

	oldKeys, oldSizes := l.ImageKeys, l.ImageSizes
	replace := len(in.Images) > 0 || in.ClearImages
	fields.Apply(l)
	switch {
	case len(in.Images) > 0:
		if l.ImageKeys, l.ImageSizes, err = storeImages(ctx, m.blobs, l.ID, in.Images); err != nil {
			return err
		}
	case in.ClearImages:
		l.ClearImages()
	}

	// Old images go only once the row no longer references them; on a
	// failed update the freshly stored ones are the orphans.
	if err := m.listings.UpdateListing(ctx, l); err != nil {
		if len(in.Images) > 0 {
			m.release(ctx, l.ID, l.ImageKeys, l.ImageSizes)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgListingNotFound)
		}
		return internal("update listing", err)
	}
	if replace {
		m.release(ctx, l.ID, oldKeys, oldSizes)
	}
	m.rebuild(ctx)
	m.events.emit(ctx, queue.ListingUpdated, l, ActorAdmin, m.clock.Now().Unix())
	return nil
}

// Reorder ranks ids so the first gets the highest rank.  Blanks and
// duplicates are dropped first.  It returns the number of rows matched.
func (m *Listings) Reorder(ctx context.Context, ids []string) (int, error) {
	ordered := dedupe(ids)
	if len(ordered) == 0 {
		return 0, invalid("listing_ids array required.")
	}
	total := len(ordered)
	updated := 0
	for i, id := range ordered {
		ok, err := m.listings.SetListingRank(ctx, id, int64(total-i))
		if err != nil {
			return updated, internal("set rank", err)
		}
		if ok {
			updated++
		}
	}
	m.rebuild(ctx)
	return updated, nil
}

// SetRank assigns one rank.
func (m *Listings) SetRank(ctx context.Context, listingID string, rank int64) error {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return invalid("Missing rank or listing id.")
	}
	ok, err := m.listings.SetListingRank(ctx, listingID, rank)
	if err != nil {
		return internal("set rank", err)
	}
	if !ok {
		return notFound(MsgListingNotFound)
	}
	m.rebuild(ctx)
	return nil
}

// remove releases images, drops contacts and then the row.  Storage
// failures are logged and do not stop the row cleanup.
func (m *Listings) remove(ctx context.Context, l *model.Listing, actor string) error {
	m.release(ctx, l.ID, l.ImageKeys, l.ImageSizes)
	if _, err := m.contacts.DeleteContactsForListing(ctx, l.ID); err != nil {
		return internal("delete contacts", err)
	}
	if _, err := m.listings.DeleteListing(ctx, l.ID); err != nil {
		return internal("delete listing", err)
	}
	m.rebuild(ctx)
	m.events.emit(ctx, queue.ListingDeleted, l, actor, m.clock.Now().Unix())
	return nil
}

// lookup returns nil without error for a missing or blank id.
func (m *Listings) lookup(ctx context.Context, id string) (*model.Listing, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	l, err := m.listings.ListingByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal("listing lookup", err)
	}
	return l, nil
}

func (m *Listings) release(ctx context.Context, listingID string, keys []string, sizes []int64) {
	if err := m.blobs.Release(ctx, keys, sizes); err != nil {
		m.log.Warnw("image release incomplete", "listing_id", listingID, "error", err)
	}
}

// rebuild refreshes the snapshot after a committed change.  A failure is
// logged; the next mutation rebuilds again.
func (m *Listings) rebuild(ctx context.Context) {
	if _, err := m.snapshots.Rebuild(ctx); err != nil {
		m.log.Warnw("snapshot rebuild failed", "error", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
