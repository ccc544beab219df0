package service

import (
	"context"
	"strings"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/utils"
	"github.com/iliyamo/bike-marketplace/internal/validation"
)

// Contacts stores buyer messages for sellers.
type Contacts struct {
	listings ListingStore
	contacts ContactStore
	clock    clock.Clock
	limits   config.Limits
	ttl      config.TTL
}

func NewContacts(listings ListingStore, contacts ContactStore, clk clock.Clock, limits config.Limits, ttl config.TTL) *Contacts {
	return &Contacts{listings: listings, contacts: contacts, clock: clk, limits: limits, ttl: ttl}
}

// ContactInput is a buyer message form.  Admission must already have
// passed.
type ContactInput struct {
	ListingID string
	Fields    validation.ContactInput
	Caller    Caller
}

// Submit validates and stores a message for a live listing.  A caller with
// an IP hash may leave one message per listing per cooldown window.  The
// window check is a point query before the insert, so two concurrent
// submissions can both pass.
func (c *Contacts) Submit(ctx context.Context, in ContactInput) error {
	listingID := strings.TrimSpace(in.ListingID)
	if listingID == "" {
		return invalid(MsgListingIDMissing)
	}
	fields, err := validation.BuyerContact(in.Fields, c.limits)
	if err != nil {
		return fromValidation(err)
	}

	now := c.clock.Now().Unix()
	l, err := c.listings.ListingByID(ctx, listingID)
	if err != nil || !l.Live(now) {
		if err != nil && !isNotFound(err) {
			return internal("listing lookup", err)
		}
		return notFound(MsgListingGone)
	}

	if in.Caller.IPHash != "" {
		since := now - int64(c.limits.ContactCooldown.Seconds())
		recent, err := c.contacts.RecentContactExists(ctx, listingID, in.Caller.IPHash, since)
		if err != nil {
			return internal("contact cooldown", err)
		}
		if recent {
			return rateLimited(MsgCooldown)
		}
	}

	contact := &model.BuyerContact{
		ID:                utils.NewID(),
		ListingID:         listingID,
		CreatedAt:         now,
		ExpiresAt:         now + int64(c.ttl.Contact.Seconds()),
		BuyerEmail:        fields.BuyerEmail,
		BuyerPhone:        fields.BuyerPhone,
		BuyerPhoneMethods: fields.BuyerPhoneMethods,
		Message:           fields.Message,
	}
	if h := in.Caller.hashPtr(); h != nil {
		contact.IPHash = h
		contact.IPStoredAt = &now
	}
	if err := c.contacts.InsertContact(ctx, contact); err != nil {
		return internal("insert contact", err)
	}
	return nil
}
