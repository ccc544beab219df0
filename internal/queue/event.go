// Package queue defines message payloads exchanged over the message broker.
package queue

// EventKind names a listing lifecycle transition.
type EventKind string

const (
	ListingCreated      EventKind = "created"
	ListingUpdated      EventKind = "updated"
	ListingPriceUpdated EventKind = "price_updated"
	ListingDeleted      EventKind = "deleted"
	ListingExpired      EventKind = "expired"
	ListingPurged       EventKind = "purged"
)

// ListingEventsQueue is the durable queue every listing event goes to.
const ListingEventsQueue = "listing.events"

// ListingEvent is published after a listing row changes.  It carries
// enough for an audit trail without querying the primary database.
type ListingEvent struct {
	Kind       EventKind `json:"kind"`
	ListingID  string    `json:"listing_id"`
	SellerID   string    `json:"seller_id,omitempty"`
	PriceSEK   *int64    `json:"price_sek,omitempty"`
	ImageCount int       `json:"image_count"`
	Actor      string    `json:"actor"` // seller, admin or sweeper
	OccurredAt int64     `json:"occurred_at"`
}
