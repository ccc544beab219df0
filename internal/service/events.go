package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/queue"
)

// Event actors.
const (
	ActorSeller  = "seller"
	ActorAdmin   = "admin"
	ActorSweeper = "sweeper"
)

// emitter publishes listing events and logs failures.  A publish error
// never fails the operation that caused it.
type emitter struct {
	pub queue.Publisher
	log *zap.SugaredLogger
}

func (e emitter) emit(ctx context.Context, kind queue.EventKind, l *model.Listing, actor string, at int64) {
	if e.pub == nil {
		return
	}
	ev := queue.ListingEvent{Kind: kind, ListingID: l.ID, SellerID: l.SellerID, Actor: actor, OccurredAt: at,
		ImageCount: len(l.ImageKeys)}
	if kind == queue.ListingCreated || kind == queue.ListingPriceUpdated || kind == queue.ListingUpdated {
		p := l.PriceSEK
		ev.PriceSEK = &p
	}
	if err := e.pub.PublishListingEvent(ctx, ev); err != nil {
		e.log.Warnw("listing event dropped", "kind", kind, "listing_id", l.ID, "error", err)
	}
}
