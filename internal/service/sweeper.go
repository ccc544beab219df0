package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/metrics"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/queue"
	"github.com/iliyamo/bike-marketplace/internal/storage"
)

// Sweeper is the retention garbage collector.  It runs at the start of
// every mutating request and every admin read.
type Sweeper struct {
	stores Stores
	blobs  *storage.Accounted
	clock  clock.Clock
	ttl    config.TTL
	events emitter
	log    *zap.SugaredLogger
}

func NewSweeper(stores Stores, blobs *storage.Accounted, clk clock.Clock, ttl config.TTL, events queue.Publisher, log *zap.SugaredLogger) *Sweeper {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sweeper{stores: stores, blobs: blobs, clock: clk, ttl: ttl, events: emitter{pub: events, log: log}, log: log}
}

// SweepResult counts what one run changed.
type SweepResult struct {
	Expired         int
	HardDeleted     int
	ContactsExpired int64
	IPsScrubbed     int64
	ReportsPruned   int64
}

// Run executes every step.  Steps are independent; a failing step is
// recorded and the remaining steps still run.  Expiry precedes hard delete.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now().Unix()
	var res SweepResult
	var errs []error

	n, err := s.expire(ctx, now)
	res.Expired = n
	errs = append(errs, err)

	n, err = s.hardDelete(ctx, now, now-int64(s.ttl.ExpiredRetention.Seconds()))
	res.HardDeleted = n
	errs = append(errs, err)

	res.ContactsExpired, err = s.stores.Contacts.DeleteExpiredContacts(ctx, now)
	errs = append(errs, wrapStep("contacts", err))

	res.IPsScrubbed, err = s.scrub(ctx, now-int64(s.ttl.IPHash.Seconds()))
	errs = append(errs, err)

	res.ReportsPruned, err = s.stores.Reports.DeleteReportsBefore(ctx, now-int64(s.ttl.Report.Seconds()))
	errs = append(errs, wrapStep("reports", err))

	metrics.SweepRows("expired", int64(res.Expired))
	metrics.SweepRows("hard_deleted", int64(res.HardDeleted))
	metrics.SweepRows("contacts", res.ContactsExpired)
	metrics.SweepRows("ip_scrub", res.IPsScrubbed)
	metrics.SweepRows("reports", res.ReportsPruned)
	return res, errors.Join(errs...)
}

// RunLogged runs the sweep and logs instead of returning an error.
func (s *Sweeper) RunLogged(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.log.Warnw("retention sweep incomplete", "error", err)
	}
}

// expire moves past-due active listings to expired.  Image release
// failures are logged and never block the status change.
func (s *Sweeper) expire(ctx context.Context, now int64) (int, error) {
	due, err := s.stores.Listings.ListingsToExpire(ctx, now)
	if err != nil {
		return 0, wrapStep("expire", err)
	}
	n := 0
	var errs []error
	for i := range due {
		l := &due[i]
		if len(l.ImageKeys) > 0 {
			if err := s.blobs.Release(ctx, l.ImageKeys, l.ImageSizes); err != nil {
				s.log.Warnw("expired listing images not fully released", "listing_id", l.ID, "error", err)
			}
		}
		if err := s.stores.Listings.MarkListingExpired(ctx, l.ID); err != nil {
			errs = append(errs, wrapStep("expire", err))
			continue
		}
		n++
		s.events.emit(ctx, queue.ListingExpired, l, ActorSweeper, now)
	}
	return n, errors.Join(errs...)
}

// hardDelete removes expired listings whose expiry is before cut, with
// their contacts.
func (s *Sweeper) hardDelete(ctx context.Context, now, cut int64) (int, error) {
	ids, err := s.stores.Listings.ExpiredListingIDs(ctx, cut)
	if err != nil {
		return 0, wrapStep("hard delete", err)
	}
	n := 0
	var errs []error
	for _, id := range ids {
		if _, err := s.stores.Contacts.DeleteContactsForListing(ctx, id); err != nil {
			errs = append(errs, wrapStep("hard delete", err))
			continue
		}
		if _, err := s.stores.Listings.DeleteListing(ctx, id); err != nil {
			errs = append(errs, wrapStep("hard delete", err))
			continue
		}
		n++
		s.events.emit(ctx, queue.ListingPurged, &model.Listing{ID: id}, ActorSweeper, now)
	}
	return n, errors.Join(errs...)
}

func (s *Sweeper) scrub(ctx context.Context, cut int64) (int64, error) {
	var total int64
	var errs []error
	for _, f := range []func(context.Context, int64) (int64, error){
		s.stores.Listings.ScrubListingIPs,
		s.stores.Contacts.ScrubContactIPs,
		s.stores.Reports.ScrubReportIPs,
	} {
		n, err := f(ctx, cut)
		total += n
		errs = append(errs, wrapStep("ip scrub", err))
	}
	return total, errors.Join(errs...)
}

func wrapStep(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("sweep %s: %w", step, err)
}
