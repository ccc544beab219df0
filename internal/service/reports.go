package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/repository"
	"github.com/iliyamo/bike-marketplace/internal/utils"
	"github.com/iliyamo/bike-marketplace/internal/validation"
)

// Reports handles moderation reports.
type Reports struct {
	listings ListingStore
	reports  ReportStore
	clock    clock.Clock
	limits   config.Limits
}

func NewReports(listings ListingStore, reports ReportStore, clk clock.Clock, limits config.Limits) *Reports {
	return &Reports{listings: listings, reports: reports, clock: clk, limits: limits}
}

// ReportInput is a submitted report.  Admission must already have passed.
type ReportInput struct {
	ListingID string
	Reason    string
	Details   string
	Caller    Caller
}

// Submit stores an open report against an existing listing in any status.
func (r *Reports) Submit(ctx context.Context, in ReportInput) error {
	listingID := strings.TrimSpace(in.ListingID)
	if listingID == "" {
		return invalid(MsgListingIDMissing)
	}
	if _, err := r.listings.ListingByID(ctx, listingID); err != nil {
		if isNotFound(err) {
			return notFound(MsgListingNotFound)
		}
		return internal("listing lookup", err)
	}
	fields, err := validation.Report(in.Reason, in.Details, r.limits)
	if err != nil {
		return fromValidation(err)
	}
	now := r.clock.Now().Unix()
	rep := &model.Report{
		ID:        utils.NewID(),
		ListingID: listingID,
		CreatedAt: now,
		Reason:    fields.Reason,
		Details:   fields.Details,
		Status:    model.ReportOpen,
	}
	if h := in.Caller.hashPtr(); h != nil {
		rep.IPHash = h
		rep.IPStoredAt = &now
	}
	if err := r.reports.InsertReport(ctx, rep); err != nil {
		return internal("insert report", err)
	}
	return nil
}

// View returns a report, moving an open one to under_review.
func (r *Reports) View(ctx context.Context, id string) (*model.Report, error) {
	rep, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status == model.ReportOpen {
		if _, err := r.advance(ctx, rep, model.ReportUnderReview); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

// SetStatus moves a report forward.  Setting the current status reports
// noChange; moving backwards is rejected.
func (r *Reports) SetStatus(ctx context.Context, id, status string) (noChange bool, err error) {
	target := model.ReportStatus(strings.TrimSpace(status))
	if strings.TrimSpace(id) == "" || (target != model.ReportUnderReview && target != model.ReportDone) {
		return false, invalid("Invalid status.")
	}
	rep, err := r.get(ctx, id)
	if err != nil {
		return false, err
	}
	return r.advance(ctx, rep, target)
}

func (r *Reports) advance(ctx context.Context, rep *model.Report, target model.ReportStatus) (bool, error) {
	switch {
	case rep.Status == target:
		return true, nil
	case target.Order() < rep.Status.Order():
		return false, invalid("Invalid status transition.")
	}
	now := r.clock.Now().Unix()
	rep.Status = target
	if rep.SeenAt == nil {
		rep.SeenAt = &now
	}
	if target == model.ReportDone {
		rep.DoneAt = &now
	}
	if err := r.reports.SaveReportStatus(ctx, rep); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound(MsgReportNotFound)
		}
		return false, internal("save report status", err)
	}
	return false, nil
}

func (r *Reports) get(ctx context.Context, id string) (*model.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, notFound(MsgReportNotFound)
	}
	rep, err := r.reports.ReportByID(ctx, id)
	if isNotFound(err) {
		return nil, notFound(MsgReportNotFound)
	}
	if err != nil {
		return nil, internal("report lookup", err)
	}
	return rep, nil
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
