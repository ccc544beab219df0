package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bike-marketplace/internal/model"
)

// reportRow mirrors the 'reports' table.
type reportRow struct {
	ID         string         `db:"report_id"`
	ListingID  string         `db:"listing_id"`
	CreatedAt  int64          `db:"created_at"`
	Reason     string         `db:"reason"`
	Details    sql.NullString `db:"details"`
	Status     string         `db:"status"`
	SeenAt     sql.NullInt64  `db:"seen_at"`
	DoneAt     sql.NullInt64  `db:"done_at"`
	IPHash     sql.NullString `db:"ip_hash"`
	IPStoredAt sql.NullInt64  `db:"ip_stored_at"`
}

func (r reportRow) model() model.Report {
	return model.Report{
		ID:         r.ID,
		ListingID:  r.ListingID,
		CreatedAt:  r.CreatedAt,
		Reason:     r.Reason,
		Details:    stringPtr(r.Details),
		Status:     model.ReportStatus(r.Status),
		SeenAt:     intPtr(r.SeenAt),
		DoneAt:     intPtr(r.DoneAt),
		IPHash:     stringPtr(r.IPHash),
		IPStoredAt: intPtr(r.IPStoredAt),
	}
}

const reportColumns = "report_id, listing_id, created_at, reason, details, status, seen_at, done_at, ip_hash, ip_stored_at"

// ReportRepo manages persistence for moderation reports.
type ReportRepo struct{ db *sqlx.DB }

func NewReportRepo(db *sqlx.DB) *ReportRepo { return &ReportRepo{db: db} }

// InsertReport stores a new report.
func (r *ReportRepo) InsertReport(ctx context.Context, rep *model.Report) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO reports ("+reportColumns+") VALUES (?,?,?,?,?,?,?,?,?,?)",
		rep.ID, rep.ListingID, rep.CreatedAt, rep.Reason, nullString(rep.Details), string(rep.Status),
		nullInt(rep.SeenAt), nullInt(rep.DoneAt), nullString(rep.IPHash), nullInt(rep.IPStoredAt))
	return duplicate(err)
}

// ReportByID fetches one report.
func (r *ReportRepo) ReportByID(ctx context.Context, id string) (*model.Report, error) {
	var row reportRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+reportColumns+" FROM reports WHERE report_id=? LIMIT 1", id); err != nil {
		return nil, notFound(err)
	}
	rep := row.model()
	return &rep, nil
}

// SaveReportStatus writes the status columns of rep.
func (r *ReportRepo) SaveReportStatus(ctx context.Context, rep *model.Report) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reports SET status=?, seen_at=?, done_at=? WHERE report_id=?",
		string(rep.Status), nullInt(rep.SeenAt), nullInt(rep.DoneAt), rep.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AllReports returns every report, newest first.
func (r *ReportRepo) AllReports(ctx context.Context) ([]model.Report, error) {
	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT "+reportColumns+" FROM reports ORDER BY created_at DESC"); err != nil {
		return nil, err
	}
	out := make([]model.Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

// DeleteReportsBefore prunes reports created before the cut.
func (r *ReportRepo) DeleteReportsBefore(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE created_at < ?", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ScrubReportIPs nulls IP hashes stored before the cut.
func (r *ReportRepo) ScrubReportIPs(ctx context.Context, before int64) (int64, error) {
	return scrubIPs(ctx, r.db, "reports", before)
}
