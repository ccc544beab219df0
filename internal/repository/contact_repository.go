package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bike-marketplace/internal/model"
)

// contactRow mirrors the 'buyer_contacts' table.
type contactRow struct {
	ID           string         `db:"contact_id"`
	ListingID    string         `db:"listing_id"`
	CreatedAt    int64          `db:"created_at"`
	ExpiresAt    int64          `db:"expires_at"`
	BuyerEmail   sql.NullString `db:"buyer_email"`
	BuyerPhone   sql.NullString `db:"buyer_phone"`
	PhoneMethods string         `db:"buyer_phone_methods_json"`
	Message      string         `db:"message"`
	IPHash       sql.NullString `db:"ip_hash"`
	IPStoredAt   sql.NullInt64  `db:"ip_stored_at"`
}

func (r contactRow) model() model.BuyerContact {
	return model.BuyerContact{
		ID:                r.ID,
		ListingID:         r.ListingID,
		CreatedAt:         r.CreatedAt,
		ExpiresAt:         r.ExpiresAt,
		BuyerEmail:        stringPtr(r.BuyerEmail),
		BuyerPhone:        stringPtr(r.BuyerPhone),
		BuyerPhoneMethods: decodeStrings(r.PhoneMethods),
		Message:           r.Message,
		IPHash:            stringPtr(r.IPHash),
		IPStoredAt:        intPtr(r.IPStoredAt),
	}
}

const contactColumns = "c.contact_id, c.listing_id, c.created_at, c.expires_at, c.buyer_email, c.buyer_phone, " +
	"c.buyer_phone_methods_json, c.message, c.ip_hash, c.ip_stored_at"

// ContactRepo manages persistence for buyer contacts.
type ContactRepo struct{ db *sqlx.DB }

func NewContactRepo(db *sqlx.DB) *ContactRepo { return &ContactRepo{db: db} }

// InsertContact stores a buyer message.
func (r *ContactRepo) InsertContact(ctx context.Context, c *model.BuyerContact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO buyer_contacts (contact_id, listing_id, created_at, expires_at, buyer_email, buyer_phone,
			buyer_phone_methods_json, message, ip_hash, ip_stored_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ListingID, c.CreatedAt, c.ExpiresAt, nullString(c.BuyerEmail), nullString(c.BuyerPhone),
		encodeStrings(c.BuyerPhoneMethods), c.Message, nullString(c.IPHash), nullInt(c.IPStoredAt))
	return duplicate(err)
}

// RecentContactExists is the point query behind the contact cooldown.
func (r *ContactRepo) RecentContactExists(ctx context.Context, listingID, ipHash string, since int64) (bool, error) {
	var id string
	err := r.db.GetContext(ctx, &id,
		"SELECT contact_id FROM buyer_contacts WHERE listing_id=? AND ip_hash=? AND created_at >= ? LIMIT 1",
		listingID, ipHash, since)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteContactsForListing removes every message for a listing.
func (r *ContactRepo) DeleteContactsForListing(ctx context.Context, listingID string) (int64, error) {
	return r.exec(ctx, "DELETE FROM buyer_contacts WHERE listing_id=?", listingID)
}

// DeleteExpiredContacts removes messages past their own expiry.
func (r *ContactRepo) DeleteExpiredContacts(ctx context.Context, now int64) (int64, error) {
	return r.exec(ctx, "DELETE FROM buyer_contacts WHERE expires_at < ?", now)
}

// ContactsForSeller returns messages on the seller's listings, newest first.
func (r *ContactRepo) ContactsForSeller(ctx context.Context, sellerID string) ([]model.BuyerContact, error) {
	return r.selectContacts(ctx,
		"SELECT "+contactColumns+" FROM buyer_contacts c JOIN listings l ON c.listing_id = l.listing_id "+
			"WHERE l.seller_id=? ORDER BY c.created_at DESC", sellerID)
}

// AllContacts returns every message, newest first.
func (r *ContactRepo) AllContacts(ctx context.Context) ([]model.BuyerContact, error) {
	return r.selectContacts(ctx, "SELECT "+contactColumns+" FROM buyer_contacts c ORDER BY c.created_at DESC")
}

// ScrubContactIPs nulls IP hashes stored before the cut.
func (r *ContactRepo) ScrubContactIPs(ctx context.Context, before int64) (int64, error) {
	return scrubIPs(ctx, r.db, "buyer_contacts", before)
}

func (r *ContactRepo) selectContacts(ctx context.Context, q string, args ...any) ([]model.BuyerContact, error) {
	var rows []contactRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.BuyerContact, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (r *ContactRepo) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
