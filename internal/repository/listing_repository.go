package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bike-marketplace/internal/model"
)

// listingRow mirrors the 'listings' table.  Array columns hold JSON text.
type listingRow struct {
	ID                 string         `db:"listing_id"`
	SellerID           string         `db:"seller_id"`
	CreatedAt          int64          `db:"created_at"`
	ExpiresAt          int64          `db:"expires_at"`
	Status             string         `db:"status"`
	Rank               int64          `db:"rank"`
	PriceSEK           int64          `db:"price_sek"`
	Brand              string         `db:"brand"`
	Type               string         `db:"type"`
	Condition          string         `db:"condition"`
	WheelSizeIn        float64        `db:"wheel_size_in"`
	Features           string         `db:"features_json"`
	Faults             string         `db:"faults_json"`
	Location           string         `db:"location"`
	Description        sql.NullString `db:"description"`
	DeliveryPossible   bool           `db:"delivery_possible"`
	DeliveryPriceSEK   sql.NullInt64  `db:"delivery_price_sek"`
	ContactMode        string         `db:"contact_mode"`
	CurrencyMode       string         `db:"currency_mode"`
	PaymentMethods     string         `db:"payment_methods_json"`
	PublicEmail        sql.NullString `db:"public_email"`
	PublicPhone        sql.NullString `db:"public_phone"`
	PublicPhoneMethods string         `db:"public_phone_methods_json"`
	ImageKeys          string         `db:"image_keys_json"`
	ImageSizes         string         `db:"image_sizes_json"`
	IPHash             sql.NullString `db:"ip_hash"`
	IPStoredAt         sql.NullInt64  `db:"ip_stored_at"`
}

func (r listingRow) model() model.Listing {
	return model.Listing{
		ID:                 r.ID,
		SellerID:           r.SellerID,
		CreatedAt:          r.CreatedAt,
		ExpiresAt:          r.ExpiresAt,
		Status:             model.ListingStatus(r.Status),
		Rank:               r.Rank,
		PriceSEK:           r.PriceSEK,
		Brand:              r.Brand,
		Type:               r.Type,
		Condition:          r.Condition,
		WheelSizeIn:        r.WheelSizeIn,
		Features:           decodeStrings(r.Features),
		Faults:             decodeStrings(r.Faults),
		Location:           r.Location,
		Description:        stringPtr(r.Description),
		DeliveryPossible:   r.DeliveryPossible,
		DeliveryPriceSEK:   intPtr(r.DeliveryPriceSEK),
		ContactMode:        model.ContactMode(r.ContactMode),
		CurrencyMode:       r.CurrencyMode,
		PaymentMethods:     decodeStrings(r.PaymentMethods),
		PublicEmail:        stringPtr(r.PublicEmail),
		PublicPhone:        stringPtr(r.PublicPhone),
		PublicPhoneMethods: decodeStrings(r.PublicPhoneMethods),
		ImageKeys:          decodeStrings(r.ImageKeys),
		ImageSizes:         decodeSizes(r.ImageSizes),
		IPHash:             stringPtr(r.IPHash),
		IPStoredAt:         intPtr(r.IPStoredAt),
	}
}

func rowFromListing(l *model.Listing) listingRow {
	return listingRow{
		ID:                 l.ID,
		SellerID:           l.SellerID,
		CreatedAt:          l.CreatedAt,
		ExpiresAt:          l.ExpiresAt,
		Status:             string(l.Status),
		Rank:               l.Rank,
		PriceSEK:           l.PriceSEK,
		Brand:              l.Brand,
		Type:               l.Type,
		Condition:          l.Condition,
		WheelSizeIn:        l.WheelSizeIn,
		Features:           encodeStrings(l.Features),
		Faults:             encodeStrings(l.Faults),
		Location:           l.Location,
		Description:        nullString(l.Description),
		DeliveryPossible:   l.DeliveryPossible,
		DeliveryPriceSEK:   nullInt(l.DeliveryPriceSEK),
		ContactMode:        string(l.ContactMode),
		CurrencyMode:       l.CurrencyMode,
		PaymentMethods:     encodeStrings(l.PaymentMethods),
		PublicEmail:        nullString(l.PublicEmail),
		PublicPhone:        nullString(l.PublicPhone),
		PublicPhoneMethods: encodeStrings(l.PublicPhoneMethods),
		ImageKeys:          encodeStrings(l.ImageKeys),
		ImageSizes:         encodeSizes(l.ImageSizes),
		IPHash:             nullString(l.IPHash),
		IPStoredAt:         nullInt(l.IPStoredAt),
	}
}

// rank and condition are reserved words in MySQL 8.
const listingColumns = "listing_id, seller_id, created_at, expires_at, status, `rank`, price_sek, brand, type, " +
	"`condition`, wheel_size_in, features_json, faults_json, location, description, delivery_possible, " +
	"delivery_price_sek, contact_mode, currency_mode, payment_methods_json, public_email, public_phone, " +
	"public_phone_methods_json, image_keys_json, image_sizes_json, ip_hash, ip_stored_at"

// ListingRepo manages persistence for listings.
type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

// InsertListing stores a new listing row.
func (r *ListingRepo) InsertListing(ctx context.Context, l *model.Listing) error {
	const q = "INSERT INTO listings (" + listingColumns + ") VALUES (" +
		":listing_id, :seller_id, :created_at, :expires_at, :status, :rank, :price_sek, :brand, :type, " +
		":condition, :wheel_size_in, :features_json, :faults_json, :location, :description, :delivery_possible, " +
		":delivery_price_sek, :contact_mode, :currency_mode, :payment_methods_json, :public_email, :public_phone, " +
		":public_phone_methods_json, :image_keys_json, :image_sizes_json, :ip_hash, :ip_stored_at)"
	_, err := r.db.NamedExecContext(ctx, q, rowFromListing(l))
	return duplicate(err)
}

// ListingByID fetches one listing in any status.
func (r *ListingRepo) ListingByID(ctx context.Context, id string) (*model.Listing, error) {
	var row listingRow
	if err := r.db.GetContext(ctx, &row,
		"SELECT "+listingColumns+" FROM listings WHERE listing_id=? LIMIT 1", id); err != nil {
		return nil, notFound(err)
	}
	l := row.model()
	return &l, nil
}

// UpdateListing rewrites the editable columns and the image arrays.
func (r *ListingRepo) UpdateListing(ctx context.Context, l *model.Listing) error {
	const q = "UPDATE listings SET price_sek=:price_sek, brand=:brand, type=:type, `condition`=:condition, " +
		"wheel_size_in=:wheel_size_in, features_json=:features_json, faults_json=:faults_json, location=:location, " +
		"currency_mode=:currency_mode, payment_methods_json=:payment_methods_json, description=:description, " +
		"delivery_possible=:delivery_possible, delivery_price_sek=:delivery_price_sek, contact_mode=:contact_mode, " +
		"public_email=:public_email, public_phone=:public_phone, public_phone_methods_json=:public_phone_methods_json, " +
		"image_keys_json=:image_keys_json, image_sizes_json=:image_sizes_json WHERE listing_id=:listing_id"
	res, err := r.db.NamedExecContext(ctx, q, rowFromListing(l))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateListingPrice sets a new price.
func (r *ListingRepo) UpdateListingPrice(ctx context.Context, id string, price int64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE listings SET price_sek=? WHERE listing_id=?", price, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteListing removes the row and reports whether one existed.
func (r *ListingRepo) DeleteListing(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM listings WHERE listing_id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetListingRank assigns rank and reports whether the row exists.
func (r *ListingRepo) SetListingRank(ctx context.Context, id string, rank int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE listings SET `rank`=? WHERE listing_id=?", rank, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ListingRepo) selectListings(ctx context.Context, where string, args ...any) ([]model.Listing, error) {
	var rows []listingRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT "+listingColumns+" FROM listings "+where, args...); err != nil {
		return nil, err
	}
	out := make([]model.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

// LiveListings returns active, unexpired listings in display order.
func (r *ListingRepo) LiveListings(ctx context.Context, now int64) ([]model.Listing, error) {
	return r.selectListings(ctx,
		"WHERE status='active' AND expires_at >= ? ORDER BY `rank` DESC, created_at DESC", now)
}

// AllListings returns every listing, newest first.
func (r *ListingRepo) AllListings(ctx context.Context) ([]model.Listing, error) {
	return r.selectListings(ctx, "ORDER BY created_at DESC")
}

// ListingsBySeller returns the seller's listings, newest first.
func (r *ListingRepo) ListingsBySeller(ctx context.Context, sellerID string) ([]model.Listing, error) {
	return r.selectListings(ctx, "WHERE seller_id=? ORDER BY created_at DESC", sellerID)
}

// ExtendSellerListings pushes expires_at of the seller's live listings.
func (r *ListingRepo) ExtendSellerListings(ctx context.Context, sellerID string, now, by int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE listings SET expires_at = expires_at + ? WHERE seller_id=? AND status='active' AND expires_at >= ?",
		by, sellerID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListingsToExpire returns active listings past expires_at.
func (r *ListingRepo) ListingsToExpire(ctx context.Context, now int64) ([]model.Listing, error) {
	return r.selectListings(ctx, "WHERE status='active' AND expires_at < ?", now)
}

// MarkListingExpired transitions a listing to expired and drops its images.
func (r *ListingRepo) MarkListingExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE listings SET status='expired', image_keys_json='[]', image_sizes_json='[]' WHERE listing_id=?", id)
	return err
}

// ExpiredListingIDs returns expired listings whose expires_at is before the cut.
func (r *ListingRepo) ExpiredListingIDs(ctx context.Context, before int64) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		"SELECT listing_id FROM listings WHERE status='expired' AND expires_at < ?", before)
	return ids, err
}

// ScrubListingIPs nulls IP hashes stored before the cut.
func (r *ListingRepo) ScrubListingIPs(ctx context.Context, before int64) (int64, error) {
	return scrubIPs(ctx, r.db, "listings", before)
}

// scrubIPs clears ip_hash and ip_stored_at on table for rows stored before
// the cut.  table is always a package constant.
func scrubIPs(ctx context.Context, db *sqlx.DB, table string, before int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		"UPDATE "+table+" SET ip_hash=NULL, ip_stored_at=NULL WHERE ip_stored_at < ?", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
