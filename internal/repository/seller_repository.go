package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bike-marketplace/internal/model"
)

// sellerRow mirrors the 'sellers' table.
type sellerRow struct {
	ID          string        `db:"seller_id"`
	TokenHash   string        `db:"seller_token_hash"`
	CreatedAt   int64         `db:"created_at"`
	LastLoginAt sql.NullInt64 `db:"last_login_at"`
}

func (r sellerRow) model() *model.Seller {
	s := &model.Seller{ID: r.ID, TokenHash: r.TokenHash, CreatedAt: r.CreatedAt}
	if r.LastLoginAt.Valid {
		v := r.LastLoginAt.Int64
		s.LastLoginAt = &v
	}
	return s
}

// SellerRepo manages persistence for sellers.
type SellerRepo struct{ db *sqlx.DB }

func NewSellerRepo(db *sqlx.DB) *SellerRepo { return &SellerRepo{db: db} }

const sellerColumns = "seller_id, seller_token_hash, created_at, last_login_at"

// InsertSeller stores a new seller.
func (r *SellerRepo) InsertSeller(ctx context.Context, s *model.Seller) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sellers (seller_id, seller_token_hash, created_at, last_login_at) VALUES (?,?,?,?)",
		s.ID, s.TokenHash, s.CreatedAt, nullInt(s.LastLoginAt))
	return duplicate(err)
}

// SellerByTokenHash finds the seller owning hash.
func (r *SellerRepo) SellerByTokenHash(ctx context.Context, hash string) (*model.Seller, error) {
	var row sellerRow
	err := r.db.GetContext(ctx, &row,
		"SELECT "+sellerColumns+" FROM sellers WHERE seller_token_hash=? LIMIT 1", hash)
	if err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

// SellerByID fetches a seller by id.
func (r *SellerRepo) SellerByID(ctx context.Context, id string) (*model.Seller, error) {
	var row sellerRow
	err := r.db.GetContext(ctx, &row,
		"SELECT "+sellerColumns+" FROM sellers WHERE seller_id=? LIMIT 1", id)
	if err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

// UpdateSellerToken replaces the token hash of a seller.
func (r *SellerRepo) UpdateSellerToken(ctx context.Context, sellerID, hash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE sellers SET seller_token_hash=? WHERE seller_id=?", hash, sellerID)
	if err != nil {
		return duplicate(err)
	}
	return requireRow(res)
}

// TouchSellerLogin records the dashboard login time.
func (r *SellerRepo) TouchSellerLogin(ctx context.Context, sellerID string, at int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sellers SET last_login_at=? WHERE seller_id=?", at, sellerID)
	return err
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// requireRow turns a zero-row UPDATE into ErrNotFound.  The DSN sets
// clientFoundRows, so rows matched with unchanged values still count.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
