package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bike-marketplace/internal/model"
)

// BlocklistRepo manages the 'blocked_ips' denylist.
type BlocklistRepo struct{ db *sqlx.DB }

func NewBlocklistRepo(db *sqlx.DB) *BlocklistRepo { return &BlocklistRepo{db: db} }

// IsBlocked reports whether ipHash is on the denylist.
func (r *BlocklistRepo) IsBlocked(ctx context.Context, ipHash string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM blocked_ips WHERE ip_hash=?", ipHash); err != nil {
		return false, err
	}
	return n > 0, nil
}

// BlockIP adds an entry; an existing entry is kept as is.
func (r *BlocklistRepo) BlockIP(ctx context.Context, b model.BlockedIP) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO blocked_ips (ip_hash, created_at, reason) VALUES (?,?,?)",
		b.IPHash, b.CreatedAt, nullString(b.Reason))
	return err
}
