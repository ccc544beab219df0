package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates every table the marketplace uses.  JSON arrays are kept in
// TEXT columns; timestamps are unix seconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sellers (
		seller_id         VARCHAR(40)  NOT NULL PRIMARY KEY,
		seller_token_hash VARCHAR(128) NOT NULL,
		created_at        BIGINT       NOT NULL,
		last_login_at     BIGINT       NULL,
		UNIQUE KEY uq_sellers_token (seller_token_hash)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"CREATE TABLE IF NOT EXISTS listings (" +
		"listing_id VARCHAR(40) NOT NULL PRIMARY KEY," +
		"seller_id VARCHAR(40) NOT NULL," +
		"created_at BIGINT NOT NULL," +
		"expires_at BIGINT NOT NULL," +
		"status VARCHAR(16) NOT NULL DEFAULT 'active'," +
		"`rank` BIGINT NOT NULL DEFAULT 0," +
		"price_sek BIGINT NOT NULL," +
		"brand VARCHAR(160) NOT NULL," +
		"type VARCHAR(32) NOT NULL," +
		"`condition` VARCHAR(32) NOT NULL," +
		"wheel_size_in DOUBLE NOT NULL," +
		"features_json TEXT NOT NULL," +
		"faults_json TEXT NOT NULL," +
		"location VARCHAR(100) NOT NULL," +
		"description TEXT NULL," +
		"delivery_possible TINYINT(1) NOT NULL DEFAULT 0," +
		"delivery_price_sek BIGINT NULL," +
		"contact_mode VARCHAR(32) NOT NULL," +
		"currency_mode VARCHAR(32) NOT NULL," +
		"payment_methods_json TEXT NOT NULL," +
		"public_email VARCHAR(255) NULL," +
		"public_phone VARCHAR(64) NULL," +
		"public_phone_methods_json TEXT NOT NULL," +
		"image_keys_json TEXT NOT NULL," +
		"image_sizes_json TEXT NOT NULL," +
		"ip_hash VARCHAR(128) NULL," +
		"ip_stored_at BIGINT NULL," +
		"KEY idx_listings_status_expires (status, expires_at)," +
		"KEY idx_listings_seller (seller_id)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",

	`CREATE TABLE IF NOT EXISTS buyer_contacts (
		contact_id               VARCHAR(40)  NOT NULL PRIMARY KEY,
		listing_id               VARCHAR(40)  NOT NULL,
		created_at               BIGINT       NOT NULL,
		expires_at               BIGINT       NOT NULL,
		buyer_email              VARCHAR(255) NULL,
		buyer_phone              VARCHAR(64)  NULL,
		buyer_phone_methods_json TEXT         NOT NULL,
		message                  TEXT         NOT NULL,
		ip_hash                  VARCHAR(128) NULL,
		ip_stored_at             BIGINT       NULL,
		KEY idx_contacts_listing (listing_id, ip_hash, created_at),
		KEY idx_contacts_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reports (
		report_id    VARCHAR(40)  NOT NULL PRIMARY KEY,
		listing_id   VARCHAR(40)  NOT NULL,
		created_at   BIGINT       NOT NULL,
		reason       VARCHAR(255) NOT NULL,
		details      TEXT         NULL,
		status       VARCHAR(16)  NOT NULL DEFAULT 'open',
		seen_at      BIGINT       NULL,
		done_at      BIGINT       NULL,
		ip_hash      VARCHAR(128) NULL,
		ip_stored_at BIGINT       NULL,
		KEY idx_reports_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS blocked_ips (
		ip_hash    VARCHAR(128) NOT NULL PRIMARY KEY,
		created_at BIGINT       NOT NULL,
		reason     VARCHAR(255) NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS usage_monthly (
		period_key   CHAR(7) NOT NULL PRIMARY KEY,
		period_start BIGINT  NOT NULL,
		class_a_ops  BIGINT  NOT NULL DEFAULT 0,
		class_b_ops  BIGINT  NOT NULL DEFAULT 0,
		api_requests BIGINT  NOT NULL DEFAULT 0,
		updated_at   BIGINT  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS usage_state (
		state_key   VARCHAR(64)  NOT NULL PRIMARY KEY,
		state_value VARCHAR(255) NOT NULL,
		updated_at  BIGINT       NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables.  Existing tables are left alone.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
