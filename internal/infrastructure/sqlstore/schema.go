package sqlstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS auctions (
        id VARCHAR(64) PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        description TEXT NOT NULL,
        category VARCHAR(64) NOT NULL,
        item_condition VARCHAR(64) NOT NULL,
        images TEXT NOT NULL,
        location VARCHAR(255) NOT NULL,
        shipping VARCHAR(255) NOT NULL,
        returns VARCHAR(255) NOT NULL,
        seller_id VARCHAR(64) NOT NULL,
        starting_price DECIMAL(18,6) NOT NULL,
        current_bid DECIMAL(18,6) NOT NULL,
        min_bid_increment DECIMAL(18,6) NOT NULL,
        highest_bidder_id VARCHAR(64) NULL,
        bid_count INT NOT NULL DEFAULT 0,
        views INT NOT NULL DEFAULT 0,
        status VARCHAR(16) NOT NULL,
        end_time DATETIME(6) NOT NULL,
        sold_to VARCHAR(64) NULL,
        final_bid_amount DECIMAL(18,6) NULL,
        created_at DATETIME(6) NOT NULL,
        updated_at DATETIME(6) NOT NULL,
        INDEX idx_auctions_status_end (status, end_time)
    )`,
	`CREATE TABLE IF NOT EXISTS bids (
        id VARCHAR(64) PRIMARY KEY,
        auction_id VARCHAR(64) NOT NULL,
        bidder_id VARCHAR(64) NOT NULL,
        amount DECIMAL(18,6) NOT NULL,
        seq INT NOT NULL,
        created_at DATETIME(6) NOT NULL,
        UNIQUE KEY uq_bids_auction_seq (auction_id, seq),
        CONSTRAINT fk_bids_auction FOREIGN KEY (auction_id) REFERENCES auctions (id) ON DELETE CASCADE
    )`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id VARCHAR(64) PRIMARY KEY,
        user_id VARCHAR(64) NOT NULL,
        type VARCHAR(16) NOT NULL,
        message TEXT NOT NULL,
        auction_id VARCHAR(64) NOT NULL,
        dedupe_key VARCHAR(191) NOT NULL,
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME(6) NOT NULL,
        UNIQUE KEY uq_notifications_dedupe (dedupe_key),
        INDEX idx_notifications_user (user_id, created_at)
    )`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS auctions (
        id VARCHAR(64) PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        description TEXT NOT NULL,
        category VARCHAR(64) NOT NULL,
        item_condition VARCHAR(64) NOT NULL,
        images TEXT NOT NULL,
        location VARCHAR(255) NOT NULL,
        shipping VARCHAR(255) NOT NULL,
        returns VARCHAR(255) NOT NULL,
        seller_id VARCHAR(64) NOT NULL,
        starting_price NUMERIC(18,6) NOT NULL,
        current_bid NUMERIC(18,6) NOT NULL,
        min_bid_increment NUMERIC(18,6) NOT NULL,
        highest_bidder_id VARCHAR(64),
        bid_count INTEGER NOT NULL DEFAULT 0,
        views INTEGER NOT NULL DEFAULT 0,
        status VARCHAR(16) NOT NULL,
        end_time TIMESTAMPTZ NOT NULL,
        sold_to VARCHAR(64),
        final_bid_amount NUMERIC(18,6),
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_status_end ON auctions (status, end_time)`,
	`CREATE TABLE IF NOT EXISTS bids (
        id VARCHAR(64) PRIMARY KEY,
        auction_id VARCHAR(64) NOT NULL REFERENCES auctions (id) ON DELETE CASCADE,
        bidder_id VARCHAR(64) NOT NULL,
        amount NUMERIC(18,6) NOT NULL,
        seq INTEGER NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        UNIQUE (auction_id, seq)
    )`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id VARCHAR(64) PRIMARY KEY,
        user_id VARCHAR(64) NOT NULL,
        type VARCHAR(16) NOT NULL,
        message TEXT NOT NULL,
        auction_id VARCHAR(64) NOT NULL,
        dedupe_key VARCHAR(191) NOT NULL UNIQUE,
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at)`,
}

// Migrate creates the engine's tables. The users table belongs to the
// identity service and is not touched here.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	statements := mysqlSchema
	if dialect == Postgres {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate schema")
		}
	}
	return nil
}
