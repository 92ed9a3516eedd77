package sqlstore

import (
	"context"
	"database/sql"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/utils"

	"github.com/pkg/errors"
)

var _ repositories.BidRepository = (*BidRepository)(nil)

type BidRepository struct {
	conn
}

func NewBidRepository(db *sql.DB, dialect Dialect, retry utils.RetryPolicy) *BidRepository {
	return &BidRepository{conn: conn{db: db, dialect: dialect, retry: retry}}
}

func (r *BidRepository) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, seq, created_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY seq ASC
    `

	var bids []*domain.Bid
	err := r.do(ctx, "list bids", func() error {
		bids = bids[:0]
		rows, err := r.db.QueryContext(ctx, r.q(query), auctionID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var bid domain.Bid
			if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount, &bid.Seq, &bid.CreatedAt); err != nil {
				return err
			}
			bids = append(bids, &bid)
		}
		return rows.Err()
	})
	return bids, err
}

func (r *BidRepository) LatestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, seq, created_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY seq DESC
        LIMIT 1
    `

	var bid domain.Bid
	err := r.do(ctx, "latest bid", func() error {
		return r.db.QueryRowContext(ctx, r.q(query), auctionID).
			Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount, &bid.Seq, &bid.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}
