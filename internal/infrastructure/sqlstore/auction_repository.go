package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/utils"

	"github.com/pkg/errors"
)

var _ repositories.AuctionRepository = (*AuctionRepository)(nil)

type AuctionRepository struct {
	conn
}

func NewAuctionRepository(db *sql.DB, dialect Dialect, retry utils.RetryPolicy) *AuctionRepository {
	return &AuctionRepository{conn: conn{db: db, dialect: dialect, retry: retry}}
}

const auctionColumns = `id, title, description, category, item_condition, images, location, shipping, returns,
        seller_id, starting_price, current_bid, min_bid_increment, highest_bidder_id, bid_count, views,
        status, end_time, sold_to, final_bid_amount, created_at, updated_at`

func (r *AuctionRepository) CreateAuction(ctx context.Context, auction *domain.AuctionItem) error {
	images, err := json.Marshal(auction.Images)
	if err != nil {
		return errors.Wrap(err, "encode images")
	}

	query := `
        INSERT INTO auctions (id, title, description, category, item_condition, images, location, shipping, returns,
            seller_id, starting_price, current_bid, min_bid_increment, highest_bidder_id, bid_count, views,
            status, end_time, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	return r.do(ctx, "create auction", func() error {
		_, err := r.db.ExecContext(ctx, r.q(query),
			auction.ID, auction.Title, auction.Description, auction.Category, auction.Condition,
			string(images), auction.Location, auction.Shipping, auction.Returns,
			auction.SellerID, amountParam(auction.StartingPrice), amountParam(auction.CurrentBid),
			amountParam(auction.MinBidIncrement), auction.HighestBidderID, auction.BidCount, auction.Views,
			auction.Status.String(), auction.EndTime.UTC(), auction.CreatedAt.UTC(), auction.UpdatedAt.UTC())
		return err
	})
}

func (r *AuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.AuctionItem, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	var auction *domain.AuctionItem
	err := r.do(ctx, "get auction", func() error {
		var err error
		auction, err = scanAuction(r.db.QueryRowContext(ctx, r.q(query), auctionID))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "auction %s", auctionID)
	}
	if err != nil {
		return nil, err
	}
	return auction, nil
}

func (r *AuctionRepository) CompareAndUpdatePrice(ctx context.Context, auctionID string, expectedCurrentBid float64, bid *domain.Bid) error {
	update := `
        UPDATE auctions
        SET current_bid = ?, highest_bidder_id = ?, bid_count = bid_count + 1, updated_at = ?
        WHERE id = ? AND status = ? AND current_bid = ? AND end_time > ?
    `
	insert := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, seq, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `

	return r.do(ctx, "compare and update price", func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		createdAt := bid.CreatedAt.UTC()
		res, err := tx.ExecContext(ctx, r.q(update),
			amountParam(bid.Amount), bid.BidderID, createdAt,
			auctionID, domain.AuctionActive.String(), amountParam(expectedCurrentBid), createdAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrStaleState
		}

		var seq int
		if err := tx.QueryRowContext(ctx, r.q(`SELECT bid_count FROM auctions WHERE id = ?`), auctionID).Scan(&seq); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, r.q(insert),
			bid.ID, auctionID, bid.BidderID, amountParam(bid.Amount), seq, createdAt); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		bid.Seq = seq
		return nil
	})
}

func (r *AuctionRepository) TransitionToEnded(ctx context.Context, auctionID string, expectedCurrentBid float64, outcome domain.ClosingOutcome) error {
	update := `
        UPDATE auctions
        SET status = ?, sold_to = ?, final_bid_amount = ?, updated_at = ?
        WHERE id = ? AND status = ? AND current_bid = ?
    `

	return r.do(ctx, "transition to ended", func() error {
		var soldTo sql.NullString
		if outcome.WinnerID != nil {
			soldTo = sql.NullString{String: *outcome.WinnerID, Valid: true}
		}

		res, err := r.db.ExecContext(ctx, r.q(update),
			outcome.Status.String(), soldTo, amountParam(outcome.FinalBidAmount), outcome.ClosedAt.UTC(),
			auctionID, domain.AuctionActive.String(), amountParam(expectedCurrentBid))
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 1 {
			return nil
		}

		var status string
		err = r.db.QueryRowContext(ctx, r.q(`SELECT status FROM auctions WHERE id = ?`), auctionID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(domain.ErrNotFound, "auction %s", auctionID)
		}
		if err != nil {
			return err
		}
		current, err := domain.ParseAuctionStatus(status)
		if err != nil {
			return err
		}
		if current.Terminal() {
			return domain.ErrAlreadyEnded
		}
		return domain.ErrStaleState
	})
}

func (r *AuctionRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
        SELECT id FROM auctions
        WHERE status = ? AND end_time <= ?
        ORDER BY end_time ASC
        LIMIT ?
    `

	var ids []string
	err := r.do(ctx, "list expired auctions", func() error {
		ids = ids[:0]
		rows, err := r.db.QueryContext(ctx, r.q(query), domain.AuctionActive.String(), now.UTC(), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

func (r *AuctionRepository) IncrementViews(ctx context.Context, auctionID string) error {
	return r.do(ctx, "increment views", func() error {
		_, err := r.db.ExecContext(ctx, r.q(`UPDATE auctions SET views = views + 1 WHERE id = ?`), auctionID)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.AuctionItem, error) {
	var (
		auction domain.AuctionItem
		images  string
		status  string
		soldTo  sql.NullString
		final   sql.NullFloat64
		highest sql.NullString
		endTime time.Time
		created time.Time
		updated time.Time
	)

	err := row.Scan(&auction.ID, &auction.Title, &auction.Description, &auction.Category, &auction.Condition,
		&images, &auction.Location, &auction.Shipping, &auction.Returns,
		&auction.SellerID, &auction.StartingPrice, &auction.CurrentBid, &auction.MinBidIncrement,
		&highest, &auction.BidCount, &auction.Views,
		&status, &endTime, &soldTo, &final, &created, &updated)
	if err != nil {
		return nil, err
	}

	if images != "" {
		if err := json.Unmarshal([]byte(images), &auction.Images); err != nil {
			return nil, errors.Wrap(err, "decode images")
		}
	}
	parsed, err := domain.ParseAuctionStatus(status)
	if err != nil {
		return nil, err
	}

	auction.Status = parsed
	auction.HighestBidderID = highest.String
	auction.EndTime = endTime
	auction.CreatedAt = created
	auction.UpdatedAt = updated
	if soldTo.Valid {
		auction.SoldTo = &soldTo.String
	}
	if final.Valid {
		auction.FinalBidAmount = &final.Float64
	}
	return &auction, nil
}
