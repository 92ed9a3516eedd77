package repositories

import (
	"context"

	"auction-engine/internal/domain"
)

// BidRepository reads the append-only bid ledger. Writes happen through
// AuctionRepository.CompareAndUpdatePrice.
type BidRepository interface {
	ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error)
	// LatestBid returns nil without error when the auction has no bids.
	LatestBid(ctx context.Context, auctionID string) (*domain.Bid, error)
}
