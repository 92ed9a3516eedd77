package domain

import "context"

// PriceCache keeps a read-optimised copy of each auction's live price. The
// record store stays the source of truth.
type PriceCache interface {
	InitializeAuction(ctx context.Context, auction *AuctionItem) error
	RecordBid(ctx context.Context, auctionID, bidderID string, amount float64) (bool, error)
	MarkClosed(ctx context.Context, auctionID string, status AuctionStatus) error
	GetSnapshot(ctx context.Context, auctionID string) (*PriceSnapshot, error)
}
