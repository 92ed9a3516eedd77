package repositories

import (
	"context"
	"time"

	"auction-engine/internal/domain"
)

// AuctionRepository is the auction record store. Price and status changes
// only go through the conditional operations.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *domain.AuctionItem) error
	GetAuction(ctx context.Context, auctionID string) (*domain.AuctionItem, error)

	// CompareAndUpdatePrice appends bid to the ledger and moves currentBid to
	// bid.Amount in one atomic step, only if the auction is still active, not
	// past its end time and currentBid still equals expectedCurrentBid.
	// Otherwise it returns domain.ErrStaleState and nothing is written.
	CompareAndUpdatePrice(ctx context.Context, auctionID string, expectedCurrentBid float64, bid *domain.Bid) error

	// TransitionToEnded performs the one-time closing transition, keyed on the
	// auction still being active with currentBid equal to expectedCurrentBid.
	// Returns domain.ErrAlreadyEnded when a terminal status is already stored
	// and domain.ErrStaleState when the price moved.
	TransitionToEnded(ctx context.Context, auctionID string, expectedCurrentBid float64, outcome domain.ClosingOutcome) error

	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error)
	IncrementViews(ctx context.Context, auctionID string) error
}
