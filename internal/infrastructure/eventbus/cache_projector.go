package eventbus

import (
	"context"

	"auction-engine/internal/domain"
)

// CacheProjector applies auction events to the live price cache.
type CacheProjector struct {
	cache domain.PriceCache
}

func NewCacheProjector(cache domain.PriceCache) *CacheProjector {
	return &CacheProjector{cache: cache}
}

func (p *CacheProjector) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	switch event.Type {
	case domain.EventAuctionCreated:
		return p.cache.InitializeAuction(ctx, &domain.AuctionItem{
			ID:              event.AuctionID,
			CurrentBid:      event.Amount,
			MinBidIncrement: event.MinBidIncrement,
			Status:          event.Status,
			EndTime:         event.EndTime,
		})
	case domain.EventBidAccepted:
		_, err := p.cache.RecordBid(ctx, event.AuctionID, event.BidderID, event.Amount)
		return err
	case domain.EventAuctionClosed:
		return p.cache.MarkClosed(ctx, event.AuctionID, event.Status)
	}
	return nil
}
