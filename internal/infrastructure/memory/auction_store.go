package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"

	"github.com/pkg/errors"
)

var (
	_ repositories.AuctionRepository = (*AuctionStore)(nil)
	_ repositories.BidRepository     = (*AuctionStore)(nil)
)

// AuctionStore keeps auctions and their bid ledgers in process memory. Every
// conditional operation runs under one lock, which gives the same
// compare-and-update semantics as the SQL store.
type AuctionStore struct {
	mutex    sync.RWMutex
	auctions map[string]*domain.AuctionItem
	bids     map[string][]*domain.Bid
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{
		auctions: make(map[string]*domain.AuctionItem),
		bids:     make(map[string][]*domain.Bid),
	}
}

func (s *AuctionStore) CreateAuction(ctx context.Context, auction *domain.AuctionItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.auctions[auction.ID]; exists {
		return errors.Errorf("auction %s already exists", auction.ID)
	}
	s.auctions[auction.ID] = auction.Clone()
	return nil
}

func (s *AuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.AuctionItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "auction %s", auctionID)
	}
	return auction.Clone(), nil
}

func (s *AuctionStore) CompareAndUpdatePrice(ctx context.Context, auctionID string, expectedCurrentBid float64, bid *domain.Bid) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "auction %s", auctionID)
	}
	if auction.Status != domain.AuctionActive ||
		auction.CurrentBid != expectedCurrentBid ||
		!bid.CreatedAt.Before(auction.EndTime) {
		return domain.ErrStaleState
	}

	stored := *bid
	stored.Seq = len(s.bids[auctionID]) + 1
	s.bids[auctionID] = append(s.bids[auctionID], &stored)
	bid.Seq = stored.Seq

	auction.CurrentBid = bid.Amount
	auction.HighestBidderID = bid.BidderID
	auction.BidCount++
	auction.UpdatedAt = bid.CreatedAt
	return nil
}

func (s *AuctionStore) TransitionToEnded(ctx context.Context, auctionID string, expectedCurrentBid float64, outcome domain.ClosingOutcome) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "auction %s", auctionID)
	}
	if auction.Status.Terminal() {
		return domain.ErrAlreadyEnded
	}
	if auction.Status != domain.AuctionActive || auction.CurrentBid != expectedCurrentBid {
		return domain.ErrStaleState
	}

	auction.Status = outcome.Status
	if outcome.WinnerID != nil {
		winner := *outcome.WinnerID
		auction.SoldTo = &winner
	}
	final := outcome.FinalBidAmount
	auction.FinalBidAmount = &final
	auction.UpdatedAt = outcome.ClosedAt
	return nil
}

func (s *AuctionStore) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var expired []*domain.AuctionItem
	for _, auction := range s.auctions {
		if auction.Status == domain.AuctionActive && auction.Expired(now) {
			expired = append(expired, auction)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].EndTime.Before(expired[j].EndTime)
	})

	ids := make([]string, 0, len(expired))
	for _, auction := range expired {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, auction.ID)
	}
	return ids, nil
}

func (s *AuctionStore) IncrementViews(ctx context.Context, auctionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "auction %s", auctionID)
	}
	auction.Views++
	return nil
}

func (s *AuctionStore) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ledger := s.bids[auctionID]
	bids := make([]*domain.Bid, 0, len(ledger))
	for _, bid := range ledger {
		copied := *bid
		bids = append(bids, &copied)
	}
	return bids, nil
}

func (s *AuctionStore) LatestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ledger := s.bids[auctionID]
	if len(ledger) == 0 {
		return nil, nil
	}
	latest := *ledger[len(ledger)-1]
	return &latest, nil
}
