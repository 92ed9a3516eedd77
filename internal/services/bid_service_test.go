package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRejection(t *testing.T, err error, reason domain.RejectReason) *domain.BidRejection {
	t.Helper()
	var rejection *domain.BidRejection
	require.True(t, errors.As(err, &rejection), "expected a bid rejection, got %v", err)
	assert.Equal(t, reason, rejection.Reason)
	return rejection
}

func TestBidScenarioThroughClosing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auction := f.createAuction(t, 100)
	require.Equal(t, 5.0, auction.MinBidIncrement)

	_, err := f.bids.PlaceBid(ctx, auction.ID, "alice", 104)
	rejection := requireRejection(t, err, domain.ReasonBidTooLow)
	assert.Equal(t, 105.0, rejection.MinimumBid)
	assert.Equal(t, 100.0, rejection.CurrentBid)
	assert.Equal(t, "Bid must be at least 105", rejection.Message)
	assert.ErrorIs(t, err, domain.ErrBidTooLow)

	accepted, err := f.bids.PlaceBid(ctx, auction.ID, "alice", 105)
	require.NoError(t, err)
	assert.Equal(t, 105.0, accepted.CurrentBid)
	assert.Equal(t, 1, accepted.Bid.Seq)

	accepted, err = f.bids.PlaceBid(ctx, auction.ID, "bob", 110)
	require.NoError(t, err)
	assert.Equal(t, 110.0, accepted.CurrentBid)

	outbid := f.notificationsFor(t, "alice")
	require.Len(t, outbid, 1)
	assert.Equal(t, domain.NotificationOutbid, outbid[0].Type)
	assert.Equal(t, "You have been outbid on auction: Camera", outbid[0].Message)

	f.clock.Advance(2 * time.Hour)
	closed, err := f.closer.CloseIfExpired(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionSold, closed.Status)
	require.NotNil(t, closed.SoldTo)
	assert.Equal(t, "bob", *closed.SoldTo)
	require.NotNil(t, closed.FinalBidAmount)
	assert.Equal(t, 110.0, *closed.FinalBidAmount)

	_, err = f.closer.CloseIfExpired(ctx, auction.ID)
	require.NoError(t, err)

	won := f.notificationsFor(t, "bob")
	require.Len(t, won, 1)
	assert.Equal(t, domain.NotificationWon, won[0].Type)
	assert.Equal(t, "Congratulations! You won the auction: Camera for ₹110 from Sam Seller", won[0].Message)

	sold := f.notificationsFor(t, "seller")
	require.Len(t, sold, 1)
	assert.Equal(t, domain.NotificationSold, sold[0].Type)
	assert.Equal(t, "Auction ended: Your item 'Camera' was sold to Bob for ₹110", sold[0].Message)

	assert.Len(t, f.notificationsFor(t, "alice"), 1)
	assert.Len(t, f.events.ofType(domain.EventBidAccepted), 2)
	assert.Len(t, f.events.ofType(domain.EventAuctionClosed), 1)
}

func TestPlaceBidBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auction := f.createAuction(t, 100)

	_, err := f.bids.PlaceBid(ctx, auction.ID, "alice", 104.99)
	requireRejection(t, err, domain.ReasonBidTooLow)

	_, err = f.bids.PlaceBid(ctx, auction.ID, "alice", 105)
	require.NoError(t, err)
}

func TestPlaceBidSubCentAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auction := f.createAuction(t, 100)

	_, err := f.bids.PlaceBid(ctx, auction.ID, "alice", 104.999)
	rejection := requireRejection(t, err, domain.ReasonBidTooLow)
	assert.Equal(t, 105.0, rejection.MinimumBid)

	accepted, err := f.bids.PlaceBid(ctx, auction.ID, "alice", 105.001)
	require.NoError(t, err)
	assert.Equal(t, 105.001, accepted.CurrentBid)

	_, err = f.bids.PlaceBid(ctx, auction.ID, "bob", 110.0009)
	requireRejection(t, err, domain.ReasonBidTooLow)
}

func TestPlaceBidInvalidAmounts(t *testing.T) {
	f := newFixture(t)
	auction := f.createAuction(t, 100)

	tests := []struct {
		name   string
		amount float64
	}{
		{"zero", 0},
		{"negative", -5},
		{"nan", math.NaN()},
		{"infinite", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bids.PlaceBid(context.Background(), auction.ID, "alice", tt.amount)
			requireRejection(t, err, domain.ReasonInvalidAmount)
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		})
	}
}

func TestPlaceBidSellerRejectedRegardlessOfAmount(t *testing.T) {
	f := newFixture(t)
	auction := f.createAuction(t, 100)

	_, err := f.bids.PlaceBid(context.Background(), auction.ID, "seller", 1000)
	requireRejection(t, err, domain.ReasonSelfBidForbidden)
	assert.ErrorIs(t, err, domain.ErrSelfBidForbidden)
}

func TestPlaceBidRequiresBidder(t *testing.T) {
	f := newFixture(t)
	auction := f.createAuction(t, 100)

	accepted, err := f.bids.PlaceBid(context.Background(), auction.ID, "", 105)
	assert.Nil(t, accepted)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	stored, err := f.store.GetAuction(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.CurrentBid)
	assert.Zero(t, stored.BidCount)
}

func TestPlaceBidUnknownAuction(t *testing.T) {
	f := newFixture(t)

	_, err := f.bids.PlaceBid(context.Background(), "auction_missing", "alice", 100)
	requireRejection(t, err, domain.ReasonNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceBidOnExpiredAuctionClosesIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auction := f.createAuction(t, 100)

	f.clock.Advance(time.Hour)
	_, err := f.bids.PlaceBid(ctx, auction.ID, "alice", 200)
	requireRejection(t, err, domain.ReasonAuctionNotActive)

	stored, err := f.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionEnded, stored.Status)
	assert.Nil(t, stored.SoldTo)

	_, err = f.bids.PlaceBid(ctx, auction.ID, "alice", 200)
	requireRejection(t, err, domain.ReasonAuctionNotActive)
	assert.Len(t, f.notificationsFor(t, "seller"), 1)
}

func TestConcurrentIdenticalBidsExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auction := f.createAuction(t, 100)

	const bidders = 20
	var (
		wg       sync.WaitGroup
		mutex    sync.Mutex
		accepted int
		tooLow   int
	)
	for i := 0; i < bidders; i++ {
		bidder := "bidder_" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bids.PlaceBid(ctx, auction.ID, bidder, 105)
			mutex.Lock()
			defer mutex.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domain.ErrBidTooLow):
				tooLow++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, bidders-1, tooLow)

	stored, err := f.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, 105.0, stored.CurrentBid)
	assert.Equal(t, 1, stored.BidCount)
}

func TestAcceptedBidsKeepPriceMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auction := f.createAuction(t, 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		amount := 105 + float64(i)*5
		bidder := "bidder_" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.bids.PlaceBid(ctx, auction.ID, bidder, amount)
		}()
	}
	wg.Wait()

	ledger, err := f.store.ListBids(ctx, auction.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ledger)
	for i := 1; i < len(ledger); i++ {
		assert.Greater(t, ledger[i].Amount, ledger[i-1].Amount)
		assert.Equal(t, i+1, ledger[i].Seq)
	}

	stored, err := f.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger[len(ledger)-1].Amount, stored.CurrentBid)
}

// staleAuctions loses the first n price updates as if another writer won.
type staleAuctions struct {
	repositories.AuctionRepository
	mutex  sync.Mutex
	losses int
	calls  int
}

func (s *staleAuctions) CompareAndUpdatePrice(ctx context.Context, auctionID string, expected float64, bid *domain.Bid) error {
	s.mutex.Lock()
	s.calls++
	lose := s.losses > 0
	if lose {
		s.losses--
	}
	s.mutex.Unlock()
	if lose {
		return domain.ErrStaleState
	}
	return s.AuctionRepository.CompareAndUpdatePrice(ctx, auctionID, expected, bid)
}

func TestPlaceBidRetriesStaleState(t *testing.T) {
	f := newFixture(t)
	auction := f.createAuction(t, 100)
	stale := &staleAuctions{AuctionRepository: f.store, losses: 2}
	service := NewBidService(stale, f.closer, f.notifier, nil, NewBiddingRule(), 3, logger.NewNop())
	service.now = f.clock.Now

	accepted, err := service.PlaceBid(context.Background(), auction.ID, "alice", 105)
	require.NoError(t, err)
	assert.Equal(t, 105.0, accepted.CurrentBid)
	assert.Equal(t, 3, stale.calls)
}

func TestPlaceBidGivesUpAfterBoundedRetries(t *testing.T) {
	f := newFixture(t)
	auction := f.createAuction(t, 100)
	stale := &staleAuctions{AuctionRepository: f.store, losses: 100}
	service := NewBidService(stale, f.closer, f.notifier, nil, NewBiddingRule(), 3, logger.NewNop())
	service.now = f.clock.Now

	_, err := service.PlaceBid(context.Background(), auction.ID, "alice", 105)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 4, stale.calls)
}
