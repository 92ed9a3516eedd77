package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAuction(t *testing.T, store *AuctionStore, endTime time.Time) *domain.AuctionItem {
	t.Helper()
	auction := &domain.AuctionItem{
		ID:              "auction_1",
		Title:           "Camera",
		SellerID:        "seller",
		Images:          []string{"a.jpg"},
		StartingPrice:   100,
		CurrentBid:      100,
		MinBidIncrement: 5,
		Status:          domain.AuctionActive,
		EndTime:         endTime,
	}
	require.NoError(t, store.CreateAuction(context.Background(), auction))
	return auction
}

func TestCompareAndUpdatePrice(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	now := time.Now()
	seedAuction(t, store, now.Add(time.Hour))

	bid := &domain.Bid{ID: "b1", AuctionID: "auction_1", BidderID: "alice", Amount: 105, CreatedAt: now}
	require.NoError(t, store.CompareAndUpdatePrice(ctx, "auction_1", 100, bid))
	assert.Equal(t, 1, bid.Seq)

	stale := &domain.Bid{ID: "b2", AuctionID: "auction_1", BidderID: "bob", Amount: 110, CreatedAt: now}
	assert.ErrorIs(t, store.CompareAndUpdatePrice(ctx, "auction_1", 100, stale), domain.ErrStaleState)

	auction, err := store.GetAuction(ctx, "auction_1")
	require.NoError(t, err)
	assert.Equal(t, 105.0, auction.CurrentBid)
	assert.Equal(t, "alice", auction.HighestBidderID)
	assert.Equal(t, 1, auction.BidCount)

	bids, err := store.ListBids(ctx, "auction_1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "b1", bids[0].ID)
}

func TestCompareAndUpdatePriceRejectsAfterEndTime(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	end := time.Now()
	seedAuction(t, store, end)

	bid := &domain.Bid{ID: "late", AuctionID: "auction_1", BidderID: "alice", Amount: 105, CreatedAt: end}
	assert.ErrorIs(t, store.CompareAndUpdatePrice(ctx, "auction_1", 100, bid), domain.ErrStaleState)
}

func TestConcurrentCompareAndUpdateAllowsOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	now := time.Now()
	seedAuction(t, store, now.Add(time.Hour))

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bid := &domain.Bid{ID: "b", AuctionID: "auction_1", BidderID: "bidder", Amount: 105, CreatedAt: now}
			results <- store.CompareAndUpdatePrice(ctx, "auction_1", 100, bid)
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrStaleState)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestTransitionToEndedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store, time.Now().Add(-time.Minute))

	winner := "alice"
	outcome := domain.ClosingOutcome{Status: domain.AuctionSold, WinnerID: &winner, FinalBidAmount: 100, ClosedAt: time.Now()}
	require.NoError(t, store.TransitionToEnded(ctx, "auction_1", 100, outcome))
	assert.ErrorIs(t, store.TransitionToEnded(ctx, "auction_1", 100, outcome), domain.ErrAlreadyEnded)

	auction, err := store.GetAuction(ctx, "auction_1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionSold, auction.Status)
	require.NotNil(t, auction.SoldTo)
	assert.Equal(t, "alice", *auction.SoldTo)
}

func TestTransitionToEndedDetectsMovedPrice(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store, time.Now().Add(-time.Minute))

	outcome := domain.ClosingOutcome{Status: domain.AuctionEnded, FinalBidAmount: 100, ClosedAt: time.Now()}
	assert.ErrorIs(t, store.TransitionToEnded(ctx, "auction_1", 95, outcome), domain.ErrStaleState)
}

func TestListExpiredActive(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	now := time.Now()
	seedAuction(t, store, now.Add(-time.Minute))
	require.NoError(t, store.CreateAuction(ctx, &domain.AuctionItem{ID: "future", Status: domain.AuctionActive, EndTime: now.Add(time.Hour)}))

	ids, err := store.ListExpiredActive(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"auction_1"}, ids)
}

func TestGetAuctionReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store, time.Now().Add(time.Hour))

	first, err := store.GetAuction(ctx, "auction_1")
	require.NoError(t, err)
	first.CurrentBid = 999
	first.Images[0] = "changed"

	second, err := store.GetAuction(ctx, "auction_1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, second.CurrentBid)
	assert.Equal(t, "a.jpg", second.Images[0])

	_, err = store.GetAuction(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationStoreDedupesAndMarksRead(t *testing.T) {
	ctx := context.Background()
	store := NewNotificationStore()
	base := time.Now()

	inserted, err := store.Save(ctx, &domain.Notification{ID: "n1", UserID: "u", DedupeKey: "won:a", CreatedAt: base})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Save(ctx, &domain.Notification{ID: "n2", UserID: "u", DedupeKey: "won:a", CreatedAt: base})
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = store.Save(ctx, &domain.Notification{ID: "n3", UserID: "u", DedupeKey: "outbid:b", CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)

	list, err := store.ListForUser(ctx, "u", 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n3", list[0].ID)

	require.NoError(t, store.MarkRead(ctx, "u", "n1"))
	assert.ErrorIs(t, store.MarkRead(ctx, "other", "n3"), domain.ErrNotFound)

	updated, err := store.MarkAllRead(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}
