package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/infrastructure/memory"
	"auction-engine/pkg/logger"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

type recordingEvents struct {
	mutex  sync.Mutex
	events []*domain.AuctionEvent
}

func (r *recordingEvents) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) ofType(eventType domain.AuctionEventType) []*domain.AuctionEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var matched []*domain.AuctionEvent
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type fixture struct {
	clock         *fakeClock
	store         *memory.AuctionStore
	notifications *memory.NotificationStore
	users         *memory.UserDirectory
	events        *recordingEvents
	notifier      *NotificationService
	closer        *ClosingService
	bids          *BidService
	manager       *AuctionManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	clock := newFakeClock()
	store := memory.NewAuctionStore()
	notifications := memory.NewNotificationStore()
	users := memory.NewUserDirectory(
		&domain.User{ID: "seller", Name: "Sam Seller", Email: "sam@example.com", Role: domain.RoleUser},
		&domain.User{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser},
		&domain.User{ID: "bob", Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser},
	)
	events := &recordingEvents{}
	rules := NewBiddingRule()

	notifier := NewNotificationService(notifications, nil, log)
	notifier.now = clock.Now
	closer := NewClosingService(store, store, users, notifier, events, 3, log)
	closer.now = clock.Now
	bids := NewBidService(store, closer, notifier, events, rules, 3, log)
	bids.now = clock.Now
	manager := NewAuctionManager(store, store, users, closer, events, rules, log)
	manager.now = clock.Now

	return &fixture{
		clock:         clock,
		store:         store,
		notifications: notifications,
		users:         users,
		events:        events,
		notifier:      notifier,
		closer:        closer,
		bids:          bids,
		manager:       manager,
	}
}

func (f *fixture) createAuction(t *testing.T, startingPrice float64) *domain.AuctionItem {
	t.Helper()
	auction, err := f.manager.CreateAuction(context.Background(), "seller", CreateAuctionInput{
		Title:           "Camera",
		Description:     "Mint condition",
		Category:        "Electronics",
		Condition:       "used",
		Images:          []string{"camera.jpg"},
		StartingPrice:   startingPrice,
		DurationSeconds: 3600,
	})
	require.NoError(t, err)
	return auction
}

func (f *fixture) notificationsFor(t *testing.T, userID string) []*domain.Notification {
	t.Helper()
	list, err := f.notifications.ListForUser(context.Background(), userID, NotificationListLimit)
	require.NoError(t, err)
	return list
}
