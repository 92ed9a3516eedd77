package domain

import (
	"context"
	"time"
)

type AuctionEventType string

const (
	EventAuctionCreated AuctionEventType = "auction_created"
	EventBidAccepted    AuctionEventType = "bid_accepted"
	EventAuctionClosed  AuctionEventType = "auction_ended"
)

// AuctionEvent is fanned out to live bidding sockets and caches.
type AuctionEvent struct {
	Type            AuctionEventType `json:"type"`
	AuctionID       string           `json:"auction_id"`
	BidderID        string           `json:"bidder_id,omitempty"`
	Amount          float64          `json:"amount"`
	MinBidIncrement float64          `json:"min_bid_increment,omitempty"`
	Status          AuctionStatus    `json:"status"`
	EndTime         time.Time        `json:"end_time"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Event interfaces
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error
