package domain

import "context"

// Notifier is the trigger boundary towards notification delivery. Each
// method is called at most once per triggering event.
type Notifier interface {
	Outbid(ctx context.Context, previousBidderID string, auction *AuctionItem, overtakingBid *Bid) error
	Won(ctx context.Context, winnerID string, auction *AuctionItem, amount float64, sellerName string) error
	Sold(ctx context.Context, sellerID string, auction *AuctionItem, winnerName string, amount float64) error
	EndedUnsold(ctx context.Context, sellerID string, auction *AuctionItem) error
}

// NotificationSink hands a persisted notification to the external delivery channel.
type NotificationSink interface {
	Deliver(ctx context.Context, notification *Notification) error
}

// NotificationHandler receives one notification from the delivery stream. A
// returned error asks for redelivery.
type NotificationHandler func(ctx context.Context, notification *Notification) error

// NotificationSource feeds handed-off notifications back to live consumers.
type NotificationSource interface {
	Consume(ctx context.Context, handler NotificationHandler) error
}

type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}
