package services

import (
	"context"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/pkg/errors"
)

// EventListener relays auction events from the shared channel to the live
// bidding sockets held by this instance.
type EventListener struct {
	broadcaster       domain.AuctionBroadcaster
	connectionManager domain.ConnectionManager
	rules             domain.BiddingRule
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager, broadcaster domain.AuctionBroadcaster,
	rules domain.BiddingRule, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster:       broadcaster,
		connectionManager: connectionManager,
		rules:             rules,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToAuctionEvents(ctx, el.HandleEvent)
}

func (el *EventListener) HandleEvent(event *domain.AuctionEvent) error {
	el.log.Debug("Handling auction event", "type", event.Type, "auction_id", event.AuctionID)

	switch event.Type {
	case domain.EventAuctionCreated:
		return nil
	case domain.EventBidAccepted:
		return el.handleBidAccepted(event)
	case domain.EventAuctionClosed:
		return el.handleAuctionClosed(event)
	}

	return errors.Errorf("unknown event type %q", event.Type)
}

// Bidder identities never go out on the broadcast; clients learn the new
// price and the next acceptable amount.
func (el *EventListener) handleBidAccepted(event *domain.AuctionEvent) error {
	return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":        "bid_update",
		"auction_id":  event.AuctionID,
		"current_bid": event.Amount,
		"minimum_bid": el.rules.MinimumBid(event.Amount, event.MinBidIncrement),
		"end_time":    event.EndTime,
		"timestamp":   event.Timestamp,
	})
}

func (el *EventListener) handleAuctionClosed(event *domain.AuctionEvent) error {
	if err := el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":             "auction_ended",
		"auction_id":       event.AuctionID,
		"status":           event.Status,
		"final_bid_amount": event.Amount,
		"timestamp":        event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast auction ended event", "auction_id", event.AuctionID, "error", err)
		return err
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.AuctionID); err != nil {
		el.log.Error("Failed to finalize connections for auction", "auction_id",
			event.AuctionID, "error", err)
		return err
	}
	return nil
}
