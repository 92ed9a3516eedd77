package redis

import (
	"context"
	"encoding/json"

	"auction-engine/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const auctionEventsChannel = "auction_events"

var _ domain.EventPublisher = (*EventPublisherImpl)(nil)

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode auction event")
	}
	return r.client.Publish(ctx, auctionEventsChannel, payload).Err()
}
