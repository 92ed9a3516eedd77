package eventbus

import (
	"context"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	EventBus "github.com/asaskevich/EventBus"
)

const auctionTopic = "auction:event"

var _ domain.EventPublisher = (*Dispatcher)(nil)

// Dispatcher fans one auction event out to every registered publisher in
// process. A failing sink is logged and does not stop the others.
type Dispatcher struct {
	bus EventBus.Bus
	log logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	return &Dispatcher{bus: EventBus.New(), log: log}
}

func (d *Dispatcher) Register(name string, publisher domain.EventPublisher) error {
	return d.bus.Subscribe(auctionTopic, func(ctx context.Context, event *domain.AuctionEvent) {
		if err := publisher.PublishAuctionEvent(ctx, event); err != nil {
			d.log.Error("Event sink failed", "sink", name, "type", event.Type,
				"auction_id", event.AuctionID, "error", err)
		}
	})
}

func (d *Dispatcher) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	if !d.bus.HasCallback(auctionTopic) {
		return nil
	}
	d.bus.Publish(auctionTopic, ctx, event)
	return nil
}
