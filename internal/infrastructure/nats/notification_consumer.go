package nats

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
)

var _ domain.NotificationSource = (*NotificationConsumer)(nil)

// consumerIdleTTL lets the server drop the durable of an instance that is gone.
const consumerIdleTTL = time.Hour

// NotificationConsumer reads the notification stream through a durable
// consumer. Each instance owns its durable so every instance sees every
// notification.
type NotificationConsumer struct {
	js      jetstream.JetStream
	stream  string
	prefix  string
	durable string
	log     logger.Logger
}

func NewNotificationConsumer(nc *nats.Conn, stream, prefix, durable string, log logger.Logger) (*NotificationConsumer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.Wrap(err, "create jetstream context")
	}
	return &NotificationConsumer{js: js, stream: stream, prefix: prefix, durable: durable, log: log}, nil
}

// Consume blocks until ctx is cancelled. Handler errors cause a redelivery.
func (c *NotificationConsumer) Consume(ctx context.Context, handler domain.NotificationHandler) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.stream, jetstream.ConsumerConfig{
		Durable:           c.durable,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		FilterSubject:     SubjectWildcard(c.prefix),
		MaxDeliver:        5,
		InactiveThreshold: consumerIdleTTL,
	})
	if err != nil {
		return errors.Wrap(err, "create notification consumer")
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var notification domain.Notification
		if err := json.Unmarshal(msg.Data(), &notification); err != nil {
			c.log.Error("Dropping malformed notification", "subject", msg.Subject(), "error", err)
			_ = msg.Term()
			return
		}

		if err := handler(ctx, &notification); err != nil {
			c.log.Error("Failed to push notification", "notification_id", notification.ID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return errors.Wrap(err, "start consuming notifications")
	}
	defer consumeCtx.Stop()

	c.log.Info("Consuming notifications", "stream", c.stream, "durable", c.durable)
	<-ctx.Done()
	return nil
}

var durableReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// InstanceDurable names the durable consumer of one process. JetStream
// rejects dots, wildcards and spaces in durable names.
func InstanceDurable(base, instanceID string) string {
	return durableReplacer.Replace(base + "-" + instanceID)
}
