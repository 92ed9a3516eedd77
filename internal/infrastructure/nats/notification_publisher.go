package nats

import (
	"context"
	"encoding/json"
	"time"

	"auction-engine/internal/domain"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
)

var _ domain.NotificationSink = (*NotificationPublisher)(nil)

// NotificationPublisher hands persisted notifications to JetStream, where
// the bidding instances pick them up for their connected users.
type NotificationPublisher struct {
	js     jetstream.JetStream
	stream string
	prefix string
}

func NewNotificationPublisher(nc *nats.Conn, stream, prefix string) (*NotificationPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.Wrap(err, "create jetstream context")
	}
	return &NotificationPublisher{js: js, stream: stream, prefix: prefix}, nil
}

// EnsureStream creates or updates the notification stream.
func (p *NotificationPublisher) EnsureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.stream,
		Description: "Auction outcome and outbid notifications awaiting delivery",
		Subjects:    []string{SubjectWildcard(p.prefix)},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Duplicates:  10 * time.Minute,
	})
	return errors.Wrap(err, "create notification stream")
}

func (p *NotificationPublisher) Deliver(ctx context.Context, notification *domain.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "encode notification")
	}

	// The message id lets JetStream drop a redelivered publish of the same notification.
	_, err = p.js.Publish(ctx, Subject(p.prefix, notification.Type), data, jetstream.WithMsgID(notification.ID))
	return errors.Wrap(err, "publish notification")
}

func Subject(prefix string, notificationType domain.NotificationType) string {
	return prefix + "." + string(notificationType)
}

func SubjectWildcard(prefix string) string {
	return prefix + ".>"
}
