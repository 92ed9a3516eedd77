package services

import (
	"context"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

// NotificationPusher forwards handed-off notifications to the recipient's
// sockets on this instance. Users without a socket here are skipped; the
// stored copy stays readable through the API.
type NotificationPusher struct {
	notifier domain.UserNotifier
	log      logger.Logger
}

func NewNotificationPusher(notifier domain.UserNotifier, log logger.Logger) *NotificationPusher {
	return &NotificationPusher{notifier: notifier, log: log}
}

func (p *NotificationPusher) Start(ctx context.Context, source domain.NotificationSource) error {
	p.log.Info("Starting notification pusher")
	return source.Consume(ctx, p.Push)
}

// Push never asks for redelivery: a retried push could reach sockets that
// already received the message.
func (p *NotificationPusher) Push(ctx context.Context, notification *domain.Notification) error {
	message := map[string]interface{}{
		"type":         "notification",
		"notification": notification,
	}
	if err := p.notifier.NotifyUser(ctx, notification.UserID, message); err != nil {
		p.log.Warn("Failed to push notification", "notification_id", notification.ID,
			"user_id", notification.UserID, "error", err)
		return nil
	}
	p.log.Debug("Pushed notification", "notification_id", notification.ID,
		"user_id", notification.UserID, "type", notification.Type)
	return nil
}
