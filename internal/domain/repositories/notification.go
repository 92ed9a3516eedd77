package repositories

import (
	"context"

	"auction-engine/internal/domain"
)

type NotificationRepository interface {
	// Save reports false when a notification with the same dedupe key exists.
	Save(ctx context.Context, notification *domain.Notification) (bool, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
