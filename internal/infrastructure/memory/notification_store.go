package memory

import (
	"context"
	"sort"
	"sync"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"

	"github.com/pkg/errors"
)

var _ repositories.NotificationRepository = (*NotificationStore)(nil)

type NotificationStore struct {
	mutex         sync.RWMutex
	notifications []*domain.Notification
	dedupe        map[string]struct{}
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{dedupe: make(map[string]struct{})}
}

func (s *NotificationStore) Save(ctx context.Context, notification *domain.Notification) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if notification.DedupeKey != "" {
		if _, seen := s.dedupe[notification.DedupeKey]; seen {
			return false, nil
		}
		s.dedupe[notification.DedupeKey] = struct{}{}
	}
	stored := *notification
	s.notifications = append(s.notifications, &stored)
	return true, nil
}

func (s *NotificationStore) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			copied := *n
			result = append(result, &copied)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, n := range s.notifications {
		if n.ID == notificationID && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return errors.Wrapf(domain.ErrNotFound, "notification %s", notificationID)
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var updated int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}
