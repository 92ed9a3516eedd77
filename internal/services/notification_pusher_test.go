package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUserNotifier struct {
	mutex    sync.Mutex
	messages map[string][]interface{}
	err      error
}

func (n *recordingUserNotifier) NotifyUser(ctx context.Context, userID string, message interface{}) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.messages == nil {
		n.messages = make(map[string][]interface{})
	}
	n.messages[userID] = append(n.messages[userID], message)
	return n.err
}

// sliceSource replays a fixed set of notifications and reports each handler result.
type sliceSource struct {
	notifications []*domain.Notification
	results       []error
}

func (s *sliceSource) Consume(ctx context.Context, handler domain.NotificationHandler) error {
	for _, notification := range s.notifications {
		s.results = append(s.results, handler(ctx, notification))
	}
	return nil
}

func TestNotificationPusherForwardsToRecipient(t *testing.T) {
	notifier := &recordingUserNotifier{}
	pusher := NewNotificationPusher(notifier, logger.NewNop())
	source := &sliceSource{notifications: []*domain.Notification{
		{ID: "ntf_1", UserID: "alice", Type: domain.NotificationOutbid, Message: "You have been outbid on auction: Vase"},
		{ID: "ntf_2", UserID: "bob", Type: domain.NotificationWon, Message: "Congratulations!"},
	}}

	require.NoError(t, pusher.Start(context.Background(), source))

	require.Len(t, notifier.messages["alice"], 1)
	message := notifier.messages["alice"][0].(map[string]interface{})
	assert.Equal(t, "notification", message["type"])
	assert.Equal(t, "ntf_1", message["notification"].(*domain.Notification).ID)
	assert.Len(t, notifier.messages["bob"], 1)
	assert.Equal(t, []error{nil, nil}, source.results)
}

func TestNotificationPusherDoesNotRequestRedelivery(t *testing.T) {
	notifier := &recordingUserNotifier{err: errors.New("socket gone")}
	pusher := NewNotificationPusher(notifier, logger.NewNop())

	err := pusher.Push(context.Background(), &domain.Notification{ID: "ntf_1", UserID: "alice"})
	assert.NoError(t, err)
	assert.Len(t, notifier.messages["alice"], 1)
}
