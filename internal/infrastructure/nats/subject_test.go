package nats

import (
	"testing"

	"auction-engine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "auction.notifications.outbid", Subject("auction.notifications", domain.NotificationOutbid))
	assert.Equal(t, "auction.notifications.>", SubjectWildcard("auction.notifications"))
}

func TestInstanceDurable(t *testing.T) {
	assert.Equal(t, "ws-push-bidding-1", InstanceDurable("ws-push", "bidding-1"))
	assert.Equal(t, "ws-push-host_example_com_a_b", InstanceDurable("ws-push", "host.example.com a>b"))
}
