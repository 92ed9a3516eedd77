package leader

import (
	"context"
	"testing"
	"time"

	"auction-engine/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleLeader(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	election := NewRedisLeaderElection(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	became, err := election.BecomeLeader(ctx, "a")
	require.NoError(t, err)
	assert.True(t, became)

	became, err = election.BecomeLeader(ctx, "b")
	require.NoError(t, err)
	assert.False(t, became)

	isLeader, err := election.IsLeader(ctx, "b")
	require.NoError(t, err)
	assert.False(t, isLeader)

	// only the holder can release
	require.NoError(t, election.ReleaseLeadership(ctx, "b"))
	isLeader, err = election.IsLeader(ctx, "a")
	require.NoError(t, err)
	assert.True(t, isLeader)

	require.NoError(t, election.ReleaseLeadership(ctx, "a"))
	became, err = election.BecomeLeader(ctx, "b")
	require.NoError(t, err)
	assert.True(t, became)
}

func TestLeaseExpires(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	election := NewRedisLeaderElection(client, time.Hour, logger.NewNop())
	ctx := context.Background()

	_, err := election.BecomeLeader(ctx, "a")
	require.NoError(t, err)
	server.FastForward(2 * time.Hour)

	isLeader, err := election.IsLeader(ctx, "a")
	require.NoError(t, err)
	assert.False(t, isLeader)
}
