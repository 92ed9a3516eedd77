package leader

import (
	"context"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const leaderKey = "auction_engine:sweeper_leader"

var _ domain.LeaderElection = (*RedisLeaderElection)(nil)

var releaseScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`)

var refreshScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("PEXPIRE", KEYS[1], ARGV[2])
    else
        return 0
    end
`)

// RedisLeaderElection elects the single instance allowed to run the closing
// sweep. Correctness never depends on it: closing is idempotent, the lease
// only avoids redundant work.
type RedisLeaderElection struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisLeaderElection(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisLeaderElection {
	return &RedisLeaderElection{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	result, err := r.client.SetNX(ctx, leaderKey, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if result {
		// Start heartbeat to maintain leadership
		go r.maintainLeadership(instanceID)
	}

	return result, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return releaseScript.Run(ctx, r.client, []string{leaderKey}, instanceID).Err()
}

// Campaign keeps trying to acquire leadership until ctx is cancelled.
func (r *RedisLeaderElection) Campaign(ctx context.Context, instanceID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		became, err := r.BecomeLeader(ctx, instanceID)
		if err != nil {
			r.log.Error("Failed to attempt leadership", "error", err)
		} else if became {
			r.log.Info("Became sweeper leader", "instance_id", instanceID)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *RedisLeaderElection) maintainLeadership(instanceID string) {
	ticker := time.NewTicker(r.ttl / 3) // Refresh at 1/3 of TTL
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		result, err := refreshScript.Run(ctx, r.client, []string{leaderKey},
			instanceID, r.ttl.Milliseconds()).Int64()
		cancel()

		if err != nil || result == 0 {
			r.log.Warn("Lost sweeper leadership", "instance_id", instanceID, "error", err)
			return
		}
	}
}
