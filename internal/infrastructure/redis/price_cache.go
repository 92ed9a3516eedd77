package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"auction-engine/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

var _ domain.PriceCache = (*RedisPriceCache)(nil)

// recordBidScript only moves the cached price forward, so out-of-order
// event delivery can never roll a snapshot back.
var recordBidScript = redis.NewScript(`
    local key = KEYS[1]
    local status = redis.call('HGET', key, 'status')
    if status == false then
        return 0
    end
    if status ~= 'active' then
        return 0
    end

    local current = tonumber(redis.call('HGET', key, 'current_bid'))
    local amount = tonumber(ARGV[1])
    if amount <= current then
        return 0
    end

    redis.call('HSET', key,
        'current_bid', ARGV[1],
        'leader_id', ARGV[2],
        'last_updated', ARGV[3])
    return 1
`)

type RedisPriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPriceCache(client *redis.Client, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{client: client, ttl: ttl}
}

func priceKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:price", auctionID)
}

func (r *RedisPriceCache) InitializeAuction(ctx context.Context, auction *domain.AuctionItem) error {
	key := priceKey(auction.ID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		"current_bid", strconv.FormatFloat(auction.CurrentBid, 'f', 2, 64),
		"min_bid_increment", strconv.FormatFloat(auction.MinBidIncrement, 'f', 2, 64),
		"leader_id", auction.HighestBidderID,
		"status", auction.Status.String(),
		"end_time", auction.EndTime.Unix(),
		"last_updated", time.Now().Unix(),
	)
	if r.ttl > 0 {
		pipe.ExpireAt(ctx, key, auction.EndTime.Add(r.ttl))
	}
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "initialize price cache")
}

func (r *RedisPriceCache) RecordBid(ctx context.Context, auctionID, bidderID string, amount float64) (bool, error) {
	result, err := recordBidScript.Run(ctx, r.client, []string{priceKey(auctionID)},
		strconv.FormatFloat(amount, 'f', 2, 64),
		bidderID,
		strconv.FormatInt(time.Now().Unix(), 10)).Int64()
	if err != nil {
		return false, errors.Wrap(err, "record bid in price cache")
	}
	return result == 1, nil
}

func (r *RedisPriceCache) MarkClosed(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	key := priceKey(auctionID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "mark closed")
	}
	if exists == 0 {
		return nil
	}
	return r.client.HSet(ctx, key, "status", status.String(), "last_updated", time.Now().Unix()).Err()
}

func (r *RedisPriceCache) GetSnapshot(ctx context.Context, auctionID string) (*domain.PriceSnapshot, error) {
	values, err := r.client.HGetAll(ctx, priceKey(auctionID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read price cache")
	}
	if len(values) == 0 {
		return nil, errors.Wrapf(domain.ErrNotFound, "price snapshot %s", auctionID)
	}

	snapshot := &domain.PriceSnapshot{
		AuctionID: auctionID,
		LeaderID:  values["leader_id"],
	}
	snapshot.CurrentBid, _ = strconv.ParseFloat(values["current_bid"], 64)
	snapshot.MinBidIncrement, _ = strconv.ParseFloat(values["min_bid_increment"], 64)
	if status, err := domain.ParseAuctionStatus(values["status"]); err == nil {
		snapshot.Status = status
	}
	if endTime, err := strconv.ParseInt(values["end_time"], 10, 64); err == nil {
		snapshot.EndTime = time.Unix(endTime, 0)
	}
	if updated, err := strconv.ParseInt(values["last_updated"], 10, 64); err == nil {
		snapshot.LastUpdated = time.Unix(updated, 0)
	}
	return snapshot, nil
}
