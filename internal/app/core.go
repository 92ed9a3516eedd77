// Package app wires the stores, caches and services shared by the auction
// and bidding processes.
package app

import (
	"context"
	"database/sql"
	"time"

	"auction-engine/internal/config"
	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/internal/infrastructure/eventbus"
	"auction-engine/internal/infrastructure/memory"
	natsinfra "auction-engine/internal/infrastructure/nats"
	redisinfra "auction-engine/internal/infrastructure/redis"
	"auction-engine/internal/infrastructure/sqlstore"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// priceCacheGrace keeps price snapshots around after an auction ends so late
// readers still see the final price.
const priceCacheGrace = 24 * time.Hour

type Stores struct {
	Auctions      repositories.AuctionRepository
	Bids          repositories.BidRepository
	Notifications repositories.NotificationRepository
	Users         repositories.UserDirectory
}

// Core holds the long-lived handles of one process.
type Core struct {
	Config     *config.Config
	DB         *sql.DB
	Redis      *redisClient.Client
	NATS       *nats.Conn
	Stores     Stores
	PriceCache *redisinfra.RedisPriceCache
	Events     *eventbus.Dispatcher
	Rules      domain.BiddingRule

	Notifications *services.NotificationService
	Closing       *services.ClosingService
	Bids          *services.BidService
	Auctions      *services.AuctionManager

	log logger.Logger
}

func NewCore(ctx context.Context, cfg *config.Config, log logger.Logger) (*Core, error) {
	core := &Core{Config: cfg, Rules: services.NewBiddingRule(), log: log}

	if err := core.openStores(ctx); err != nil {
		core.Close()
		return nil, err
	}

	core.Redis = redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := core.Redis.Ping(pingCtx).Err(); err != nil {
		core.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	sink, err := core.openNotificationSink(ctx)
	if err != nil {
		core.Close()
		return nil, err
	}

	core.PriceCache = redisinfra.NewRedisPriceCache(core.Redis, priceCacheGrace)
	core.Events = eventbus.NewDispatcher(log)
	if err := core.Events.Register("redis_pubsub", redisinfra.NewEventPublisher(core.Redis)); err != nil {
		core.Close()
		return nil, err
	}
	if err := core.Events.Register("price_cache", eventbus.NewCacheProjector(core.PriceCache)); err != nil {
		core.Close()
		return nil, err
	}

	core.Notifications = services.NewNotificationService(core.Stores.Notifications, sink, log)
	core.Closing = services.NewClosingService(core.Stores.Auctions, core.Stores.Bids, core.Stores.Users,
		core.Notifications, core.Events, cfg.Bidding.MaxRetries, log)
	core.Bids = services.NewBidService(core.Stores.Auctions, core.Closing, core.Notifications, core.Events,
		core.Rules, cfg.Bidding.MaxRetries, log)
	core.Auctions = services.NewAuctionManager(core.Stores.Auctions, core.Stores.Bids, core.Stores.Users,
		core.Closing, core.Events, core.Rules, log)

	return core, nil
}

func (c *Core) openStores(ctx context.Context) error {
	cfg := c.Config.Storage
	if cfg.Driver == "memory" {
		c.log.Warn("Using in-memory storage; state is lost on restart and not shared between processes")
		auctions := memory.NewAuctionStore()
		c.Stores = Stores{
			Auctions:      auctions,
			Bids:          auctions,
			Notifications: memory.NewNotificationStore(),
			Users:         memory.NewUserDirectory(),
		}
		return nil
	}

	dialect, err := sqlstore.ParseDialect(cfg.Driver)
	if err != nil {
		return err
	}
	db, err := utils.InitializeDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	c.DB = db
	c.log.Info("Connected to database", "driver", cfg.Driver)

	if cfg.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	}

	retry := utils.RetryPolicy{
		MaxAttempts:     c.Config.Retry.MaxAttempts,
		InitialInterval: c.Config.Retry.InitialInterval,
		MaxInterval:     c.Config.Retry.MaxInterval,
	}
	repos := sqlstore.NewRepositories(db, dialect, retry)
	c.Stores = Stores{
		Auctions:      repos.Auctions,
		Bids:          repos.Bids,
		Notifications: repos.Notifications,
		Users:         repos.Users,
	}
	return nil
}

// openNotificationSink returns nil when no NATS url is configured; stored
// notifications stay readable through the API either way.
func (c *Core) openNotificationSink(ctx context.Context) (domain.NotificationSink, error) {
	cfg := c.Config.NATS
	if cfg.URL == "" {
		c.log.Warn("NATS disabled, notifications are stored but not handed off")
		return nil, nil
	}

	nc, err := nats.Connect(cfg.URL, nats.Name(c.Config.Instance.ID))
	if err != nil {
		return nil, errors.Wrap(err, "connect to nats")
	}
	c.NATS = nc

	publisher, err := natsinfra.NewNotificationPublisher(nc, cfg.Stream, cfg.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	if err := publisher.EnsureStream(ctx); err != nil {
		return nil, err
	}
	c.log.Info("Connected to NATS", "url", cfg.URL, "stream", cfg.Stream)
	return publisher, nil
}

func (c *Core) Close() {
	if c.NATS != nil {
		if err := c.NATS.Drain(); err != nil {
			c.log.Error("Failed to drain NATS connection", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.log.Error("Failed to close Redis client", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.log.Error("Failed to close database", "error", err)
		}
	}
}
