package services

import (
	"context"
	"sync"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

var _ domain.AuctionScheduler = (*ClosingSweeper)(nil)

const (
	closeRetryBase = 30 * time.Second
	closeRetryMax  = 30 * time.Minute
)

type SweeperConfig struct {
	Schedule   string
	BatchSize  int
	Workers    int
	InstanceID string
}

// ClosingSweeper periodically closes active auctions whose end time passed
// without any read or bid touching them.
type ClosingSweeper struct {
	cron     *cron.Cron
	pool     *ants.Pool
	auctions repositories.AuctionRepository
	closer   AuctionCloser
	leader   domain.LeaderElection
	config   SweeperConfig
	now      func() time.Time
	log      logger.Logger

	// failing holds auctions whose close keeps failing. They sit out of the
	// batch until retryAt so later expiries are not starved.
	failMu  sync.Mutex
	failing map[string]closeFailure
}

type closeFailure struct {
	attempts int
	retryAt  time.Time
}

func NewClosingSweeper(auctions repositories.AuctionRepository, closer AuctionCloser,
	leader domain.LeaderElection, config SweeperConfig, log logger.Logger) (*ClosingSweeper, error) {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	pool, err := ants.NewPool(config.Workers, ants.WithPanicHandler(func(p interface{}) {
		log.Error("Closing worker panicked", "panic", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create closing worker pool")
	}

	cronLog := cronLogger{log: log}
	return &ClosingSweeper{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		pool:     pool,
		auctions: auctions,
		closer:   closer,
		leader:   leader,
		config:   config,
		now:      time.Now,
		log:      log,
		failing:  make(map[string]closeFailure),
	}, nil
}

func (s *ClosingSweeper) Start(ctx context.Context) error {
	s.log.Info("Starting closing sweeper", "schedule", s.config.Schedule, "workers", s.config.Workers)

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("Closing sweep failed", "error", err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "schedule %q", s.config.Schedule)
	}

	s.cron.Start()
	return nil
}

func (s *ClosingSweeper) Stop() error {
	s.log.Info("Stopping closing sweeper")
	<-s.cron.Stop().Done()
	s.pool.Release()
	return nil
}

// Sweep closes one batch of expired auctions and reports how many it
// handed to the closing service. Only the elected leader sweeps.
func (s *ClosingSweeper) Sweep(ctx context.Context) (int, error) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.config.InstanceID)
		if err != nil {
			return 0, errors.Wrap(err, "check sweeper leadership")
		}
		if !isLeader {
			return 0, nil
		}
	}

	now := s.now()
	ids, err := s.nextBatch(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	s.log.Info("Closing expired auctions", "count", len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		auctionID := id
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if _, err := s.closer.CloseIfExpired(ctx, auctionID); err != nil {
				s.recordFailure(auctionID, now)
				s.log.Error("Failed to close expired auction", "auction_id", auctionID, "error", err)
				return
			}
			s.clearFailure(auctionID)
		})
		if err != nil {
			wg.Done()
			s.log.Error("Failed to submit closing task", "auction_id", auctionID, "error", err)
		}
	}
	wg.Wait()
	return len(ids), nil
}

// nextBatch over-fetches by the number of backed-off auctions so they cannot
// fill the batch while waiting.
func (s *ClosingSweeper) nextBatch(ctx context.Context, now time.Time) ([]string, error) {
	s.failMu.Lock()
	deferred := len(s.failing)
	s.failMu.Unlock()

	limit := s.config.BatchSize
	if limit > 0 {
		limit += deferred
	}
	candidates, err := s.auctions.ListExpiredActive(ctx, now, limit)
	if err != nil {
		return nil, err
	}

	s.failMu.Lock()
	defer s.failMu.Unlock()
	if limit <= 0 || len(candidates) < limit {
		// Every expired auction was listed; forget ones closed elsewhere.
		listed := make(map[string]struct{}, len(candidates))
		for _, id := range candidates {
			listed[id] = struct{}{}
		}
		for id := range s.failing {
			if _, ok := listed[id]; !ok {
				delete(s.failing, id)
			}
		}
	}

	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if s.config.BatchSize > 0 && len(ids) == s.config.BatchSize {
			break
		}
		if failure, ok := s.failing[id]; ok && now.Before(failure.retryAt) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ClosingSweeper) recordFailure(auctionID string, now time.Time) {
	s.failMu.Lock()
	defer s.failMu.Unlock()

	failure := s.failing[auctionID]
	failure.attempts++
	delay := closeRetryBase << (failure.attempts - 1)
	if delay > closeRetryMax || delay <= 0 {
		delay = closeRetryMax
	}
	failure.retryAt = now.Add(delay)
	s.failing[auctionID] = failure
}

func (s *ClosingSweeper) clearFailure(auctionID string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	delete(s.failing, auctionID)
}

// cronLogger adapts the key/value logger to cron's logging interface.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
