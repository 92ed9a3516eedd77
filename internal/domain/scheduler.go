package domain

import "context"

// AuctionScheduler runs the periodic closing sweep.
type AuctionScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}
