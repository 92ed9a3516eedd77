package sqlstore

import (
	"database/sql"

	"auction-engine/pkg/utils"
)

// Repositories groups every SQL-backed repository over one connection pool.
type Repositories struct {
	Auctions      *AuctionRepository
	Bids          *BidRepository
	Notifications *NotificationRepository
	Users         *UserDirectory
}

func NewRepositories(db *sql.DB, dialect Dialect, retry utils.RetryPolicy) *Repositories {
	return &Repositories{
		Auctions:      NewAuctionRepository(db, dialect, retry),
		Bids:          NewBidRepository(db, dialect, retry),
		Notifications: NewNotificationRepository(db, dialect, retry),
		Users:         NewUserDirectory(db, dialect, retry),
	}
}
