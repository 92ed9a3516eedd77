package sqlstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRetry = utils.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func newMock(t *testing.T) (sqlmock.Sqlmock, *Repositories, Dialect) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewRepositories(db, MySQL, testRetry), MySQL
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", Postgres.Rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", MySQL.Rebind("a = ? AND b = ?"))

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestCompareAndUpdatePriceCommitsBidAndPrice(t *testing.T) {
	mock, repos, _ := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auctions")).
		WithArgs("105.000000", "alice", sqlmock.AnyArg(), "auction_1", "active", "100.000000", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT bid_count FROM auctions WHERE id = ?")).
		WithArgs("auction_1").
		WillReturnRows(sqlmock.NewRows([]string{"bid_count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bids")).
		WithArgs("bid_1", "auction_1", "alice", "105.000000", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bid := &domain.Bid{ID: "bid_1", AuctionID: "auction_1", BidderID: "alice", Amount: 105, CreatedAt: now}
	require.NoError(t, repos.Auctions.CompareAndUpdatePrice(context.Background(), "auction_1", 100, bid))
	assert.Equal(t, 3, bid.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndUpdatePriceKeepsSubCentToken(t *testing.T) {
	mock, repos, _ := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auctions")).
		WithArgs("110.001000", "bob", sqlmock.AnyArg(), "auction_1", "active", "105.001000", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT bid_count FROM auctions WHERE id = ?")).
		WithArgs("auction_1").
		WillReturnRows(sqlmock.NewRows([]string{"bid_count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bids")).
		WithArgs("bid_2", "auction_1", "bob", "110.001000", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bid := &domain.Bid{ID: "bid_2", AuctionID: "auction_1", BidderID: "bob", Amount: 110.001, CreatedAt: time.Now()}
	require.NoError(t, repos.Auctions.CompareAndUpdatePrice(context.Background(), "auction_1", 105.001, bid))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndUpdatePriceStale(t *testing.T) {
	mock, repos, _ := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auctions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	bid := &domain.Bid{ID: "bid_1", AuctionID: "auction_1", BidderID: "alice", Amount: 105, CreatedAt: time.Now()}
	err := repos.Auctions.CompareAndUpdatePrice(context.Background(), "auction_1", 100, bid)
	assert.ErrorIs(t, err, domain.ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionToEndedAlreadyEnded(t *testing.T) {
	mock, repos, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE auctions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM auctions WHERE id = ?")).
		WithArgs("auction_1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sold"))

	outcome := domain.ClosingOutcome{Status: domain.AuctionEnded, FinalBidAmount: 100, ClosedAt: time.Now()}
	err := repos.Auctions.TransitionToEnded(context.Background(), "auction_1", 100, outcome)
	assert.ErrorIs(t, err, domain.ErrAlreadyEnded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionToEndedWritesOutcome(t *testing.T) {
	mock, repos, _ := newMock(t)
	winner := "bob"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE auctions")).
		WithArgs("sold", "bob", "110.000000", sqlmock.AnyArg(), "auction_1", "active", "110.000000").
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome := domain.ClosingOutcome{Status: domain.AuctionSold, WinnerID: &winner, FinalBidAmount: 110, ClosedAt: time.Now()}
	require.NoError(t, repos.Auctions.TransitionToEnded(context.Background(), "auction_1", 110, outcome))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAuctionScansRow(t *testing.T) {
	mock, repos, _ := newMock(t)
	end := time.Now().Add(time.Hour).UTC()

	columns := []string{"id", "title", "description", "category", "item_condition", "images", "location", "shipping", "returns",
		"seller_id", "starting_price", "current_bid", "min_bid_increment", "highest_bidder_id", "bid_count", "views",
		"status", "end_time", "sold_to", "final_bid_amount", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM auctions WHERE id = ?")).
		WithArgs("auction_1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"auction_1", "Camera", "Mint", "electronics", "used", `["a.jpg","b.jpg"]`, "Pune", "Standard Shipping", "No Returns",
			"seller", "100.00", "105.00", "5.00", "alice", 1, 4,
			"active", end, nil, nil, end, end))

	auction, err := repos.Auctions.GetAuction(context.Background(), "auction_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, auction.Images)
	assert.Equal(t, 105.0, auction.CurrentBid)
	assert.Equal(t, "alice", auction.HighestBidderID)
	assert.Equal(t, domain.AuctionActive, auction.Status)
	assert.Nil(t, auction.SoldTo)
	assert.Nil(t, auction.FinalBidAmount)
}

func TestGetAuctionNotFound(t *testing.T) {
	mock, repos, _ := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM auctions WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repos.Auctions.GetAuction(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnectionErrorsSurfaceAsTransient(t *testing.T) {
	mock, repos, _ := newMock(t)
	for i := 0; i < testRetry.MaxAttempts; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("FROM auctions WHERE id = ?")).
			WillReturnError(mysql.ErrInvalidConn)
	}

	_, err := repos.Auctions.GetAuction(context.Background(), "auction_1")
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestBidEmptyLedger(t *testing.T) {
	mock, repos, _ := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bids")).
		WithArgs("auction_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "auction_id", "bidder_id", "amount", "seq", "created_at"}))

	bid, err := repos.Bids.LatestBid(context.Background(), "auction_1")
	require.NoError(t, err)
	assert.Nil(t, bid)
}

func TestNotificationSaveIgnoresDuplicateOnPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewNotificationRepository(db, Postgres, testRetry)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (dedupe_key) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Save(context.Background(), &domain.Notification{ID: "n1", UserID: "u", Type: domain.NotificationWon, DedupeKey: "won:a", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadUnknownNotification(t *testing.T) {
	mock, repos, _ := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := repos.Notifications.MarkRead(context.Background(), "u", "n1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
