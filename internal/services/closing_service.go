package services

import (
	"context"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"

	"github.com/pkg/errors"
)

// AuctionCloser is the single closing entry point used by reads, bids, the
// sweeper and manual ends.
type AuctionCloser interface {
	CloseIfExpired(ctx context.Context, auctionID string) (*domain.AuctionItem, error)
}

var _ AuctionCloser = (*ClosingService)(nil)

type ClosingService struct {
	auctions   repositories.AuctionRepository
	bids       repositories.BidRepository
	users      repositories.UserDirectory
	notifier   domain.Notifier
	eventPub   domain.EventPublisher
	maxRetries int
	now        func() time.Time
	log        logger.Logger
}

func NewClosingService(
	auctions repositories.AuctionRepository,
	bids repositories.BidRepository,
	users repositories.UserDirectory,
	notifier domain.Notifier,
	eventPub domain.EventPublisher,
	maxRetries int,
	log logger.Logger,
) *ClosingService {
	return &ClosingService{
		auctions:   auctions,
		bids:       bids,
		users:      users,
		notifier:   notifier,
		eventPub:   eventPub,
		maxRetries: maxRetries,
		now:        time.Now,
		log:        log,
	}
}

// CloseIfExpired closes the auction when its end time has passed and returns
// the current record either way. Safe to call concurrently and repeatedly.
func (s *ClosingService) CloseIfExpired(ctx context.Context, auctionID string) (*domain.AuctionItem, error) {
	return s.close(ctx, auctionID, false)
}

// ForceClose runs the closing algorithm regardless of the end time.
func (s *ClosingService) ForceClose(ctx context.Context, auctionID string) (*domain.AuctionItem, error) {
	return s.close(ctx, auctionID, true)
}

func (s *ClosingService) close(ctx context.Context, auctionID string, force bool) (*domain.AuctionItem, error) {
	for attempt := 0; ; attempt++ {
		auction, err := s.auctions.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}
		if auction.Status != domain.AuctionActive {
			return auction, nil
		}

		now := s.now()
		if !force && !auction.Expired(now) {
			return auction, nil
		}

		latest, err := s.bids.LatestBid(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		outcome := domain.ClosingOutcome{
			Status:         domain.AuctionEnded,
			FinalBidAmount: auction.StartingPrice,
			ClosedAt:       now,
		}
		if latest != nil {
			winnerID := latest.BidderID
			outcome.Status = domain.AuctionSold
			outcome.WinnerID = &winnerID
			outcome.FinalBidAmount = latest.Amount
		}

		// A bid landed between reading the record and the ledger.
		if latest != nil && latest.Amount != auction.CurrentBid {
			err = domain.ErrStaleState
		} else {
			err = s.auctions.TransitionToEnded(ctx, auctionID, auction.CurrentBid, outcome)
		}

		switch {
		case err == nil:
			applyOutcome(auction, outcome)
			s.log.Info("Auction closed", "auction_id", auctionID, "status", auction.Status.String(),
				"final_bid", outcome.FinalBidAmount, "forced", force)
			s.settle(ctx, auction, outcome)
			return auction, nil

		case errors.Is(err, domain.ErrAlreadyEnded):
			s.log.Debug("Auction already closed by another caller", "auction_id", auctionID)
			return s.auctions.GetAuction(ctx, auctionID)

		case errors.Is(err, domain.ErrStaleState):
			if attempt >= s.maxRetries {
				return nil, errors.Wrapf(domain.ErrTransient, "closing auction %s kept racing with bids", auctionID)
			}
			s.log.Debug("Price moved while closing, recomputing", "auction_id", auctionID, "attempt", attempt+1)

		default:
			return nil, err
		}
	}
}

func applyOutcome(auction *domain.AuctionItem, outcome domain.ClosingOutcome) {
	auction.Status = outcome.Status
	auction.SoldTo = outcome.WinnerID
	final := outcome.FinalBidAmount
	auction.FinalBidAmount = &final
	auction.UpdatedAt = outcome.ClosedAt
}

// settle runs only for the caller that won the transition. Failures here are
// logged and never undo the transition.
func (s *ClosingService) settle(ctx context.Context, auction *domain.AuctionItem, outcome domain.ClosingOutcome) {
	if outcome.WinnerID != nil {
		winnerID := *outcome.WinnerID
		sellerName := s.displayName(ctx, auction.SellerID)
		winnerName := s.displayName(ctx, winnerID)

		if err := s.notifier.Won(ctx, winnerID, auction, outcome.FinalBidAmount, sellerName); err != nil {
			s.log.Error("Failed to notify winner", "auction_id", auction.ID, "user_id", winnerID, "error", err)
		}
		if err := s.notifier.Sold(ctx, auction.SellerID, auction, winnerName, outcome.FinalBidAmount); err != nil {
			s.log.Error("Failed to notify seller", "auction_id", auction.ID, "user_id", auction.SellerID, "error", err)
		}
	} else {
		if err := s.notifier.EndedUnsold(ctx, auction.SellerID, auction); err != nil {
			s.log.Error("Failed to notify seller", "auction_id", auction.ID, "user_id", auction.SellerID, "error", err)
		}
	}

	if s.eventPub == nil {
		return
	}
	event := &domain.AuctionEvent{
		Type:      domain.EventAuctionClosed,
		AuctionID: auction.ID,
		Amount:    outcome.FinalBidAmount,
		Status:    outcome.Status,
		EndTime:   auction.EndTime,
		Timestamp: outcome.ClosedAt,
	}
	if err := s.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Warn("Failed to publish auction closed event", "auction_id", auction.ID, "error", err)
	}
}

func (s *ClosingService) displayName(ctx context.Context, userID string) string {
	return displayName(ctx, s.users, userID, s.log)
}

// displayName falls back to the raw id when the identity service has no record.
func displayName(ctx context.Context, users repositories.UserDirectory, userID string, log logger.Logger) string {
	if users == nil {
		return userID
	}
	user, err := users.GetUser(ctx, userID)
	if err != nil || user.Name == "" {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn("Failed to resolve user", "user_id", userID, "error", err)
		}
		return userID
	}
	return user.Name
}
