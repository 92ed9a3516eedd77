package services

import (
	"context"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"

	"github.com/pkg/errors"
)

type BidService struct {
	auctions   repositories.AuctionRepository
	closer     AuctionCloser
	notifier   domain.Notifier
	eventPub   domain.EventPublisher
	rules      domain.BiddingRule
	maxRetries int
	now        func() time.Time
	log        logger.Logger
}

func NewBidService(
	auctions repositories.AuctionRepository,
	closer AuctionCloser,
	notifier domain.Notifier,
	eventPub domain.EventPublisher,
	rules domain.BiddingRule,
	maxRetries int,
	log logger.Logger,
) *BidService {
	return &BidService{
		auctions:   auctions,
		closer:     closer,
		notifier:   notifier,
		eventPub:   eventPub,
		rules:      rules,
		maxRetries: maxRetries,
		now:        time.Now,
		log:        log,
	}
}

// PlaceBid validates and commits one bid. Rejections are *domain.BidRejection
// values; exhausting the race retries yields domain.ErrTransient.
func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.AcceptedBid, error) {
	if bidderID == "" {
		return nil, errors.Wrap(domain.ErrUnauthorized, "bidder identity required")
	}
	s.log.Info("Placing bid", "auction_id", auctionID, "user_id", bidderID, "amount", amount)

	for attempt := 0; ; attempt++ {
		auction, err := s.auctions.GetAuction(ctx, auctionID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.BidRejection{Reason: domain.ReasonNotFound, Message: "Auction not found"}
		}
		if err != nil {
			return nil, err
		}

		now := s.now()
		bid, rejection := s.check(ctx, auction, bidderID, amount, now)
		if rejection != nil {
			s.log.Info("Bid rejected", "auction_id", auctionID, "user_id", bidderID,
				"amount", amount, "reason", rejection.Reason)
			return nil, rejection
		}

		err = s.auctions.CompareAndUpdatePrice(ctx, auctionID, auction.CurrentBid, bid)
		if errors.Is(err, domain.ErrStaleState) {
			if attempt >= s.maxRetries {
				s.log.Warn("Bid kept losing price races", "auction_id", auctionID, "user_id", bidderID, "attempts", attempt+1)
				return nil, errors.Wrapf(domain.ErrTransient, "bid on auction %s", auctionID)
			}
			s.log.Debug("Price moved during bid, re-validating", "auction_id", auctionID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			s.log.Error("Failed to commit bid", "auction_id", auctionID, "error", err)
			return nil, err
		}

		s.afterAccept(ctx, auction, bid)
		return &domain.AcceptedBid{Bid: bid, CurrentBid: bid.Amount}, nil
	}
}

// check applies the preconditions in their fixed order.
func (s *BidService) check(ctx context.Context, auction *domain.AuctionItem, bidderID string, amount float64, now time.Time) (*domain.Bid, *domain.BidRejection) {
	if auction.Status != domain.AuctionActive || auction.Expired(now) {
		if auction.Status == domain.AuctionActive {
			if _, err := s.closer.CloseIfExpired(ctx, auction.ID); err != nil {
				s.log.Error("Failed to close expired auction", "auction_id", auction.ID, "error", err)
			}
		}
		return nil, &domain.BidRejection{
			Reason:     domain.ReasonAuctionNotActive,
			Message:    "Auction has ended",
			CurrentBid: auction.CurrentBid,
		}
	}

	if err := s.rules.ValidateAmount(amount); err != nil {
		return nil, &domain.BidRejection{
			Reason:  domain.ReasonInvalidAmount,
			Message: "Bid amount must be a positive number",
		}
	}

	if bidderID == auction.SellerID {
		return nil, &domain.BidRejection{
			Reason:  domain.ReasonSelfBidForbidden,
			Message: "You cannot bid on your own auction",
		}
	}

	minimum := s.rules.MinimumBid(auction.CurrentBid, auction.MinBidIncrement)
	if !s.rules.Meets(amount, minimum) {
		return nil, domain.NewBidTooLow(auction.CurrentBid, minimum)
	}

	return &domain.Bid{
		ID:        utils.GenerateID("bid"),
		AuctionID: auction.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}, nil
}

func (s *BidService) afterAccept(ctx context.Context, auction *domain.AuctionItem, bid *domain.Bid) {
	s.log.Info("Bid accepted", "auction_id", auction.ID, "user_id", bid.BidderID,
		"amount", bid.Amount, "previous_bid", auction.CurrentBid)

	previous := auction.HighestBidderID
	if previous != "" && previous != bid.BidderID {
		if err := s.notifier.Outbid(ctx, previous, auction, bid); err != nil {
			s.log.Error("Failed to notify outbid bidder", "auction_id", auction.ID, "user_id", previous, "error", err)
		}
	}

	if s.eventPub == nil {
		return
	}
	event := &domain.AuctionEvent{
		Type:            domain.EventBidAccepted,
		AuctionID:       auction.ID,
		BidderID:        bid.BidderID,
		Amount:          bid.Amount,
		MinBidIncrement: auction.MinBidIncrement,
		Status:          domain.AuctionActive,
		EndTime:         auction.EndTime,
		Timestamp:       bid.CreatedAt,
	}
	if err := s.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Warn("Failed to publish bid event", "auction_id", auction.ID, "error", err)
	}
}
