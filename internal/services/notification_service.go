package services

import (
	"context"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"
)

// NotificationListLimit caps how many notifications a user sees at once.
const NotificationListLimit = 50

var _ domain.Notifier = (*NotificationService)(nil)

// NotificationService persists notifications exactly once per trigger and
// hands them to the delivery sink. Delivery is best effort.
type NotificationService struct {
	repo repositories.NotificationRepository
	sink domain.NotificationSink
	now  func() time.Time
	log  logger.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, sink domain.NotificationSink, log logger.Logger) *NotificationService {
	return &NotificationService{
		repo: repo,
		sink: sink,
		now:  time.Now,
		log:  log,
	}
}

func (s *NotificationService) Outbid(ctx context.Context, previousBidderID string, auction *domain.AuctionItem, overtakingBid *domain.Bid) error {
	return s.emit(ctx, &domain.Notification{
		UserID:    previousBidderID,
		Type:      domain.NotificationOutbid,
		Message:   fmt.Sprintf("You have been outbid on auction: %s", auction.Title),
		AuctionID: auction.ID,
		DedupeKey: fmt.Sprintf("outbid:%s:%s", overtakingBid.ID, previousBidderID),
	})
}

func (s *NotificationService) Won(ctx context.Context, winnerID string, auction *domain.AuctionItem, amount float64, sellerName string) error {
	return s.emit(ctx, &domain.Notification{
		UserID: winnerID,
		Type:   domain.NotificationWon,
		Message: fmt.Sprintf("Congratulations! You won the auction: %s for ₹%s from %s",
			auction.Title, domain.FormatAmount(amount), sellerName),
		AuctionID: auction.ID,
		DedupeKey: fmt.Sprintf("won:%s", auction.ID),
	})
}

func (s *NotificationService) Sold(ctx context.Context, sellerID string, auction *domain.AuctionItem, winnerName string, amount float64) error {
	return s.emit(ctx, &domain.Notification{
		UserID: sellerID,
		Type:   domain.NotificationSold,
		Message: fmt.Sprintf("Auction ended: Your item '%s' was sold to %s for ₹%s",
			auction.Title, winnerName, domain.FormatAmount(amount)),
		AuctionID: auction.ID,
		DedupeKey: fmt.Sprintf("sold:%s", auction.ID),
	})
}

func (s *NotificationService) EndedUnsold(ctx context.Context, sellerID string, auction *domain.AuctionItem) error {
	return s.emit(ctx, &domain.Notification{
		UserID:    sellerID,
		Type:      domain.NotificationEnded,
		Message:   fmt.Sprintf("Auction ended: %s (no bids were placed, item did not sell)", auction.Title),
		AuctionID: auction.ID,
		DedupeKey: fmt.Sprintf("ended:%s", auction.ID),
	})
}

func (s *NotificationService) emit(ctx context.Context, notification *domain.Notification) error {
	notification.ID = utils.GenerateID("notification")
	notification.CreatedAt = s.now()

	inserted, err := s.repo.Save(ctx, notification)
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Debug("Notification already emitted", "dedupe_key", notification.DedupeKey)
		return nil
	}

	s.log.Info("Notification emitted", "notification_id", notification.ID, "type", notification.Type,
		"user_id", notification.UserID, "auction_id", notification.AuctionID)

	if s.sink == nil {
		return nil
	}
	if err := s.sink.Deliver(ctx, notification); err != nil {
		// The stored row is still visible through the notifications API.
		s.log.Warn("Notification delivery hand-off failed", "notification_id", notification.ID, "error", err)
	}
	return nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	return s.repo.ListForUser(ctx, userID, NotificationListLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
