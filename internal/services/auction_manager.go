package services

import (
	"context"
	"math"
	"strings"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultShipping = "Standard Shipping"
	defaultReturns  = "No Returns"
	defaultLocation = "Not Specified"
)

type CreateAuctionInput struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Condition       string   `json:"condition"`
	Images          []string `json:"images"`
	StartingPrice   float64  `json:"startingPrice"`
	DurationSeconds int64    `json:"duration"`
	Location        string   `json:"location"`
	Shipping        string   `json:"shipping"`
	Returns         string   `json:"returns"`
}

func (in CreateAuctionInput) validate() error {
	required := []struct{ field, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"category", in.Category},
		{"condition", in.Condition},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if math.IsNaN(in.StartingPrice) || math.IsInf(in.StartingPrice, 0) || in.StartingPrice <= 0 {
		return &domain.ValidationError{Field: "startingPrice", Reason: "must be a positive number"}
	}
	if in.DurationSeconds <= 0 {
		return &domain.ValidationError{Field: "duration", Reason: "must be positive"}
	}
	if len(in.Images) == 0 {
		return &domain.ValidationError{Field: "images", Reason: "at least one image is required"}
	}
	return nil
}

// AuctionManager owns the auction lifecycle outside of bidding: creation,
// reads that may lazily close, and manual ends.
type AuctionManager struct {
	auctions repositories.AuctionRepository
	bids     repositories.BidRepository
	users    repositories.UserDirectory
	closer   *ClosingService
	eventPub domain.EventPublisher
	rules    domain.BiddingRule
	lower    cases.Caser
	now      func() time.Time
	log      logger.Logger
}

func NewAuctionManager(
	auctions repositories.AuctionRepository,
	bids repositories.BidRepository,
	users repositories.UserDirectory,
	closer *ClosingService,
	eventPub domain.EventPublisher,
	rules domain.BiddingRule,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		auctions: auctions,
		bids:     bids,
		users:    users,
		closer:   closer,
		eventPub: eventPub,
		rules:    rules,
		lower:    cases.Lower(language.Und),
		now:      time.Now,
		log:      log,
	}
}

func (am *AuctionManager) CreateAuction(ctx context.Context, sellerID string, input CreateAuctionInput) (*domain.AuctionItem, error) {
	if sellerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := am.now()
	auction := &domain.AuctionItem{
		ID:              utils.GenerateID("auction"),
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Category:        am.lower.String(strings.TrimSpace(input.Category)),
		Condition:       input.Condition,
		Images:          append([]string(nil), input.Images...),
		Location:        withDefault(input.Location, defaultLocation),
		Shipping:        withDefault(input.Shipping, defaultShipping),
		Returns:         withDefault(input.Returns, defaultReturns),
		SellerID:        sellerID,
		StartingPrice:   input.StartingPrice,
		CurrentBid:      input.StartingPrice,
		MinBidIncrement: am.rules.IncrementFor(input.StartingPrice),
		Status:          domain.AuctionActive,
		EndTime:         now.Add(time.Duration(input.DurationSeconds) * time.Second),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := am.auctions.CreateAuction(ctx, auction); err != nil {
		am.log.Error("Failed to create auction", "seller_id", sellerID, "error", err)
		return nil, err
	}

	am.log.Info("Auction created", "auction_id", auction.ID, "seller_id", sellerID,
		"starting_price", auction.StartingPrice, "min_bid_increment", auction.MinBidIncrement,
		"end_time", auction.EndTime)

	if am.eventPub != nil {
		event := &domain.AuctionEvent{
			Type:            domain.EventAuctionCreated,
			AuctionID:       auction.ID,
			Amount:          auction.CurrentBid,
			MinBidIncrement: auction.MinBidIncrement,
			Status:          auction.Status,
			EndTime:         auction.EndTime,
			Timestamp:       now,
		}
		if err := am.eventPub.PublishAuctionEvent(ctx, event); err != nil {
			am.log.Warn("Failed to publish auction created event", "auction_id", auction.ID, "error", err)
		}
	}
	return auction, nil
}

// GetAuction returns the record, closing it first if its end time passed.
func (am *AuctionManager) GetAuction(ctx context.Context, auctionID string) (*domain.AuctionItem, error) {
	return am.closer.CloseIfExpired(ctx, auctionID)
}

// GetAuctionView renders the auction for viewerID, who may be empty for
// anonymous readers.
func (am *AuctionManager) GetAuctionView(ctx context.Context, auctionID, viewerID string) (*AuctionView, error) {
	auction, err := am.closer.CloseIfExpired(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if viewerID != auction.SellerID {
		if err := am.auctions.IncrementViews(ctx, auctionID); err != nil {
			am.log.Warn("Failed to count view", "auction_id", auctionID, "error", err)
		} else {
			auction.Views++
		}
	}

	bids, err := am.bids.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return buildAuctionView(ctx, auction, bids, viewerID, am.users, am.log), nil
}

// EndAuction lets the seller or an admin close an auction before its end
// time. Ending an already closed auction returns it unchanged.
func (am *AuctionManager) EndAuction(ctx context.Context, auctionID string, actor domain.Actor) (*domain.AuctionItem, error) {
	if actor.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	auction, err := am.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, errors.Wrapf(domain.ErrForbidden, "user %s cannot end auction %s", actor.UserID, auctionID)
	}

	am.log.Info("Ending auction on request", "auction_id", auctionID, "user_id", actor.UserID, "role", actor.Role)
	return am.closer.ForceClose(ctx, auctionID)
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
