package services

import (
	"context"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/logger"
)

const viewerLabel = "You"

type BidHistoryEntry struct {
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"time"`
}

type WinnerSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ContactInfo is the counterparty's contact, shown only to the two parties
// of a closed sale.
type ContactInfo struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuctionView is the auction detail as rendered for one viewer.
type AuctionView struct {
	*domain.AuctionItem
	BidHistory      []BidHistoryEntry `json:"bidHistory"`
	Winner          *WinnerSummary    `json:"winner,omitempty"`
	ContactInfo     *ContactInfo      `json:"contactInfo,omitempty"`
	IsSeller        bool              `json:"isSeller"`
	IsHighestBidder bool              `json:"isHighestBidder"`
}

// bidderLabels numbers bidders by their first bid in ledger order.
func bidderLabels(bids []*domain.Bid) map[string]string {
	labels := make(map[string]string)
	for _, bid := range bids {
		if _, seen := labels[bid.BidderID]; !seen {
			labels[bid.BidderID] = fmt.Sprintf("Bidder %d", len(labels)+1)
		}
	}
	return labels
}

func buildBidHistory(bids []*domain.Bid, viewerID string) []BidHistoryEntry {
	labels := bidderLabels(bids)
	history := make([]BidHistoryEntry, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		bid := bids[i]
		label := labels[bid.BidderID]
		if viewerID != "" && bid.BidderID == viewerID {
			label = viewerLabel
		}
		history = append(history, BidHistoryEntry{
			Bidder:    label,
			Amount:    bid.Amount,
			CreatedAt: bid.CreatedAt,
		})
	}
	return history
}

func buildAuctionView(
	ctx context.Context,
	auction *domain.AuctionItem,
	bids []*domain.Bid,
	viewerID string,
	users repositories.UserDirectory,
	log logger.Logger,
) *AuctionView {
	view := &AuctionView{
		AuctionItem: auction,
		BidHistory:  buildBidHistory(bids, viewerID),
		IsSeller:    viewerID != "" && viewerID == auction.SellerID,
		IsHighestBidder: viewerID != "" && viewerID == auction.HighestBidderID &&
			auction.Status == domain.AuctionActive,
	}

	if auction.SoldTo == nil {
		return view
	}

	winnerID := *auction.SoldTo
	view.Winner = &WinnerSummary{
		ID:   winnerID,
		Name: displayName(ctx, users, winnerID, log),
	}

	switch viewerID {
	case "":
	case auction.SellerID:
		view.ContactInfo = contactFor(ctx, users, winnerID, "winner", log)
	case winnerID:
		view.ContactInfo = contactFor(ctx, users, auction.SellerID, "seller", log)
	}
	return view
}

func contactFor(ctx context.Context, users repositories.UserDirectory, userID, role string, log logger.Logger) *ContactInfo {
	contact := &ContactInfo{Role: role, Name: userID}
	if users == nil {
		return contact
	}
	user, err := users.GetUser(ctx, userID)
	if err != nil {
		log.Warn("Contact lookup failed", "user_id", userID, "error", err)
		return contact
	}
	if user.Name != "" {
		contact.Name = user.Name
	}
	contact.Email = user.Email
	return contact
}
