package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuctionItem is the persisted auction record together with its price state.
type AuctionItem struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	Condition       string        `json:"condition"`
	Images          []string      `json:"images"`
	Location        string        `json:"location"`
	Shipping        string        `json:"shipping"`
	Returns         string        `json:"returns"`
	SellerID        string        `json:"sellerId"`
	StartingPrice   float64       `json:"startingPrice"`
	CurrentBid      float64       `json:"currentBid"`
	MinBidIncrement float64       `json:"minBidIncrement"`
	HighestBidderID string        `json:"-"`
	BidCount        int           `json:"bidCount"`
	Views           int           `json:"views"`
	Status          AuctionStatus `json:"status"`
	EndTime         time.Time     `json:"endTime"`
	SoldTo          *string       `json:"soldTo"`
	FinalBidAmount  *float64      `json:"finalBidAmount"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share slices or pointers with a store.
func (a *AuctionItem) Clone() *AuctionItem {
	if a == nil {
		return nil
	}
	c := *a
	c.Images = append([]string(nil), a.Images...)
	if a.SoldTo != nil {
		soldTo := *a.SoldTo
		c.SoldTo = &soldTo
	}
	if a.FinalBidAmount != nil {
		final := *a.FinalBidAmount
		c.FinalBidAmount = &final
	}
	return &c
}

// Expired reports whether the auction's end time has been reached at now.
func (a *AuctionItem) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

type AuctionStatus int

const (
	AuctionPending AuctionStatus = iota
	AuctionActive
	AuctionEnded
	AuctionSold
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionPending:
		return "pending"
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionSold:
		return "sold"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further bids or transitions are possible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded || s == AuctionSold
}

func ParseAuctionStatus(value string) (AuctionStatus, error) {
	switch value {
	case "pending":
		return AuctionPending, nil
	case "active":
		return AuctionActive, nil
	case "ended":
		return AuctionEnded, nil
	case "sold":
		return AuctionSold, nil
	}
	return AuctionPending, fmt.Errorf("unknown auction status %q", value)
}

func (s AuctionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *AuctionStatus) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	parsed, err := ParseAuctionStatus(value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Bid is one immutable entry of an auction's bid ledger. Seq orders bids
// within an auction, starting at 1.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    float64   `json:"amount"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// AcceptedBid is returned to the bidder after a successful placement.
type AcceptedBid struct {
	Bid        *Bid    `json:"bid"`
	CurrentBid float64 `json:"currentBid"`
}

// ClosingOutcome is what the closing transition writes.
type ClosingOutcome struct {
	Status         AuctionStatus
	WinnerID       *string
	FinalBidAmount float64
	ClosedAt       time.Time
}

type NotificationType string

const (
	NotificationOutbid NotificationType = "outbid"
	NotificationWon    NotificationType = "won"
	NotificationSold   NotificationType = "sold"
	NotificationEnded  NotificationType = "ended"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	AuctionID string           `json:"auctionId"`
	DedupeKey string           `json:"-"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the identity collaborator's view of an account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// PriceSnapshot is the cached live price view pushed to websocket clients.
type PriceSnapshot struct {
	AuctionID       string        `json:"auction_id"`
	CurrentBid      float64       `json:"current_bid"`
	MinBidIncrement float64       `json:"min_bid_increment"`
	LeaderID        string        `json:"leader_id"`
	Status          AuctionStatus `json:"status"`
	EndTime         time.Time     `json:"end_time"`
	LastUpdated     time.Time     `json:"last_updated"`
}
