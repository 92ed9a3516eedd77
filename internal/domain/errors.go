package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidAuction   = errors.New("invalid auction")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrSelfBidForbidden = errors.New("seller cannot bid on own auction")
	ErrBidTooLow        = errors.New("bid too low")
	ErrAuctionNotActive = errors.New("auction not active")
	// ErrStaleState means a conditional update lost against a concurrent writer.
	ErrStaleState = errors.New("stale state")
	// ErrAlreadyEnded means the closing transition already happened.
	ErrAlreadyEnded = errors.New("auction already ended")
	// ErrTransient means the store stayed unavailable after bounded retries.
	ErrTransient = errors.New("temporarily unavailable")
)

type RejectReason string

const (
	ReasonNotFound         RejectReason = "NotFound"
	ReasonAuctionNotActive RejectReason = "AuctionNotActive"
	ReasonInvalidAmount    RejectReason = "InvalidAmount"
	ReasonSelfBidForbidden RejectReason = "SelfBidForbidden"
	ReasonBidTooLow        RejectReason = "BidTooLow"
)

// BidRejection is a bidder-facing validation failure.
type BidRejection struct {
	Reason     RejectReason
	Message    string
	MinimumBid float64
	CurrentBid float64
}

func (r *BidRejection) Error() string {
	return r.Message
}

func (r *BidRejection) Unwrap() error {
	switch r.Reason {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonAuctionNotActive:
		return ErrAuctionNotActive
	case ReasonInvalidAmount:
		return ErrInvalidAmount
	case ReasonSelfBidForbidden:
		return ErrSelfBidForbidden
	case ReasonBidTooLow:
		return ErrBidTooLow
	}
	return nil
}

func NewBidTooLow(currentBid, minimum float64) *BidRejection {
	return &BidRejection{
		Reason:     ReasonBidTooLow,
		Message:    fmt.Sprintf("Bid must be at least %s", FormatAmount(minimum)),
		MinimumBid: minimum,
		CurrentBid: currentBid,
	}
}

// ValidationError carries a field-level reason for rejected auction input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAuction
}

// FormatAmount renders a currency amount without trailing zero cents.
func FormatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d", int64(amount))
	}
	return fmt.Sprintf("%.2f", amount)
}
