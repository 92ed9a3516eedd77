package services

import (
	"math"

	"auction-engine/internal/domain"

	"github.com/shopspring/decimal"
)

var _ domain.BiddingRule = (*PercentIncrementRule)(nil)

// PercentIncrementRule fixes each auction's increment at creation as a share
// of the starting price, never below Floor.
type PercentIncrementRule struct {
	Percent decimal.Decimal
	Floor   decimal.Decimal
}

// NewBiddingRule returns the marketplace rule: max(1, floor(5% of starting price)).
func NewBiddingRule() *PercentIncrementRule {
	return &PercentIncrementRule{
		Percent: decimal.RequireFromString("0.05"),
		Floor:   decimal.NewFromInt(1),
	}
}

func (r *PercentIncrementRule) IncrementFor(startingPrice float64) float64 {
	increment := decimal.NewFromFloat(startingPrice).Mul(r.Percent).Floor()
	return decimal.Max(r.Floor, increment).InexactFloat64()
}

func (r *PercentIncrementRule) MinimumBid(currentBid, increment float64) float64 {
	return decimal.NewFromFloat(currentBid).Add(decimal.NewFromFloat(increment)).InexactFloat64()
}

// ValidateAmount accepts positive, finite amounts. Precision is left to
// Meets so a bid just under the minimum reads as too low.
func (r *PercentIncrementRule) ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

// Meets compares in decimal so 104.99 never rounds up to a 105 minimum.
func (r *PercentIncrementRule) Meets(amount, minimum float64) bool {
	return decimal.NewFromFloat(amount).GreaterThanOrEqual(decimal.NewFromFloat(minimum))
}
