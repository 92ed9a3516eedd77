package services

import (
	"math"
	"testing"

	"auction-engine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestIncrementFor(t *testing.T) {
	rule := NewBiddingRule()

	tests := []struct {
		startingPrice float64
		want          float64
	}{
		{startingPrice: 100, want: 5},
		{startingPrice: 10, want: 1},
		{startingPrice: 0.5, want: 1},
		{startingPrice: 39.99, want: 1},
		{startingPrice: 60, want: 3},
		{startingPrice: 1999, want: 99},
		{startingPrice: 250000, want: 12500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rule.IncrementFor(tt.startingPrice), "starting price %v", tt.startingPrice)
	}
}

func TestMinimumBidAndBoundary(t *testing.T) {
	rule := NewBiddingRule()

	minimum := rule.MinimumBid(100, 5)
	assert.Equal(t, 105.0, minimum)
	assert.True(t, rule.Meets(105, minimum))
	assert.False(t, rule.Meets(104.99, minimum))
	assert.False(t, rule.Meets(104.999, minimum))
	assert.True(t, rule.Meets(105.001, minimum))

	assert.Equal(t, 0.3, rule.MinimumBid(0.1, 0.2))
}

func TestValidateAmount(t *testing.T) {
	rule := NewBiddingRule()

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.ErrorIs(t, rule.ValidateAmount(bad), domain.ErrInvalidAmount, "amount %v", bad)
	}
	for _, good := range []float64{1, 105, 105.5, 0.01, 10.001} {
		assert.NoError(t, rule.ValidateAmount(good), "amount %v", good)
	}
}
