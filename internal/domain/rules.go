package domain

// BiddingRule derives the increment and minimum acceptable bid for an auction.
type BiddingRule interface {
	IncrementFor(startingPrice float64) float64
	MinimumBid(currentBid, increment float64) float64
	ValidateAmount(amount float64) error
	Meets(amount, minimum float64) bool
}
