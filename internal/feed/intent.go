package feed

import "arbwatch/internal/model"

// SubscriptionIntent is sent once after connecting to select the market.
type SubscriptionIntent struct {
	TokenA string `json:"token_a"`
	TokenB string `json:"token_b"`
}

// NewSubscriptionIntent builds the intent for pair.
func NewSubscriptionIntent(pair model.PairID) SubscriptionIntent {
	return SubscriptionIntent{TokenA: pair.Base(), TokenB: pair.Quote()}
}
