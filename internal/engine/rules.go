package engine

// Rules configures optional house-rule behavior. The zero value is the
// standard rule set.
type Rules struct {
	// SmallBlindForfeit applies the house rule where the player at
	// position 2 who folds pre-flop while a bet is open forfeits half
	// the current watermark into the pot.
	SmallBlindForfeit bool
}

// smallBlindPosition is the seat the forfeiture rule applies to.
const smallBlindPosition = 2
