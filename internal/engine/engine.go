// Package engine implements the betting-round state machine for the
// Domino Hold'em bet manager.
//
// The engine is pure decision logic: every operation takes a Game and
// Player snapshot and returns fully derived next-state values, or an
// error with nothing derived. Callers own persistence and commit the
// returned values atomically, so a rejected action never leaves partial
// state behind.
//
// Betting follows difference-based accounting: a call pays the gap
// between the round watermark and what the player has already committed
// this round, never the full watermark again. This is what makes chip
// conservation hold: for any hand, sum(balances) + pot is invariant
// across bet/call/raise/fold and chips only move at winner declaration.
package engine

import (
	"fmt"
	"sort"
)

// Engine applies betting actions and hand/round transitions.
type Engine struct {
	rules Rules
}

// New creates an engine with the given house rules.
func New(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rule configuration.
func (e *Engine) Rules() Rules {
	return e.rules
}

// ActionResult holds the derived state of an accepted action. Record has
// no id or timestamp; the caller assigns both when committing.
type ActionResult struct {
	Game   Game
	Player Player
	Record ActionRecord
}

// ApplyAction validates and applies a single betting action for the
// player whose turn it is. Turn enforcement is strict: an out-of-turn
// action is rejected with ErrTurnViolation, never reassigned.
func (e *Engine) ApplyAction(game Game, players []Player, playerID int64, action ActionType, amount int) (*ActionResult, error) {
	if !game.IsActive {
		return nil, ErrGameInactive
	}

	players = clonePlayers(players)
	actor := findPlayer(players, playerID)
	if actor == nil {
		return nil, fmt.Errorf("%w: player %d is not in game %d", ErrValidation, playerID, game.ID)
	}
	if actor.Status != StatusActive {
		return nil, fmt.Errorf("%w: player %q is %s", ErrTurnViolation, actor.Name, actor.Status)
	}
	if actor.Position != game.CurrentPlayerTurn {
		return nil, fmt.Errorf("%w: it is position %d's turn, %q is position %d",
			ErrTurnViolation, game.CurrentPlayerTurn, actor.Name, actor.Position)
	}

	var moved int
	switch action {
	case Bet:
		if game.CurrentBetAmount > 0 {
			return nil, fmt.Errorf("%w: a bet of %d is already open, raise instead", ErrInvalidBetState, game.CurrentBetAmount)
		}
		if amount <= 0 {
			return nil, fmt.Errorf("%w: bet amount must be positive", ErrValidation)
		}
		if amount > actor.Balance {
			return nil, fmt.Errorf("%w: bet %d exceeds balance %d", ErrInsufficientBalance, amount, actor.Balance)
		}
		actor.Balance -= amount
		actor.CurrentBet += amount
		game.Pot += amount
		game.CurrentBetAmount = amount
		moved = amount

	case Call:
		if game.CurrentBetAmount == 0 {
			return nil, fmt.Errorf("%w: nothing to call", ErrInvalidBetState)
		}
		callAmt := game.CurrentBetAmount - actor.CurrentBet
		if callAmt > actor.Balance {
			return nil, fmt.Errorf("%w: call of %d exceeds balance %d", ErrInsufficientBalance, callAmt, actor.Balance)
		}
		actor.Balance -= callAmt
		actor.CurrentBet += callAmt
		game.Pot += callAmt
		moved = callAmt

	case Raise:
		if game.CurrentBetAmount == 0 {
			return nil, fmt.Errorf("%w: no bet to raise, bet instead", ErrInvalidBetState)
		}
		if amount <= game.CurrentBetAmount {
			return nil, fmt.Errorf("%w: raise to %d must exceed current bet of %d", ErrInvalidBetState, amount, game.CurrentBetAmount)
		}
		additional := amount - actor.CurrentBet
		if additional > actor.Balance {
			return nil, fmt.Errorf("%w: raise needs %d more, balance is %d", ErrInsufficientBalance, additional, actor.Balance)
		}
		actor.Balance -= additional
		actor.CurrentBet = amount
		game.Pot += additional
		game.CurrentBetAmount = amount
		moved = additional

	case Fold:
		actor.Status = StatusFolded
		if e.rules.SmallBlindForfeit &&
			game.CurrentRound == PreFlop &&
			actor.Position == smallBlindPosition &&
			game.CurrentBetAmount > 0 {
			penalty := game.CurrentBetAmount / 2
			if penalty > actor.Balance {
				penalty = actor.Balance
			}
			actor.Balance -= penalty
			game.Pot += penalty
			moved = penalty
		}

	default:
		return nil, fmt.Errorf("%w: %s is not a player action", ErrValidation, action)
	}

	if next, ok := nextActivePosition(players, actor.Position); ok {
		game.CurrentPlayerTurn = next
	}

	return &ActionResult{
		Game:   game,
		Player: *actor,
		Record: ActionRecord{
			GameID:     game.ID,
			HandNumber: game.CurrentHandNumber,
			Round:      game.CurrentRound,
			PlayerID:   actor.ID,
			PlayerName: actor.Name,
			Action:     action,
			Amount:     moved,
		},
	}, nil
}

// AdvanceRound moves the game to the next betting round. Per-round bet
// state resets: the watermark and every player's round commitment go back
// to zero, and the turn returns to the first active player. Advancing
// past river is rejected.
func (e *Engine) AdvanceRound(game Game, players []Player) (Game, []Player, error) {
	if !game.IsActive {
		return Game{}, nil, ErrGameInactive
	}
	next, ok := game.CurrentRound.Next()
	if !ok {
		return Game{}, nil, fmt.Errorf("%w: already at %s", ErrInvalidRoundTransition, River)
	}

	players = clonePlayers(players)
	game.CurrentRound = next
	game.CurrentBetAmount = 0
	for i := range players {
		players[i].CurrentBet = 0
	}
	if first, ok := firstActivePosition(players); ok {
		game.CurrentPlayerTurn = first
	}
	return game, players, nil
}

// StartNewHand resets per-hand state. Folded players with chips return to
// active; players with an empty balance drop out.
func (e *Engine) StartNewHand(game Game, players []Player) (Game, []Player, error) {
	if !game.IsActive {
		return Game{}, nil, ErrGameInactive
	}

	players = clonePlayers(players)
	game.CurrentHandNumber++
	game.CurrentRound = PreFlop
	game.Pot = 0
	game.CurrentBetAmount = 0
	for i := range players {
		players[i].CurrentBet = 0
		if players[i].Balance > 0 {
			players[i].Status = StatusActive
		} else {
			players[i].Status = StatusOut
		}
	}
	if first, ok := firstActivePosition(players); ok {
		game.CurrentPlayerTurn = first
	}
	return game, players, nil
}

// SettleResult holds the derived state of a hand or game settlement.
type SettleResult struct {
	Game     Game
	Players  []Player
	Record   ActionRecord
	TotalWon int
}

// DeclareHandWinner awards the pot to the named player and rolls the game
// into the next hand. The winner may be folded (a human referee decides
// real-world card outcomes) but may not be out.
func (e *Engine) DeclareHandWinner(game Game, players []Player, winnerID int64) (*SettleResult, error) {
	if !game.IsActive {
		return nil, ErrGameInactive
	}

	players = clonePlayers(players)
	winner := findPlayer(players, winnerID)
	if winner == nil {
		return nil, fmt.Errorf("%w: player %d is not in game %d", ErrValidation, winnerID, game.ID)
	}
	if winner.Status == StatusOut {
		return nil, fmt.Errorf("%w: %q is out of the game", ErrValidation, winner.Name)
	}

	pot := game.Pot
	winner.Balance += pot
	record := ActionRecord{
		GameID:     game.ID,
		HandNumber: game.CurrentHandNumber,
		Round:      game.CurrentRound,
		PlayerID:   winner.ID,
		PlayerName: winner.Name,
		Action:     Won,
		Amount:     pot,
	}

	game.Pot = 0
	game, players, err := e.StartNewHand(game, players)
	if err != nil {
		return nil, err
	}

	return &SettleResult{
		Game:     game,
		Players:  players,
		Record:   record,
		TotalWon: pot,
	}, nil
}

// EndGame settles the whole game winner-takes-all: the winner collects
// the pot plus every other player's remaining balance, everyone else is
// marked out, and the game is deactivated. TotalWon is the chips gained.
func (e *Engine) EndGame(game Game, players []Player, winnerID int64) (*SettleResult, error) {
	if !game.IsActive {
		return nil, ErrGameInactive
	}

	players = clonePlayers(players)
	winner := findPlayer(players, winnerID)
	if winner == nil {
		return nil, fmt.Errorf("%w: player %d is not in game %d", ErrValidation, winnerID, game.ID)
	}
	if winner.Status == StatusOut {
		return nil, fmt.Errorf("%w: %q is out of the game", ErrValidation, winner.Name)
	}

	totalWon := game.Pot
	for i := range players {
		if players[i].ID == winnerID {
			continue
		}
		totalWon += players[i].Balance
		players[i].Balance = 0
		players[i].CurrentBet = 0
		players[i].Status = StatusOut
	}
	winner.Balance += totalWon
	winner.CurrentBet = 0

	record := ActionRecord{
		GameID:     game.ID,
		HandNumber: game.CurrentHandNumber,
		Round:      game.CurrentRound,
		PlayerID:   winner.ID,
		PlayerName: winner.Name,
		Action:     GameWinner,
		Amount:     totalWon,
	}

	game.Pot = 0
	game.CurrentBetAmount = 0
	game.IsActive = false

	return &SettleResult{
		Game:     game,
		Players:  players,
		Record:   record,
		TotalWon: totalWon,
	}, nil
}

// TotalChips sums all balances plus the pot, used for conservation checks.
func TotalChips(game Game, players []Player) int {
	total := game.Pot
	for _, p := range players {
		total += p.Balance
	}
	return total
}

func clonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func findPlayer(players []Player, id int64) *Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}

// nextActivePosition scans ascending positions after from, wrapping past
// the highest seat, and returns the first active player's position.
func nextActivePosition(players []Player, from int) (int, bool) {
	n := len(players)
	for i := 1; i <= n; i++ {
		pos := (from-1+i)%n + 1
		for _, p := range players {
			if p.Position == pos && p.Status == StatusActive {
				return pos, true
			}
		}
	}
	return 0, false
}

func firstActivePosition(players []Player) (int, bool) {
	for _, p := range players {
		if p.Status == StatusActive {
			return p.Position, true
		}
	}
	return 0, false
}
