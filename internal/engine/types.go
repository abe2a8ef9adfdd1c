package engine

import (
	"fmt"
	"time"
)

// Round represents a betting round within a hand
type Round int

const (
	PreFlop Round = iota
	TurnRound
	River
)

var roundNames = [...]string{"pre-flop", "turn", "river"}

func (r Round) String() string {
	if r < PreFlop || r > River {
		return fmt.Sprintf("round(%d)", int(r))
	}
	return roundNames[r]
}

// Next returns the following round and whether one exists
func (r Round) Next() (Round, bool) {
	if r >= River {
		return r, false
	}
	return r + 1, true
}

func (r Round) MarshalText() ([]byte, error) {
	if r < PreFlop || r > River {
		return nil, fmt.Errorf("invalid round %d", int(r))
	}
	return []byte(roundNames[r]), nil
}

func (r *Round) UnmarshalText(text []byte) error {
	for i, name := range roundNames {
		if name == string(text) {
			*r = Round(i)
			return nil
		}
	}
	return fmt.Errorf("unknown round %q", text)
}

// ActionType represents a player or settlement action
type ActionType int

const (
	Bet ActionType = iota
	Call
	Raise
	Fold
	Won
	GameWinner
)

var actionNames = [...]string{"bet", "call", "raise", "fold", "won", "game_winner"}

func (a ActionType) String() string {
	if a < Bet || a > GameWinner {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

func (a ActionType) MarshalText() ([]byte, error) {
	if a < Bet || a > GameWinner {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(actionNames[a]), nil
}

func (a *ActionType) UnmarshalText(text []byte) error {
	for i, name := range actionNames {
		if name == string(text) {
			*a = ActionType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", text)
}

// ParseActionType parses a player-submitted action. Settlement actions
// (won, game_winner) are engine-issued and rejected here.
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "bet":
		return Bet, nil
	case "call":
		return Call, nil
	case "raise":
		return Raise, nil
	case "fold":
		return Fold, nil
	default:
		return 0, fmt.Errorf("%w: unknown action %q", ErrValidation, s)
	}
}

// PlayerStatus represents a player's standing in the current hand
type PlayerStatus int

const (
	StatusActive PlayerStatus = iota
	StatusFolded
	StatusOut
)

var statusNames = [...]string{"active", "folded", "out"}

func (s PlayerStatus) String() string {
	if s < StatusActive || s > StatusOut {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

func (s PlayerStatus) MarshalText() ([]byte, error) {
	if s < StatusActive || s > StatusOut {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *PlayerStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = PlayerStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Game is one active betting context
type Game struct {
	ID                int64     `json:"id"`
	PlayerCount       int       `json:"playerCount"`
	StartingBalance   int       `json:"startingBalance"`
	CurrentHandNumber int       `json:"currentHandNumber"`
	CurrentRound      Round     `json:"currentRound"`
	Pot               int       `json:"pot"`
	CurrentPlayerTurn int       `json:"currentPlayerTurn"`
	CurrentBetAmount  int       `json:"currentBetAmount"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Player is one seat at the table. CurrentBet tracks chips committed in
// the current betting round; it resets at round and hand boundaries.
type Player struct {
	ID         int64        `json:"id"`
	GameID     int64        `json:"gameId"`
	Name       string       `json:"name"`
	Position   int          `json:"position"`
	Balance    int          `json:"balance"`
	CurrentBet int          `json:"currentBet"`
	Status     PlayerStatus `json:"status"`
}

// ActionRecord is an immutable audit log entry. Amount is the chips
// actually moved by the action, so record amounts for a hand sum to the
// pot contributions of that hand.
type ActionRecord struct {
	ID         int64      `json:"id"`
	GameID     int64      `json:"gameId"`
	HandNumber int        `json:"handNumber"`
	Round      Round      `json:"round"`
	PlayerID   int64      `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Action     ActionType `json:"action"`
	Amount     int        `json:"amount"`
	Timestamp  time.Time  `json:"timestamp"`
}
