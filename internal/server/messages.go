package server

// Request and response shapes for the HTTP API. Snapshots reuse the
// service types directly; these cover the mutation endpoints.

// CreateGameRequest seeds a new game.
type CreateGameRequest struct {
	PlayerCount     int `json:"playerCount" binding:"required"`
	StartingBalance int `json:"startingBalance" binding:"required"`
}

// SubmitActionRequest applies a betting action. PlayerID is optional:
// when omitted the player whose turn it is acts; when set, the action is
// rejected unless it is that player's turn.
type SubmitActionRequest struct {
	Action   string `json:"action" binding:"required"`
	Amount   int    `json:"amount"`
	PlayerID int64  `json:"playerId"`
}

// DeclareWinnerRequest names the hand winner.
type DeclareWinnerRequest struct {
	PlayerID int64 `json:"playerId" binding:"required"`
}

// EndGameRequest names the game winner.
type EndGameRequest struct {
	WinnerID int64 `json:"winnerId" binding:"required"`
}

// EndGameResponse reports the winner's haul.
type EndGameResponse struct {
	Success  bool `json:"success"`
	TotalWon int  `json:"totalWon"`
}

// SuccessResponse is the generic mutation acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse carries a user-visible failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
