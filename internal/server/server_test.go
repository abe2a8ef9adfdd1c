package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/dominohold/internal/engine"
	"github.com/lox/dominohold/internal/service"
	"github.com/lox/dominohold/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := log.New(io.Discard)
	svc := service.New(store.NewMemoryStore(), engine.New(engine.Rules{}), node, quartz.NewReal(), logger)
	return NewServer(":0", svc, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createGame(t *testing.T, s *Server, playerCount, startingBalance int) service.Snapshot {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/games", CreateGameRequest{
		PlayerCount:     playerCount,
		StartingBalance: startingBalance,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateGameEndpoint(t *testing.T) {
	s := newTestServer(t)
	snap := createGame(t, s, 3, 100)

	assert.Equal(t, 3, snap.Game.PlayerCount)
	assert.Len(t, snap.Players, 3)
	assert.Equal(t, "Player 1", snap.Players[0].Name)
}

func TestCreateGameRejectsBadSetup(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/games", CreateGameRequest{PlayerCount: 2, StartingBalance: 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/games", map[string]any{"playerCount": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGameNotFound(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/games/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/games/notanid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActionFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	snap := createGame(t, s, 3, 100)
	base := fmt.Sprintf("/api/games/%d", snap.Game.ID)

	w := doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "bet", Amount: 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "call"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "fold"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 20, got.Game.Pot)
	require.Len(t, got.Actions, 3)
	assert.Equal(t, engine.Bet, got.Actions[0].Action)
	assert.Equal(t, engine.Fold, got.Actions[2].Action)
}

func TestActionValidationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	snap := createGame(t, s, 3, 100)
	base := fmt.Sprintf("/api/games/%d", snap.Game.ID)

	// Unknown action verb
	w := doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "check"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bet without an amount
	w = doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "bet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Out-of-turn action names a player explicitly
	w = doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{
		Action: "bet", Amount: 10, PlayerID: snap.Players[2].ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bet over balance
	w = doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "bet", Amount: 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoundAndHandEndpoints(t *testing.T) {
	s := newTestServer(t)
	snap := createGame(t, s, 3, 100)
	base := fmt.Sprintf("/api/games/%d", snap.Game.ID)

	w := doJSON(t, s, http.MethodPost, base+"/next-round", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, base+"/next-round", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, base+"/next-round", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no round past river")

	w = doJSON(t, s, http.MethodPost, base+"/new-hand", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, base, nil)
	var got service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Game.CurrentHandNumber)
	assert.Equal(t, engine.PreFlop, got.Game.CurrentRound)
}

func TestDeclareWinnerEndpoint(t *testing.T) {
	s := newTestServer(t)
	snap := createGame(t, s, 3, 100)
	base := fmt.Sprintf("/api/games/%d", snap.Game.ID)

	doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "bet", Amount: 10})
	doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "call"})

	w := doJSON(t, s, http.MethodPost, base+"/declare-winner", DeclareWinnerRequest{PlayerID: snap.Players[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, base, nil)
	var got service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 110, got.Players[0].Balance)
	assert.Equal(t, 2, got.Game.CurrentHandNumber)

	// Unknown winner
	w = doJSON(t, s, http.MethodPost, base+"/declare-winner", DeclareWinnerRequest{PlayerID: 424242})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndGameEndpoint(t *testing.T) {
	s := newTestServer(t)
	snap := createGame(t, s, 3, 100)
	base := fmt.Sprintf("/api/games/%d", snap.Game.ID)

	w := doJSON(t, s, http.MethodPost, base+"/end-game", EndGameRequest{WinnerID: snap.Players[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp EndGameResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 200, resp.TotalWon)

	// Inactive game rejects further mutation with 409
	w = doJSON(t, s, http.MethodPost, base+"/actions", SubmitActionRequest{Action: "bet", Amount: 10})
	assert.Equal(t, http.StatusConflict, w.Code)
}
