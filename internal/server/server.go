// Package server is the HTTP shell around the betting service: a JSON
// API for game setup and actions, plus a WebSocket feed per game so the
// presentation layer can watch state change without polling.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/dominohold/internal/engine"
	"github.com/lox/dominohold/internal/service"
	"github.com/lox/dominohold/internal/store"
)

// Server hosts the HTTP API and the WebSocket hub.
type Server struct {
	svc      *service.Service
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer wires the service into a gin router and registers the hub
// as the service's change notifier.
func NewServer(addr string, svc *service.Service, logger *log.Logger) *Server {
	s := &Server{
		svc:    svc,
		hub:    NewHub(logger),
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API carries no credentials, so cross-origin reads are fine
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	svc.SetNotifier(s.hub)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/games", s.handleCreateGame)
		api.GET("/games/:id", s.handleGetGame)
		api.POST("/games/:id/actions", s.handleSubmitAction)
		api.POST("/games/:id/next-round", s.handleNextRound)
		api.POST("/games/:id/new-hand", s.handleNewHand)
		api.POST("/games/:id/declare-winner", s.handleDeclareWinner)
		api.POST("/games/:id/end-game", s.handleEndGame)
		api.GET("/games/:id/ws", s.handleSubscribe)
	}

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		return s.http.Shutdown(context.Background())
	})

	return g.Wait()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	snapshot, err := s.svc.CreateGame(c.Request.Context(), req.PlayerCount, req.StartingBalance)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

func (s *Server) handleGetGame(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	snapshot, err := s.svc.GetGameState(c.Request.Context(), gameID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleSubmitAction(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	var req SubmitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	action, err := engine.ParseActionType(req.Action)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if (action == engine.Bet || action == engine.Raise) && req.Amount == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount is required for " + req.Action})
		return
	}

	if err := s.svc.SubmitAction(c.Request.Context(), gameID, req.PlayerID, action, req.Amount); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) handleNextRound(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	if err := s.svc.AdvanceRound(c.Request.Context(), gameID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) handleNewHand(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	if err := s.svc.StartNewHand(c.Request.Context(), gameID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) handleDeclareWinner(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	var req DeclareWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if err := s.svc.DeclareHandWinner(c.Request.Context(), gameID, req.PlayerID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) handleEndGame(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	var req EndGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	totalWon, err := s.svc.EndGame(c.Request.Context(), gameID, req.WinnerID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, EndGameResponse{Success: true, TotalWon: totalWon})
}

func (s *Server) handleSubscribe(c *gin.Context) {
	gameID, ok := s.gameID(c)
	if !ok {
		return
	}
	snapshot, err := s.svc.GetGameState(c.Request.Context(), gameID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "game", gameID, "error", err)
		return
	}
	s.hub.Subscribe(gameID, conn, snapshot)
}

func (s *Server) gameID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid game id"})
		return 0, false
	}
	return id, true
}

// renderError maps the engine and store taxonomy onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrGameInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrValidation),
		errors.Is(err, engine.ErrTurnViolation),
		errors.Is(err, engine.ErrInvalidBetState),
		errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInvalidRoundTransition):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
