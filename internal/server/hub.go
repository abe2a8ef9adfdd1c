package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/dominohold/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 16
)

// subscriber is one WebSocket client watching a game.
type subscriber struct {
	gameID int64
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// Hub fans game snapshots out to WebSocket subscribers. It implements
// service.Notifier, so every successful mutation pushes fresh state and
// clients do not need to poll. Slow clients are dropped rather than
// allowed to stall the broadcast.
type Hub struct {
	logger      *log.Logger
	register    chan *subscriber
	unregister  chan *subscriber
	broadcast   chan service.Snapshot
	subscribers map[int64]map[*subscriber]bool // gameID -> set
}

var _ service.Notifier = (*Hub)(nil)

// NewHub creates a hub. Run must be started before Subscribe is used.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:      logger.WithPrefix("hub"),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan service.Snapshot, 64),
		subscribers: make(map[int64]map[*subscriber]bool),
	}
}

// Run owns the subscriber registry until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case sub := <-h.register:
			set, ok := h.subscribers[sub.gameID]
			if !ok {
				set = make(map[*subscriber]bool)
				h.subscribers[sub.gameID] = set
			}
			set[sub] = true
			h.logger.Info("subscriber joined", "game", sub.gameID, "watching", len(set))

		case sub := <-h.unregister:
			if set, ok := h.subscribers[sub.gameID]; ok {
				if set[sub] {
					delete(set, sub)
					sub.close()
				}
				if len(set) == 0 {
					delete(h.subscribers, sub.gameID)
				}
			}

		case snapshot := <-h.broadcast:
			data, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.Error("failed to encode snapshot", "game", snapshot.Game.ID, "error", err)
				continue
			}
			for sub := range h.subscribers[snapshot.Game.ID] {
				select {
				case sub.send <- data:
				default:
					// Buffer full: drop the laggard
					delete(h.subscribers[snapshot.Game.ID], sub)
					sub.close()
					h.logger.Warn("dropped slow subscriber", "game", snapshot.Game.ID)
				}
			}

		case <-ctx.Done():
			for _, set := range h.subscribers {
				for sub := range set {
					sub.close()
				}
			}
			return ctx.Err()
		}
	}
}

// GameChanged implements service.Notifier.
func (h *Hub) GameChanged(snapshot service.Snapshot) {
	select {
	case h.broadcast <- snapshot:
	default:
		h.logger.Warn("broadcast queue full, dropping snapshot", "game", snapshot.Game.ID)
	}
}

// Subscribe attaches a WebSocket connection to a game's snapshot feed
// and pumps messages until the client goes away.
func (h *Hub) Subscribe(gameID int64, conn *websocket.Conn, initial service.Snapshot) {
	sub := &subscriber{
		gameID: gameID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	if data, err := json.Marshal(initial); err == nil {
		sub.send <- data
	}
	h.register <- sub

	go sub.writePump()
	go sub.readPump(h)
}

// writePump drains the send channel to the connection, pinging to keep
// intermediaries from timing the connection out.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; its job is noticing disconnects.
func (s *subscriber) readPump(h *Hub) {
	defer func() {
		h.unregister <- s
		s.conn.Close()
	}()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
