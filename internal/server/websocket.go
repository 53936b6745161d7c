package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/config"
	"github.com/leaderbattle/battle-server-go/internal/game"
)

const sendBuffer = 256

// WSMessage is the frame pushed to websocket clients.
type WSMessage struct {
	Type      string                 `json:"type"`
	GameID    string                 `json:"game_id,omitempty"`
	PlayerID  string                 `json:"player_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Client is one websocket connection, following at most one match.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	matchID string
}

// Hub fans match notifications out to websocket clients.
type Hub struct {
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub.
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// Notify is a game.NotificationHandler: it forwards n to every client following its match.
func (h *Hub) Notify(n game.GameNotification) {
	message, err := json.Marshal(WSMessage{
		Type:      n.Type,
		GameID:    n.GameID,
		PlayerID:  n.PlayerID,
		Timestamp: n.Timestamp,
		Data:      n.Data,
	})
	if err != nil {
		h.logger.Warn("failed to encode notification", zap.String("type", n.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.matchID != "" && client.matchID != n.GameID {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Slow consumer.
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client registered", zap.String("match_id", c.matchID))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("websocket client unregistered", zap.String("match_id", c.matchID))
	}
}

func (h *Hub) subscribe(c *Client, matchID string) {
	h.mu.Lock()
	c.matchID = matchID
	h.mu.Unlock()
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ServeHTTP upgrades the request. ?match_id= selects the followed match; without it the
// client receives every notification.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		matchID: r.URL.Query().Get("match_id"),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// readPump handles {"type":"subscribe","game_id":...} frames until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed websocket frame", zap.Error(err))
			continue
		}
		if msg.Type == "subscribe" {
			c.hub.subscribe(c, msg.GameID)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// StartWebSocketServer serves the hub on cfg.Address until ctx is canceled.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) error {
	path := cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.Handle(path, hub)

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("websocket server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("websocket server listening",
		zap.String("address", cfg.Address),
		zap.String("path", path),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
