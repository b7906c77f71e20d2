// Package push implements the WebSocket fan-out layer. Connected subscribers
// receive per-wallet trade, balance, and PnL frames for wallets they
// subscribed to, plus global USERS_UPDATE frames that keep dashboard
// rankings current.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing frames per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters. The push channel is
// unauthenticated, so all origins are accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// client represents a single WebSocket subscriber.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool // subscribed wallet addresses
	mu   sync.RWMutex
}

// Hub manages connected subscribers and routes monitor events to them. It
// implements domain.EventHandler and is registered on the event bus at
// startup.
type Hub struct {
	assembler *Assembler
	logger    *slog.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex

	server *http.Server
}

// NewHub creates a Hub that will listen on the given port.
func NewHub(assembler *Assembler, port int, logger *slog.Logger) *Hub {
	h := &Hub{
		assembler:  assembler,
		logger:     logger.With(slog.String("component", "push")),
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	mux.HandleFunc("/", h.HandleWS)

	h.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     mux,
		ReadTimeout: 0, // long-lived connections; read deadlines are per-pong
	}

	return h
}

// Run starts the hub's registry loop and the WebSocket listener. It blocks
// until the context is cancelled, then closes every connection and shuts the
// listener down.
func (h *Hub) Run(ctx context.Context) error {
	go h.registryLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("push hub listening", slog.String("addr", h.server.Addr))
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("push: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		h.logger.Warn("push hub shutdown", slog.String("error", err.Error()))
	}
	return ctx.Err()
}

// registryLoop serializes client registration and removal.
func (h *Hub) registryLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("subscriber connected",
				slog.String("client", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("subscriber disconnected",
				slog.String("client", c.id),
				slog.Int("total_clients", h.clientCount()),
			)
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection, registers the
// subscriber, and sends the initial USERS_LIST frame.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	h.register <- c

	// Reconnects start with a clean slate: no prior subscriptions are
	// restored.
	h.sendUsersList(r.Context(), c)

	go c.writePump()
	go c.readPump()
}

// sendUsersList pushes one snapshot per known user to a freshly connected
// client.
func (h *Hub) sendUsersList(ctx context.Context, c *client) {
	snaps, err := h.assembler.BuildAll(ctx)
	if err != nil {
		h.logger.Error("users list assembly failed", slog.String("error", err.Error()))
		c.sendFrame(NewFrame(KindError, ErrorPayload{Message: "failed to load users"}))
		return
	}
	c.sendFrame(NewFrame(KindUsersList, snaps))
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast sends a frame to every connected client.
func (h *Hub) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// sendToSubscribers sends a frame only to clients subscribed to the wallet.
func (h *Hub) sendToSubscribers(wallet string, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.isSubscribed(wallet) {
			c.enqueue(data)
		}
	}
}

// publishUsersUpdate rebuilds the wallet's snapshot and broadcasts it to all
// clients. This is how the dashboard re-ranks traders on every event.
func (h *Hub) publishUsersUpdate(ctx context.Context, wallet string) {
	snap, err := h.assembler.Build(ctx, wallet)
	if err != nil {
		h.logger.Error("snapshot assembly failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		return
	}
	h.broadcast(NewFrame(KindUsersUpdate, snap))
}

// OnTrade implements domain.EventHandler.
func (h *Hub) OnTrade(ctx context.Context, ev domain.TradeEvent) {
	view := h.assembler.tradeView(ctx, ev.Trade)
	h.sendToSubscribers(ev.WalletAddress, NewFrame(KindTradeUpdate, TradeUpdatePayload{
		WalletAddress: ev.WalletAddress,
		Trade:         view,
	}))
	h.publishUsersUpdate(ctx, ev.WalletAddress)
}

// OnBalance implements domain.EventHandler.
func (h *Hub) OnBalance(ctx context.Context, ev domain.BalanceEvent) {
	h.sendToSubscribers(ev.WalletAddress, NewFrame(KindBalanceUpdate, BalanceUpdatePayload{
		WalletAddress: ev.WalletAddress,
		SolBalance:    ev.SolBalance,
		Tokens:        ev.Tokens,
		Timestamp:     ev.Timestamp,
	}))
	h.publishUsersUpdate(ctx, ev.WalletAddress)
}

// OnPnl implements domain.EventHandler.
func (h *Hub) OnPnl(ctx context.Context, ev domain.PnlEvent) {
	h.sendToSubscribers(ev.WalletAddress, NewFrame(KindPnlUpdate, PnlUpdatePayload{
		WalletAddress: ev.WalletAddress,
		DailyPnl:      pnlView(ev.Pnl),
	}))
	h.publishUsersUpdate(ctx, ev.WalletAddress)
}

// ---------------------------------------------------------------------------
// client
// ---------------------------------------------------------------------------

// enqueue appends a marshaled frame to the client's send buffer, dropping it
// when the buffer is full rather than blocking the event path.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("dropping frame for slow subscriber",
			slog.String("client", c.id),
		)
	}
}

func (c *client) sendFrame(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *client) isSubscribed(wallet string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[wallet]
}

// readPump reads frames from the connection and handles subscription
// management. Malformed frames produce an ERROR reply; the connection stays
// open.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close",
					slog.String("client", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.sendFrame(NewFrame(KindError, ErrorPayload{Message: "Invalid message format"}))
			continue
		}

		c.handleFrame(frame)
	}
}

// handleFrame dispatches one inbound frame.
func (c *client) handleFrame(frame Frame) {
	switch frame.Type {
	case KindSubscribeWallet, KindUnsubscribeWallet:
		var payload SubscribePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.WalletAddress == "" {
			c.sendFrame(NewFrame(KindError, ErrorPayload{Message: "Invalid message format"}))
			return
		}

		c.mu.Lock()
		if frame.Type == KindSubscribeWallet {
			c.subs[payload.WalletAddress] = true
		} else {
			delete(c.subs, payload.WalletAddress)
		}
		c.mu.Unlock()

		c.sendFrame(NewFrame(frame.Type, AckPayload{
			WalletAddress: payload.WalletAddress,
			Success:       true,
		}))

	default:
		c.sendFrame(NewFrame(KindError, ErrorPayload{
			Message: fmt.Sprintf("unknown message type %q", frame.Type),
		}))
	}
}

// writePump pumps frames from the send buffer to the connection and keeps
// the connection alive with periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				// Closed socket; the read pump will unregister us.
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
