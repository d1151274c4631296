package session

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

type registration struct {
	client  *Client
	initial []byte
}

type directMessage struct {
	client *Client
	msg    []byte
}

// Hub fans view updates out to every websocket subscribed to one session.
// Clients whose send buffer is full are dropped rather than allowed to stall
// the session.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan registration
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	metrics    *Metrics
	logger     *slog.Logger
}

func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		direct:     make(chan directMessage, sendBuffer),
		register:   make(chan registration),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case reg := <-h.register:
			h.clients[reg.client] = true
			h.count.Add(1)
			h.metrics.AddWSClients(1)
			h.logger.Debug("Websocket client registered", "clients", len(h.clients))
			if reg.initial != nil {
				h.deliver(reg.client, reg.initial)
			}

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
			}

		case d := <-h.direct:
			if h.clients[d.client] {
				h.deliver(d.client, d.msg)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, msg []byte) {
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
	h.metrics.AddWSClients(-1)
}

// Register subscribes client and queues initial as its first frame. It
// reports false when the hub has already stopped.
func (h *Hub) Register(client *Client, initial []byte) bool {
	select {
	case h.register <- registration{client: client, initial: initial}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for every subscribed client.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// SendTo queues msg for a single client, if it is still subscribed.
func (h *Hub) SendTo(client *Client, msg []byte) {
	select {
	case h.direct <- directMessage{client: client, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Client is one websocket subscribed to a session.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	handle func(c *Client, data []byte)
}

func NewClient(hub *Hub, conn *websocket.Conn, handle func(c *Client, data []byte)) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		handle: handle,
	}
}

// Reply sends msg to this client only.
func (c *Client) Reply(msg []byte) {
	c.hub.SendTo(c, msg)
}

// Serve pumps frames until the connection closes or the hub stops. It blocks.
func (c *Client) Serve(initial []byte) {
	if !c.hub.Register(c, initial) {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Websocket closed unexpectedly", "error", err)
			}
			return
		}
		c.handle(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
