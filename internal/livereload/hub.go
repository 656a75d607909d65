package livereload

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/metrics"
	"github.com/conneroisu/sitebuild/internal/validation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 16
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected browsers. Its client set is owned by the goroutine
// running Run; everything else talks to it through channels.
type Hub struct {
	logger  logging.Logger
	metrics *metrics.Recorder
	origins []string

	register   chan *client
	unregister chan *client
	broadcast  chan Message

	clientCount atomic.Int64
	done        chan struct{}
	stopOnce    sync.Once
}

// NewHub creates a hub. origins lists the Origin values accepted for
// WebSocket upgrades in addition to the request's own host.
func NewHub(logger logging.Logger, rec *metrics.Recorder, origins []string) *Hub {
	h := &Hub{
		logger:     logger.WithComponent("livereload"),
		metrics:    rec,
		origins:    origins,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, sendBuffer),
		done:       make(chan struct{}),
	}
	rec.TrackClients(h.ClientCount)
	return h
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// Run owns the client set until ctx is canceled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[string]*client)
	// The last error stays pending for clients connecting later, until a
	// reload or css message clears it.
	var pendingError []byte

	defer func() {
		h.stopOnce.Do(func() { close(h.done) })
		for id, c := range clients {
			delete(clients, id)
			close(c.send)
		}
		h.clientCount.Store(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c.id] = c
			h.clientCount.Store(int64(len(clients)))
			h.logger.Debug(ctx, "Client connected", "client", c.id, "total", len(clients))
			if pendingError != nil {
				c.send <- pendingError
			}

		case c := <-h.unregister:
			if _, ok := clients[c.id]; ok {
				delete(clients, c.id)
				close(c.send)
				h.clientCount.Store(int64(len(clients)))
				h.logger.Debug(ctx, "Client disconnected", "client", c.id, "total", len(clients))
			}

		case msg := <-h.broadcast:
			data, err := msg.encode()
			if err != nil {
				h.logger.Error(ctx, err, "Failed to encode message", "type", string(msg.Type))
				continue
			}
			if msg.Type == MessageError {
				pendingError = data
			} else {
				pendingError = nil
			}

			for id, c := range clients {
				select {
				case c.send <- data:
				default:
					// Slow client; drop it rather than block the hub.
					delete(clients, id)
					close(c.send)
					h.logger.Warn(ctx, nil, "Dropping slow client", "client", id)
				}
			}
			h.clientCount.Store(int64(len(clients)))
		}
	}
}

// Broadcast queues msg for every connected client. It returns false if the
// hub has stopped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case <-h.done:
		return false
	case h.broadcast <- msg:
		h.metrics.IncReload(string(msg.Type))
		return true
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	allowed := append([]string{r.Host}, h.origins...)
	if err := validation.ValidateOrigin(r.Header.Get("Origin"), allowed); err != nil {
		h.logger.Warn(r.Context(), err, "Rejected live-reload connection")
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was checked above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters the client when the
// connection ends.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()
	for {
		readCtx, cancel := context.WithTimeout(ctx, pongWait)
		_, _, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug(ctx, "WebSocket read ended", "client", c.id, "error", err.Error())
			}
			return
		}
	}
}

// writePump sends queued messages and periodic pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "WebSocket write failed", "client", c.id, "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
