// Package ws pushes builder notifications to editors over WebSocket.
//
// Clients subscribe to one topic (a site id) when they connect; publishers
// fan a message out to every client on that topic:
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//	router.Get("/ws/builder/{id}", "ws.builder", func(w http.ResponseWriter, r *http.Request) {
//	    ws.Upgrade(w, r, hub, chi.URLParam(r, "id"))
//	})
//	hub.Publish(site.ID, []byte(`{"type":"site.saved"}`))
package ws

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/developlogy/sitebuilder/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

var (
	upgraderMu sync.RWMutex
	upgrader   = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
)

// AllowOrigins restricts upgrades to the given origins. "*" allows any.
// With no call, gorilla's same-host check applies.
func AllowOrigins(origins []string) {
	upgraderMu.Lock()
	defer upgraderMu.Unlock()
	if slices.Contains(origins, "*") {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
		return
	}
	upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

// Client is one connected editor.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

// readPump only services control frames; editors never send data the hub
// cares about.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "topic", c.topic, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type publication struct {
	topic string
	data  []byte
}

// Hub tracks clients per topic. All maps are owned by the Run goroutine.
type Hub struct {
	topics     map[string]map[*Client]struct{}
	publish    chan publication
	register   chan *Client
	unregister chan *Client
	count      chan chan map[string]int
}

func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]struct{}),
		publish:    make(chan publication, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan map[string]int),
	}
}

// Run processes hub events until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.topics {
				for c := range clients {
					close(c.send)
				}
			}
			h.topics = map[string]map[*Client]struct{}{}
			return

		case c := <-h.register:
			if h.topics[c.topic] == nil {
				h.topics[c.topic] = make(map[*Client]struct{})
			}
			h.topics[c.topic][c] = struct{}{}

		case c := <-h.unregister:
			h.remove(c)

		case p := <-h.publish:
			for c := range h.topics[p.topic] {
				select {
				case c.send <- p.data:
				default:
					// slow consumer
					h.remove(c)
				}
			}

		case reply := <-h.count:
			out := make(map[string]int, len(h.topics))
			for topic, clients := range h.topics {
				out[topic] = len(clients)
			}
			reply <- out
		}
	}
}

func (h *Hub) remove(c *Client) {
	clients, ok := h.topics[c.topic]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.topics, c.topic)
	}
}

// Publish queues data for every client on topic. It never blocks; when the
// hub backlog is full the message is dropped and false is returned.
func (h *Hub) Publish(topic string, data []byte) bool {
	select {
	case h.publish <- publication{topic: topic, data: data}:
		return true
	default:
		logger.Warn("ws: publish backlog full, dropping message", "topic", topic)
		return false
	}
}

// ClientCount returns the number of clients on topic. It blocks until the hub
// answers, so Run must be active.
func (h *Hub) ClientCount(topic string) int {
	reply := make(chan map[string]int, 1)
	h.count <- reply
	return (<-reply)[topic]
}

// Upgrade upgrades the request and subscribes the connection to topic.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, topic string) error {
	upgraderMu.RLock()
	u := upgrader
	upgraderMu.RUnlock()

	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws: upgrade failed", "error", err)
		return err
	}

	client := &Client{hub: hub, conn: conn, topic: topic, send: make(chan []byte, sendBuffer)}
	hub.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}
