// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/sentinelcam/sentinel/internal/alert"
	"github.com/sentinelcam/sentinel/internal/dispatch"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 16
)

// wsAlert is the event pushed to WebSocket clients. The snapshot is not
// inlined; clients fetch it over HTTP when they want it.
type wsAlert struct {
	Type  string       `json:"type"`
	Alert alert.Record `json:"alert"`
}

// client is one connected alert-stream consumer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans raised alerts out to connected WebSocket clients. It is a
// supervised service subscribing to the alert bus.
type Hub struct {
	subscriber message.Subscriber
	upgrader   websocket.Upgrader

	register   chan *client
	unregister chan *client
	clients    map[*client]bool

	// stopped is closed whenever Serve is not running, so handler
	// goroutines never block on an unattended register/unregister.
	mu      sync.Mutex
	stopped chan struct{}
}

// NewHub creates the hub over the alert bus.
func NewHub(subscriber message.Subscriber, allowedOrigins []string) *Hub {
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	stopped := make(chan struct{})
	close(stopped)
	return &Hub{
		subscriber: subscriber,
		stopped:    stopped,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
	}
}

// String names the service in the supervision tree.
func (h *Hub) String() string { return "ws-alert-hub" }

// Serve runs the hub loop until the context is canceled.
func (h *Hub) Serve(ctx context.Context) error {
	msgs, err := h.subscriber.Subscribe(ctx, dispatch.TopicAlerts)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.stopped = make(chan struct{})
	stopped := h.stopped
	h.mu.Unlock()
	defer close(stopped)

	defer func() {
		for c := range h.clients {
			close(c.send)
			_ = c.conn.Close()
		}
		h.clients = make(map[*client]bool)
		metrics.WebsocketClients.Set(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			metrics.WebsocketClients.Set(float64(len(h.clients)))
			logging.Info().Int("clients", len(h.clients)).Msg("alert stream client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			metrics.WebsocketClients.Set(float64(len(h.clients)))
			logging.Info().Int("clients", len(h.clients)).Msg("alert stream client disconnected")

		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.broadcast(msg)
		}
	}
}

func (h *Hub) broadcast(msg *message.Message) {
	defer msg.Ack()

	var env dispatch.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		logging.Warn().Err(err).Msg("undecodable alert envelope on ws hub")
		return
	}

	data, err := json.Marshal(wsAlert{Type: "alert", Alert: env.Record})
	if err != nil {
		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer: drop it rather than queue unbounded.
			delete(h.clients, c)
			close(c.send)
			metrics.WebsocketClients.Set(float64(len(h.clients)))
		}
	}
}

// stoppedCh returns the current hub-lifecycle channel; it is closed while
// Serve is not running.
func (h *Hub) stoppedCh() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// handleWS upgrades the connection and attaches it to the hub.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, wsSendBuffer)}
	select {
	case h.register <- c:
	case <-h.stoppedCh():
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// writePump pushes hub messages to the connection.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client input and detects disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stoppedCh():
		}
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
