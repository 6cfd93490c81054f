package eventws

import (
	"encoding/json"
	"log"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
)

// Hub fans change-notification events out to every connected UI client, so
// open views refresh without polling.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Envelope
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type Envelope struct {
	Event     string `json:"event"`
	Detail    any    `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Envelope, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
		case envelope := <-h.broadcast:
			h.deliver(envelope)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastEvent queues an event for delivery to all connected clients. Safe
// to call from bus handlers; a full queue drops the event rather than blocking
// the publisher.
func (h *Hub) BroadcastEvent(event string, detail any) {
	envelope := &Envelope{
		Event:     event,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	select {
	case h.broadcast <- envelope:
	default:
		log.Printf("event hub: dropping %s, broadcast queue full", event)
	}
}

func (h *Hub) deliver(envelope *Envelope) {
	encoded, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("event hub encode envelope: %v", err)
		return
	}

	for client := range h.clients {
		select {
		case client.send <- encoded:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ReadPump drains the connection until the client goes away. Clients only
// listen; inbound payloads are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
