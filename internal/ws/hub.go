package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"gsm-dashboard/internal/directory"
	"gsm-dashboard/internal/prompt"
)

// Dashboard event types.
const (
	EventContacts       = "contacts"
	EventDeviceStatus   = "device_status"
	EventQueueStatus    = "queue_status"
	EventConsoleOutput  = "console_output"
	EventHistory        = "history"
	EventCallLog        = "call_log"
	EventConfirmRequest = prompt.EventRequest
	EventConfirmClosed  = prompt.EventClosed
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served from the LAN
	},
}

// Client represents a connected WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type WSEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans dashboard renders out to every browser. The latest event of each
// type is kept and replayed to clients that connect later, so a fresh page
// starts from the current state instead of waiting for the next tick.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.Mutex
	latest map[string][]byte
	order  []string
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		latest:     make(map[string][]byte),
	}
}

// Run serves the hub until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			for _, payload := range h.replay() {
				client.send <- payload
			}
			log.Println("WebSocket client registered")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			log.Println("WebSocket client unregistered")
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastEvent publishes one event. Once the hub has stopped the event is
// only remembered for Latest.
func (h *Hub) BroadcastEvent(eventType string, data any) {
	payload, err := json.Marshal(WSEvent{Type: eventType, Data: data})
	if err != nil {
		log.Printf("Error marshaling WS event: %v", err)
		return
	}
	h.remember(eventType, payload)
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// Latest returns the most recent encoded event of eventType.
func (h *Hub) Latest(eventType string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	payload, ok := h.latest[eventType]
	return payload, ok
}

type contactsView struct {
	Contacts   []directory.Contact   `json:"contacts"`
	Recipients []directory.Recipient `json:"recipients"`
}

// RenderContacts refreshes both the directory table and the recipient picker.
func (h *Hub) RenderContacts(contacts []directory.Contact) {
	h.BroadcastEvent(EventContacts, contactsView{
		Contacts:   contacts,
		Recipients: directory.RecipientsOf(contacts),
	})
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) remember(eventType string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.latest[eventType]; !ok {
		h.order = append(h.order, eventType)
	}
	h.latest[eventType] = payload
}

func (h *Hub) replay() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, 0, len(h.order))
	for _, eventType := range h.order {
		out = append(out, h.latest[eventType])
	}
	return out
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		// Clients only listen; reads detect the close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
