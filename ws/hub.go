package ws

// The hub is responsible for:
//
// Keeping track of connected clients per room.
//
// Receiving events from the API controllers after a mutation commits.
//
// Broadcasting those events to every client subscribed to the room.
//
// Delivery is fire-and-forget. Clients that missed an event repair their
// state through the last-mutation timestamp endpoint, not through the hub.

import (
	"encoding/json"
	"log"
	"time"

	"github.com/atmedrano/clinibox-backend/pkg/metrics"
	"github.com/gorilla/websocket"
)

// DefaultRoom is the shared channel for the clinic floor (queue + boxes).
const DefaultRoom = "clinic-floor"

var HubInstance = NewHub()

func init() {
	go HubInstance.Run()
}

// Client represents one WebSocket connection. Identity is stable across
// reconnects; a client that reconnects re-joins the same room with the same
// identity and receives no replay.
type Client struct {
	Room     string
	Identity string
	Conn     *websocket.Conn
	Send     chan []byte
}

// Message is an event addressed to every client of one room.
type Message struct {
	Room string
	Data []byte
}

// Hub manages all client connections grouped by room.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan Message, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Rooms[client.Room] == nil {
				h.Rooms[client.Room] = make(map[*Client]bool)
			}
			h.Rooms[client.Room][client] = true
			log.Printf("ws: client %s joined room %s", client.Identity, client.Room)
		case client := <-h.Unregister:
			if clients, ok := h.Rooms[client.Room]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.Rooms, client.Room)
					}
					close(client.Send)
					log.Printf("ws: client %s left room %s", client.Identity, client.Room)
				}
			}
		case message := <-h.Broadcast:
			for client := range h.Rooms[message.Room] {
				select {
				case client.Send <- message.Data:
				default:
					// Slow client: drop it rather than block the hub.
					close(client.Send)
					delete(h.Rooms[message.Room], client)
				}
			}
			if len(h.Rooms[message.Room]) == 0 {
				delete(h.Rooms, message.Room)
			}
		}
	}
}

// Emit broadcasts a coarse, payload-less event to a room. Subscribers react
// by re-fetching queue and box state; no diff is transmitted. The send never
// blocks the caller: if the hub is saturated the event is dropped.
func (h *Hub) Emit(room, event string) {
	data, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"emitted_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Println("ws: failed to marshal event:", err)
		return
	}
	metrics.Broadcasts.Inc()
	select {
	case h.Broadcast <- Message{Room: room, Data: data}:
	default:
		log.Println("ws: broadcast channel full, event dropped")
	}
}

// StateChanged is the single event every mutating operation emits.
func (h *Hub) StateChanged(room string) {
	h.Emit(room, "state-changed")
}
