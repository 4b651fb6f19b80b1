package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans committed room snapshots out to every websocket subscriber of a
// room. One watcher goroutine per room consumes the notifier's event stream;
// each outgoing snapshot is projected for its recipient so a client only
// ever sees its own spy flag.
type Hub struct {
	clients     map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	mutex       sync.RWMutex
	notifier    *RedisNotifier
	roomService *RoomService

	watchersMu sync.Mutex
	watchers   map[string]context.CancelFunc
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	roomID string
	userID string

	sendMu sync.Mutex
	closed bool
}

// enqueue hands a message to the client's write pump without blocking.
// Sends race with the hub closing the channel (drop-on-full, unregister),
// so the closed flag is checked under the same lock that closeSend takes.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

func NewHub(notifier *RedisNotifier, roomService *RoomService) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		notifier:    notifier,
		roomService: roomService,
		watchers:    make(map[string]context.CancelFunc),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Client %s subscribed to room %s (user %s) - total clients: %d", client.id, client.roomID, client.userID, total)

			h.ensureWatcher(client.roomID)
			h.sendRoomSync(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			remaining := 0
			for c := range h.clients {
				if c.roomID == client.roomID {
					remaining++
				}
			}
			h.mutex.Unlock()
			log.Printf("Client %s unsubscribed from room %s", client.id, client.roomID)

			if remaining == 0 {
				h.stopWatcher(client.roomID)
			}
		}
	}
}

// ensureWatcher starts the room's event consumer if it is not running yet.
func (h *Hub) ensureWatcher(roomID string) {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()
	if _, ok := h.watchers[roomID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.watchers[roomID] = cancel
	go h.watchRoom(ctx, roomID)
}

func (h *Hub) stopWatcher(roomID string) {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()
	if cancel, ok := h.watchers[roomID]; ok {
		cancel()
		delete(h.watchers, roomID)
	}
}

func (h *Hub) watchRoom(ctx context.Context, roomID string) {
	for ev := range h.notifier.Subscribe(ctx, roomID) {
		h.dispatch(roomID, ev)
	}
}

// dispatch delivers one event to every subscriber of the room, projecting
// update snapshots per recipient. Deletions go out as-is.
func (h *Hub) dispatch(roomID string, ev RoomEvent) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if client.roomID != roomID {
			continue
		}
		out := ev
		if ev.Type == EventRoomUpdate {
			out.Room = ProjectRoomFor(ev.Room, client.userID)
		}
		data, err := json.Marshal(out)
		if err != nil {
			log.Printf("Error marshaling room event for client %s: %v", client.id, err)
			continue
		}
		if !client.enqueue(data) {
			client.closeSend()
			delete(h.clients, client)
		}
	}
}

// sendRoomSync pushes the current snapshot to a freshly registered client,
// so a reconnecting device catches up without any extra protocol. The
// cached snapshot is preferred; the store is the fallback.
func (h *Hub) sendRoomSync(client *Client) {
	room, err := h.notifier.CachedRoom(context.Background(), client.roomID)
	if err != nil {
		room, err = h.roomService.GetRoom(client.roomID)
	}
	if err != nil {
		log.Printf("No room state to sync for %s: %v", client.roomID, err)
		return
	}

	ev := RoomEvent{Type: EventRoomUpdate, RoomID: room.ID, Room: ProjectRoomFor(room, client.userID)}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error marshaling room sync for client %s: %v", client.id, err)
		return
	}
	client.enqueue(data)
}

// RegisterClient attaches an upgraded websocket connection to the hub as a
// subscriber of one room.
func (h *Hub) RegisterClient(conn *websocket.Conn, roomID, userID string) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
		roomID: roomID,
		userID: userID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling client message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg clientMessage) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(clientMessage{Type: "pong"})
		c.enqueue(data)

	case "request_room_state":
		c.hub.sendRoomSync(c)

	default:
		log.Printf("Unknown message type %q from client %s in room %s", msg.Type, c.id, c.roomID)
	}
}
