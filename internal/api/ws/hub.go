package ws

import (
	"log"
	"net/http"
	"sync"

	"callbreak/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Close codes sent when a connection is rejected before it joins a room.
const (
	closeMissingCredentials = 4000
	closeDuplicatePlayer    = 4001
	closeRoomNotFound       = 4002
	closeGameInProgress     = 4003
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub owns the WebSocket connections and maps them onto rooms. It is the
// room layer's Messenger: outbound messages are delivered here and inbound
// frames are pumped into Room.HandleMessage.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client // playerID -> connection
	rooms   *room.Manager
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// BindRooms attaches the room registry. Called once during wiring, before
// the server accepts connections.
func (h *Hub) BindRooms(rooms *room.Manager) {
	h.rooms = rooms
}

// Deliver implements room.Messenger. Messages for unknown or disconnected
// players are dropped.
func (h *Hub) Deliver(playerID string, msg room.ServerMessage) {
	h.mu.RLock()
	cl, ok := h.clients[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := cl.write(msg); err != nil {
		log.Printf("ws: failed to send to %s: %v", playerID, err)
	}
}

// HandleWS upgrades the connection, validates the join parameters, joins the
// room and then pumps client messages into it until the socket closes.
//
// Query parameters: id, name, roomId, optional country and noCreate.
func (h *Hub) HandleWS(c *gin.Context) {
	playerID := c.Query("id")
	roomID := c.Query("roomId")
	name := c.Query("name")
	country := c.Query("country")
	noCreate := c.Query("noCreate") == "true"
	if country == "" {
		country = "US"
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	if playerID == "" || roomID == "" || name == "" {
		h.reject(conn, closeMissingCredentials, "missing credentials")
		return
	}
	if !h.register(playerID, conn) {
		h.reject(conn, closeDuplicatePlayer, "player id already connected")
		return
	}
	defer h.unregister(playerID)

	var rm *room.Room
	if noCreate {
		var ok bool
		if rm, ok = h.rooms.Get(roomID); !ok {
			h.reject(conn, closeRoomNotFound, "room not found")
			return
		}
	} else {
		rm, _ = h.rooms.GetOrCreate(roomID)
	}

	h.Deliver(playerID, room.ServerMessage{Scope: room.ScopeRoom, Type: "open", Payload: gin.H{}})

	player := &room.Player{ID: playerID, Name: name, Country: country}
	if err := rm.Join(player); err != nil {
		h.reject(conn, closeGameInProgress, err.Error())
		return
	}
	defer rm.Leave(playerID)

	for {
		var msg room.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("ws: %s disconnected: %v", playerID, err)
			return
		}
		rm.HandleMessage(playerID, msg)
	}
}

// register claims the player id for this connection; duplicate ids are
// refused.
func (h *Hub) register(playerID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, taken := h.clients[playerID]; taken {
		return false
	}
	h.clients[playerID] = &client{conn: conn}
	return true
}

func (h *Hub) unregister(playerID string) {
	h.mu.Lock()
	cl, ok := h.clients[playerID]
	if ok {
		delete(h.clients, playerID)
	}
	h.mu.Unlock()
	if ok {
		_ = cl.conn.Close()
	}
}

// reject sends a structured error, then closes with a specific code so the
// client can tell rejection reasons apart.
func (h *Hub) reject(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteJSON(gin.H{"type": "error", "message": reason})
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()
}
