package websocket

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"huddle/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Relay frames are tiny; anything
	// bigger is a misbehaving client.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Client is one WebSocket connection attached to a room. It implements
// room.Conn; the room pushes serialized frames into the buffered send
// channel and the write pump drains it.
type Client struct {
	id   string
	room *room.Room
	conn *websocket.Conn
	send chan []byte
}

// Send implements room.Conn. It never blocks: when the write buffer is full
// the frame is dropped and an error returned, which the room ignores. The
// relay makes no delivery guarantees to a slow or dying peer.
func (c *Client) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("client %s: send buffer full", c.id)
	}
}

// Hub upgrades incoming requests and wires each connection to its room.
// Unlike a classic broadcast hub it keeps no client set of its own; the room
// registry is the single source of truth for who is connected.
type Hub struct {
	manager *room.Manager
}

// NewHub creates a hub backed by the given room manager.
func NewHub(manager *room.Manager) *Hub {
	return &Hub{manager: manager}
}

// ServeWS upgrades the request and runs the client pumps for the given room
// code. The room is created on first connection for a valid code.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, code string) {
	rm, err := h.manager.GetOrCreate(code)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		room: rm,
		conn: conn,
		send: make(chan []byte, 256),
	}

	rm.HandleConnect(client)
	log.Printf("client %s connected to room %s", client.id, rm.Code())

	go client.writePump()
	go client.readPump()
}

// readPump pumps frames from the WebSocket connection into the room. On exit
// it reports the disconnect before closing the send channel, so the room
// never sends into a closed channel.
func (c *Client) readPump() {
	defer func() {
		c.room.HandleDisconnect(c)
		close(c.send)
		c.conn.Close()
		log.Printf("client %s disconnected from room %s", c.id, c.room.Code())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("client %s: read: %v", c.id, err)
			}
			break
		}

		// The protocol is JSON text; binary frames are dropped silently.
		if mt != websocket.TextMessage {
			continue
		}

		c.room.HandleMessage(c, data)
	}
}

// writePump pumps frames from the send channel to the WebSocket connection.
// Each protocol message goes out as its own text frame.
func (c *Client) writePump() {
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
				// The read pump closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
