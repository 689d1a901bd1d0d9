package gateway

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"liap-tui/apps/server/internal/codec"
	"liap-tui/apps/server/internal/lobby"
	"liap-tui/apps/server/internal/room"
	"liap-tui/castellan"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// pendingCap bounds the per-seat queue retained while a seat has no live
// connection. Overflow drops the oldest frame; the journal resync covers
// the gap on reconnect.
const pendingCap = 256

type pipeKey struct {
	roomID string
	seat   int
}

// seatPipe is the delivery slot for one (room, seat). The room actor
// pushes frames here without knowing whether anyone is attached.
type seatPipe struct {
	mu      sync.Mutex
	conn    *Connection
	pending [][]byte
}

func (p *seatPipe) push(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.enqueue(frame)
		return
	}
	if len(p.pending) >= pendingCap {
		p.pending = p.pending[1:]
	}
	p.pending = append(p.pending, frame)
}

// attach flushes retained frames to the new connection before any live
// broadcast can reach it.
func (p *seatPipe) attach(c *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && p.conn != c {
		p.conn.enqueue(codec.EncodeError(string(castellan.ErrKindConflict), "seat claimed by another connection", nil))
	}
	for _, frame := range p.pending {
		c.enqueue(frame)
	}
	p.pending = nil
	p.conn = c
}

func (p *seatPipe) detach(c *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == c {
		p.conn = nil
	}
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time

	// Current seat association. Mutated only from the read pump.
	RoomID     string
	Seat       int
	PlayerName string
	LastAck    uint64
}

func (c *Connection) enqueue(frame []byte) {
	select {
	case c.Send <- frame:
	default:
		// Drop if buffer full; journal resync recovers the client.
	}
}

// Gateway manages WebSocket connections and the seat pipes that room
// actors broadcast into.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	pipes       map[pipeKey]*seatPipe
	nextConnID  uint64
	lobby       *lobby.Lobby
}

// New creates a new Gateway instance. The lobby is attached afterwards
// because it needs SinkFor at construction.
func New() *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		pipes:       make(map[pipeKey]*seatPipe),
	}
}

func (g *Gateway) AttachLobby(lby *lobby.Lobby) {
	g.mu.Lock()
	g.lobby = lby
	g.mu.Unlock()
}

// SinkFor builds the frame sink the lobby hands to a new room actor.
func (g *Gateway) SinkFor(roomID string) room.Sink {
	return func(seat int, frame []byte) {
		g.pipe(pipeKey{roomID: roomID, seat: seat}).push(frame)
	}
}

func (g *Gateway) pipe(key pipeKey) *seatPipe {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pipes[key]
	if !ok {
		p = &seatPipe{}
		g.pipes[key] = p
	}
	return p
}

// ReleaseRoom tears down the pipes of a removed room and tells attached
// clients the room is gone.
func (g *Gateway) ReleaseRoom(roomID string) {
	closedFrame, err := codec.Encode("room_closed", map[string]any{"room_id": roomID}, 0)
	if err != nil {
		closedFrame = nil
	}

	g.mu.Lock()
	attached := make([]*Connection, 0, castellan.NumSeats)
	for seat := 0; seat < castellan.NumSeats; seat++ {
		key := pipeKey{roomID: roomID, seat: seat}
		if p, ok := g.pipes[key]; ok {
			p.mu.Lock()
			if p.conn != nil {
				attached = append(attached, p.conn)
			}
			p.conn = nil
			p.pending = nil
			p.mu.Unlock()
			delete(g.pipes, key)
		}
	}
	g.mu.Unlock()

	for _, c := range attached {
		if closedFrame != nil {
			c.enqueue(closedFrame)
		}
	}
}

// HandleWebSocket handles WebSocket upgrade and connection
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)

	c := &Connection{
		ID:       connID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		LastPing: time.Now(),
		Seat:     castellan.InvalidSeat,
	}
	g.connections[connID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", connID, total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.connections, c.ID)
	total := len(g.connections)
	lby := g.lobby
	g.mu.Unlock()

	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, total)

	if c.RoomID == "" || c.Seat == castellan.InvalidSeat {
		return
	}
	g.pipe(pipeKey{roomID: c.RoomID, seat: c.Seat}).detach(c)
	if lby == nil {
		return
	}
	if a := lby.GetRoom(c.RoomID); a != nil {
		_ = a.SubmitEvent(room.Event{Type: room.EventConnLost, Seat: c.Seat})
	}
}

// BroadcastRoomList pushes the current room directory to every connection
// that has not claimed a seat.
func (g *Gateway) BroadcastRoomList() {
	g.mu.RLock()
	lby := g.lobby
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.RUnlock()
	if lby == nil {
		return
	}

	frame, err := codec.Encode("room_list_update", map[string]any{"rooms": lby.ListRooms()}, 0)
	if err != nil {
		log.Printf("[Gateway] Failed to encode room list: %v", err)
		return
	}
	for _, c := range conns {
		if c.RoomID == "" {
			c.enqueue(frame)
		}
	}
}
