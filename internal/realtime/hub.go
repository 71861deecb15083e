package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

const DefaultSubscriberBuffer = 32

// Publisher delivers an event to everyone in a lead's room.
type Publisher interface {
	Publish(leadID snowflake.ID, event Event) int
}

// Broadcaster manages lead rooms for live connections.
type Broadcaster interface {
	Publisher
	Join(leadID snowflake.ID, conn *Conn)
	Leave(leadID snowflake.ID, conn *Conn)
	LeaveAll(conn *Conn)
}

// Hub keeps process-local rooms keyed by lead id. Delivery is at-most-once:
// a subscriber with a full buffer misses the event and nothing is replayed.
type Hub struct {
	mu               sync.RWMutex
	rooms            map[snowflake.ID]*room
	conns            map[uint64]*Conn
	nextID           atomic.Uint64
	subscriberBuffer int
}

type room struct {
	mu   sync.Mutex
	subs map[uint64]*Conn
}

// Conn is one live subscriber. Events are read from Events until Done is
// closed.
type Conn struct {
	id    uint64
	ch    chan Event
	done  chan struct{}
	once  sync.Once
	mu    sync.Mutex
	rooms map[snowflake.ID]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:            make(map[snowflake.ID]*room),
		conns:            make(map[uint64]*Conn),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Connect registers a new subscriber that is not yet in any room.
func (h *Hub) Connect() *Conn {
	conn := &Conn{
		id:    h.nextID.Add(1),
		ch:    make(chan Event, h.subscriberBuffer),
		done:  make(chan struct{}),
		rooms: make(map[snowflake.ID]struct{}),
	}
	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()
	return conn
}

// Disconnect leaves every room and releases the subscriber.
func (h *Hub) Disconnect(conn *Conn) {
	if conn == nil {
		return
	}
	h.LeaveAll(conn)
	h.mu.Lock()
	delete(h.conns, conn.id)
	h.mu.Unlock()
	conn.close()
}

func (h *Hub) Join(leadID snowflake.ID, conn *Conn) {
	if conn == nil {
		return
	}
	h.mu.Lock()
	r := h.rooms[leadID]
	if r == nil {
		r = &room{subs: make(map[uint64]*Conn)}
		h.rooms[leadID] = r
	}
	r.mu.Lock()
	r.subs[conn.id] = conn
	r.mu.Unlock()
	h.mu.Unlock()

	conn.mu.Lock()
	conn.rooms[leadID] = struct{}{}
	conn.mu.Unlock()
}

func (h *Hub) Leave(leadID snowflake.ID, conn *Conn) {
	if conn == nil {
		return
	}
	conn.mu.Lock()
	delete(conn.rooms, leadID)
	conn.mu.Unlock()
	h.removeFromRoom(leadID, conn.id)
}

func (h *Hub) LeaveAll(conn *Conn) {
	if conn == nil {
		return
	}
	conn.mu.Lock()
	joined := make([]snowflake.ID, 0, len(conn.rooms))
	for leadID := range conn.rooms {
		joined = append(joined, leadID)
	}
	conn.rooms = make(map[snowflake.ID]struct{})
	conn.mu.Unlock()

	for _, leadID := range joined {
		h.removeFromRoom(leadID, conn.id)
	}
}

// Publish sends event to every member of the lead's room without blocking
// and returns how many subscribers accepted it.
func (h *Hub) Publish(leadID snowflake.ID, event Event) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	r := h.rooms[leadID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}

	r.mu.Lock()
	subs := make([]*Conn, 0, len(r.subs))
	for _, conn := range r.subs {
		subs = append(subs, conn)
	}
	r.mu.Unlock()

	delivered := 0
	for _, conn := range subs {
		select {
		case <-conn.done:
		case conn.ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// RoomSize returns the number of subscribers in a lead's room.
func (h *Hub) RoomSize(leadID snowflake.ID) int {
	h.mu.RLock()
	r := h.rooms[leadID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close drops every room and releases all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.rooms = make(map[snowflake.ID]*room)
	h.conns = make(map[uint64]*Conn)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

func (h *Hub) removeFromRoom(leadID snowflake.ID, connID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[leadID]
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.subs, connID)
	empty := len(r.subs) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, leadID)
	}
}

// Events yields the events published to the connection's rooms.
func (c *Conn) Events() <-chan Event {
	return c.ch
}

// Done is closed once the connection is released by the hub.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Rooms returns the lead ids the connection has joined.
func (c *Conn) Rooms() []snowflake.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]snowflake.ID, 0, len(c.rooms))
	for leadID := range c.rooms {
		out = append(out, leadID)
	}
	return out
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

var _ Broadcaster = (*Hub)(nil)
