package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
	sendQueueLen = 256
)

// TopicDisplays is joined by every display screen regardless of session.
const TopicDisplays = "displays"

// Hub manages WebSocket connections and fans messages out to named topics.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection         // conn_id -> connection
	topics      map[string]map[string]struct{} // topic -> conn_ids
	memberships map[string]map[string]struct{} // conn_id -> topics
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[conn.ID()]; exists && old != conn {
		old.Close()
	}
	h.connections[conn.ID()] = conn
	h.logger.Debug().Str("conn_id", conn.ID()).Msg("connection registered")
}

// Unregister closes a connection and drops all its topic memberships.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[connID]; exists {
		conn.Close()
		delete(h.connections, connID)
	}
	for topic := range h.memberships[connID] {
		h.removeLocked(topic, connID)
	}
	delete(h.memberships, connID)
	h.logger.Debug().Str("conn_id", connID).Msg("connection unregistered")
}

// Join subscribes a connection to a topic.
func (h *Hub) Join(topic, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.topics[topic]
	if !ok {
		members = make(map[string]struct{})
		h.topics[topic] = members
	}
	members[connID] = struct{}{}

	topics, ok := h.memberships[connID]
	if !ok {
		topics = make(map[string]struct{})
		h.memberships[connID] = topics
	}
	topics[topic] = struct{}{}
}

// Leave unsubscribes a connection from a topic.
func (h *Hub) Leave(topic, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(topic, connID)
	if topics, ok := h.memberships[connID]; ok {
		delete(topics, topic)
	}
}

// Evict removes every member of source from the given topics.
func (h *Hub) Evict(source string, topics ...string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	evicted := make([]string, 0, len(h.topics[source]))
	for connID := range h.topics[source] {
		evicted = append(evicted, connID)
	}
	for _, connID := range evicted {
		for _, topic := range topics {
			h.removeLocked(topic, connID)
			delete(h.memberships[connID], topic)
		}
	}
	return evicted
}

// Members returns the connection ids subscribed to a topic.
func (h *Hub) Members(topic string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends a message to every connection of a topic.
func (h *Hub) Broadcast(topic string, msg Message) error {
	return h.BroadcastExcept(topic, "", msg)
}

// BroadcastExcept sends to every member of topic that is not also in except.
func (h *Hub) BroadcastExcept(topic, except string, msg Message) error {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		if except != "" {
			if _, skip := h.topics[except][id]; skip {
				continue
			}
		}
		if conn, ok := h.connections[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	var firstErr error
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).Str("conn_id", conn.ID()).Str("topic", topic).Msg("broadcast_send_failed")
		}
	}
	return firstErr
}

// BroadcastAll sends a message to every connection.
func (h *Hub) BroadcastAll(msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var firstErr error
	for connID, conn := range h.connections {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).Str("conn_id", connID).Msg("broadcast_all_send_failed")
		}
	}
	return firstErr
}

// SendTo delivers a message to a single connection.
func (h *Hub) SendTo(connID string, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[connID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

func (h *Hub) removeLocked(topic, connID string) {
	members, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.topics, topic)
	}
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	id     string
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(id string, conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		id:     id,
		conn:   conn,
		sendCh: make(chan Message, sendQueueLen),
		logger: logger.With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection identifier.
func (c *Connection) ID() string { return c.id }

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends queued messages and keeps the socket alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler until the socket closes.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
