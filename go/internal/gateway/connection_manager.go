package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/mcdev12/cardclash/go/internal/game/events"
)

// Dispatcher consumes what a connection reads and is told when it goes away.
type Dispatcher interface {
	Dispatch(connID string, message []byte)
	Disconnect(connID string)
}

// ConnectionManager owns the WebSocket connections and the game rooms they
// are subscribed to. Every notification goes through one queue, so clients
// observe events in exactly the order the game produced them.
type ConnectionManager struct {
	mu    deadlock.RWMutex
	conns map[string]*Connection
	rooms map[string]map[string]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock
	mirror   *Mirror

	broadcastCh chan BroadcastMessage
	done        chan struct{}
}

// Connection is one client socket. Its ID is the participant identity the
// game sees.
type Connection struct {
	ID         string
	Conn       *websocket.Conn
	Send       chan []byte
	Manager    *ConnectionManager
	dispatcher Dispatcher

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	QueueSize       int
	CheckOrigin     func(r *http.Request) bool
}

type messageKind int

const (
	kindBroadcast messageKind = iota
	kindUnicast
	kindSubscribe
	kindUnsubscribe
	kindCloseRoom
)

// BroadcastMessage is one queued notification.
type BroadcastMessage struct {
	kind   messageKind
	GameID string
	ConnID string
	Event  events.Event
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		QueueSize:       1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. mirror may be nil.
func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock, mirror *Mirror) *ConnectionManager {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConnectionConfig().QueueSize
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultConnectionConfig().SendBuffer
	}
	return &ConnectionManager{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[string]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		mirror:      mirror,
		broadcastCh: make(chan BroadcastMessage, config.QueueSize),
		done:        make(chan struct{}),
	}
}

// Start processes queued notifications until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	defer close(cm.done)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handle(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, dispatcher Dispatcher) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		dispatcher:  dispatcher,
		ConnectedAt: cm.clock.Now(),
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conns[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.conns)).
		Msg("connection registered")
}

// unregisterConnection drops the connection from the manager and every room.
// It reports whether the connection was still registered.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.conns[conn.ID]; !ok {
		return false
	}
	delete(cm.conns, conn.ID)
	close(conn.Send)
	for gameID, members := range cm.rooms {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(cm.rooms, gameID)
		}
	}

	log.Info().Str("connection_id", conn.ID).Msg("connection unregistered")
	return true
}

// Broadcast queues an event for every connection in the game's room.
func (cm *ConnectionManager) Broadcast(gameID string, ev events.Event) {
	cm.enqueue(BroadcastMessage{kind: kindBroadcast, GameID: gameID, Event: ev})
}

// Send queues an event for a single connection.
func (cm *ConnectionManager) Send(connID string, ev events.Event) {
	cm.enqueue(BroadcastMessage{kind: kindUnicast, ConnID: connID, Event: ev})
}

// Subscribe adds the connection to the game's room.
func (cm *ConnectionManager) Subscribe(gameID, connID string) {
	cm.enqueue(BroadcastMessage{kind: kindSubscribe, GameID: gameID, ConnID: connID})
}

// Unsubscribe removes the connection from the game's room.
func (cm *ConnectionManager) Unsubscribe(gameID, connID string) {
	cm.enqueue(BroadcastMessage{kind: kindUnsubscribe, GameID: gameID, ConnID: connID})
}

// CloseRoom forgets the game's room. Member connections stay open.
func (cm *ConnectionManager) CloseRoom(gameID string) {
	cm.enqueue(BroadcastMessage{kind: kindCloseRoom, GameID: gameID})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	case <-cm.done:
		log.Warn().Str("game_id", message.GameID).Msg("connection manager stopped, dropping message")
	}
}

func (cm *ConnectionManager) handle(message BroadcastMessage) {
	switch message.kind {
	case kindBroadcast:
		cm.handleBroadcast(message)
	case kindUnicast:
		cm.handleUnicast(message)
	case kindSubscribe:
		cm.mu.Lock()
		if _, ok := cm.conns[message.ConnID]; ok {
			if cm.rooms[message.GameID] == nil {
				cm.rooms[message.GameID] = make(map[string]bool)
			}
			cm.rooms[message.GameID][message.ConnID] = true
		}
		cm.mu.Unlock()
	case kindUnsubscribe:
		cm.mu.Lock()
		if members, ok := cm.rooms[message.GameID]; ok {
			delete(members, message.ConnID)
			if len(members) == 0 {
				delete(cm.rooms, message.GameID)
			}
		}
		cm.mu.Unlock()
	case kindCloseRoom:
		cm.mu.Lock()
		delete(cm.rooms, message.GameID)
		cm.mu.Unlock()
		log.Debug().Str("game_id", message.GameID).Msg("room closed")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.rooms[message.GameID]))
	for connID := range cm.rooms[message.GameID] {
		if conn, ok := cm.conns[connID]; ok {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(newEnvelope(message.GameID, message.Event, cm.clock.Now()))
	if err != nil {
		log.Error().Err(err).Str("event_type", string(message.Event.Type)).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		cm.deliver(conn, data)
	}
	if cm.mirror != nil {
		cm.mirror.Publish(message.GameID, message.Event.Type, data)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("game_id", message.GameID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

func (cm *ConnectionManager) handleUnicast(message BroadcastMessage) {
	cm.mu.RLock()
	conn, ok := cm.conns[message.ConnID]
	cm.mu.RUnlock()
	if !ok {
		log.Debug().
			Str("connection_id", message.ConnID).
			Str("event_type", string(message.Event.Type)).
			Msg("unicast target gone")
		return
	}

	data, err := json.Marshal(newEnvelope("", message.Event, cm.clock.Now()))
	if err != nil {
		log.Error().Err(err).Str("event_type", string(message.Event.Type)).Msg("failed to marshal event for unicast")
		return
	}
	cm.deliver(conn, data)
}

// deliver must only be called from the queue goroutine; a full send buffer
// marks the client dead.
func (cm *ConnectionManager) deliver(conn *Connection, data []byte) {
	cm.mu.RLock()
	_, live := cm.conns[conn.ID]
	if live {
		select {
		case conn.Send <- data:
			cm.mu.RUnlock()
			return
		default:
		}
	}
	cm.mu.RUnlock()
	if !live {
		return
	}

	log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
	cm.unregisterConnection(conn)
	conn.Conn.Close()
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.Conn.Close()
	}
}

// Stats is a snapshot of connection counts.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveGames      int            `json:"active_games"`
	GameConnections  map[string]int `json:"game_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	counts := make(map[string]int, len(cm.rooms))
	for gameID, members := range cm.rooms {
		counts[gameID] = len(members)
	}
	return Stats{
		TotalConnections: len(cm.conns),
		ActiveGames:      len(cm.rooms),
		GameConnections:  counts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	clock := c.Manager.clock
	ticker := clock.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(clock.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(clock.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds client messages to the dispatcher and reports the
// disconnect once the socket goes away.
func (c *Connection) readPump() {
	defer func() {
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
		c.dispatcher.Disconnect(c.ID)
	}()

	clock := c.Manager.clock
	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(clock.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(clock.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}

		c.dispatcher.Dispatch(c.ID, message)
		c.Conn.SetReadDeadline(clock.Now().Add(c.Manager.config.ReadTimeout))
	}
}
