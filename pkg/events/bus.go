package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// subscriberBuffer bounds how many undelivered events a single subscriber may
// queue before Publish starts dropping events for it. Publish never blocks on
// a slow subscriber.
const subscriberBuffer = 64

// Bus is an in-process publish/subscribe hub. Publish fans an Event out to
// every subscriber of its Channel plus every subscriber of GlobalChannel.
// Delivery is best-effort: a subscriber whose buffer is full misses the
// event rather than stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Event
	next int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Event)}
}

// Subscribe returns a channel that receives every Event published to channel,
// and a cancel function that must be called to release the subscription.
func (b *Bus) Subscribe(channel string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan Event)
	}
	id := b.next
	b.next++
	b.subs[channel][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[channel]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.subs, channel)
			}
		}
	}
	return ch, cancel
}

// Publish delivers evt to subscribers of evt.Channel and of GlobalChannel.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]chan Event, 0, 4)
	for id := range b.subs[evt.Channel] {
		targets = append(targets, b.subs[evt.Channel][id])
	}
	if evt.Channel != GlobalChannel {
		for id := range b.subs[GlobalChannel] {
			targets = append(targets, b.subs[GlobalChannel][id])
		}
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- evt:
		default:
			slog.Warn("events: dropping event for slow subscriber", "channel", evt.Channel, "type", evt.Type)
		}
	}
}

// SubscriberCount returns the number of active subscriptions on a channel.
// Used by tests to poll instead of sleeping.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// ConnectionManager bridges Bus subscriptions to WebSocket clients. Each
// server process owns one ConnectionManager.
type ConnectionManager struct {
	bus          *Bus
	writeTimeout time.Duration

	mu          sync.RWMutex
	connections map[string]*Connection
}

// Connection represents a single WebSocket client.
//
// subscriptions is accessed WITHOUT a lock: all reads and writes happen on
// the single goroutine that owns the connection (HandleConnection's read
// loop plus its per-channel pump goroutines only ever call cancel funcs).
type Connection struct {
	ID            string
	Conn          *websocket.Conn
	subscriptions map[string]func() // channel -> unsubscribe
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConnectionManager creates a ConnectionManager backed by bus.
func NewConnectionManager(bus *Bus, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		bus:          bus,
		writeTimeout: writeTimeout,
		connections:  make(map[string]*Connection),
	}
}

// ActiveConnections returns the count of active WebSocket connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// HandleConnection manages the lifecycle of a single WebSocket connection.
// Called by the HTTP handler after upgrade. Blocks until the connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &Connection{
		ID:            uuid.New().String(),
		Conn:          conn,
		subscriptions: make(map[string]func()),
		ctx:           ctx,
		cancel:        cancel,
	}

	m.mu.Lock()
	m.connections[c.ID] = c
	m.mu.Unlock()

	defer m.unregister(c)

	m.sendJSON(c, map[string]string{"type": "connection.established", "connection_id": c.ID})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("events: invalid websocket message", "connection_id", c.ID, "error", err)
			continue
		}
		m.handleClientMessage(c, &msg)
	}
}

func (m *ConnectionManager) handleClientMessage(c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "channel is required for subscribe"})
			return
		}
		m.subscribe(c, msg.Channel)
		m.sendJSON(c, map[string]string{"type": "subscription.confirmed", "channel": msg.Channel})
	case "unsubscribe":
		if msg.Channel == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "channel is required for unsubscribe"})
			return
		}
		m.unsubscribe(c, msg.Channel)
	case "ping":
		m.sendJSON(c, map[string]string{"type": "pong"})
	}
}

// subscribe starts a pump goroutine that forwards Bus events for channel to
// the connection until the connection's context is cancelled or the channel
// is unsubscribed.
func (m *ConnectionManager) subscribe(c *Connection, channel string) {
	if _, already := c.subscriptions[channel]; already {
		return
	}
	events, unsub := m.bus.Subscribe(channel)
	c.subscriptions[channel] = unsub

	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				m.sendJSON(c, evt)
			}
		}
	}()
}

func (m *ConnectionManager) unsubscribe(c *Connection, channel string) {
	if unsub, ok := c.subscriptions[channel]; ok {
		unsub()
		delete(c.subscriptions, channel)
	}
}

func (m *ConnectionManager) unregister(c *Connection) {
	for ch, unsub := range c.subscriptions {
		unsub()
		delete(c.subscriptions, ch)
	}

	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

func (m *ConnectionManager) sendJSON(c *Connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("events: failed to marshal websocket message", "connection_id", c.ID, "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	if err := c.Conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Warn("events: failed to send websocket message", "connection_id", c.ID, "error", err)
	}
}
