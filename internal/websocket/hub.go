// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package websocket fans telemetry events out to connected dashboards.
// Each new client receives a consistent state snapshot before any live
// events; slow clients are disconnected rather than allowed to apply
// backpressure to the pipeline.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/metrics"
)

// Event types pushed to dashboards.
const (
	EventSnapshot      = "snapshot"
	EventReadingUpdate = "reading-update"
	EventAlertsUpdate  = "alerts-update"
	EventAIAlert       = "ai-alert"
	EventAIPrediction  = "ai-prediction"

	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is the envelope for every event sent over a connection.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SnapshotSource produces the initial-state payload for a newly
// connected client. It is invoked inside the hub loop, so the snapshot
// is queued onto the client before any subsequent broadcast.
type SnapshotSource func() interface{}

// Hub maintains the set of active clients and broadcasts events to
// them. Lifecycle events take priority over broadcasts so client state
// is settled before messages flow.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	snapshotMu sync.RWMutex
	snapshot   SnapshotSource
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// SetSnapshotSource installs the initial-state producer. Must be
// called before the hub starts accepting clients.
func (h *Hub) SetSnapshotSource(src SnapshotSource) {
	h.snapshotMu.Lock()
	defer h.snapshotMu.Unlock()
	h.snapshot = src
}

// RunWithContext runs the hub loop until the context is cancelled,
// then closes every connected client. Designed for suture supervision.
//
// Selection is priority ordered: shutdown, then client lifecycle, then
// broadcasts. Go's select picks randomly among ready channels, so the
// staged non-blocking checks keep the ordering deterministic.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// BroadcastJSON queues an event for every connected client. The event
// is dropped with a warning if the hub's broadcast buffer is full.
func (h *Hub) BroadcastJSON(eventType string, data interface{}) {
	message := Message{Type: eventType, Data: data}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSBroadcastDrops.Inc()
		logging.Warn().Str("event_type", eventType).Msg("Broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(float64(count))

	// Queue the snapshot directly onto the client so it precedes any
	// broadcast processed after this registration.
	h.snapshotMu.RLock()
	src := h.snapshot
	h.snapshotMu.RUnlock()
	if src != nil {
		if !client.trySend(Message{Type: EventSnapshot, Data: src()}) {
			logging.Warn().Uint64("client_id", client.id).Msg("Client buffer full at connect, snapshot dropped")
		}
	}

	logging.Info().Int("total_clients", count).Msg("WebSocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("WebSocket client disconnected")
}

// broadcastToClients delivers one event to every client in ID order.
// Clients whose send buffer is full are dropped; a dashboard that
// cannot keep up reconnects and gets a fresh snapshot.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		if !client.trySend(message) {
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		client.closeSend()
		delete(h.clients, client)
		metrics.WSBroadcastDrops.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("Client buffer full, disconnecting slow client")
	}
	if len(toRemove) > 0 {
		metrics.WSConnectedClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		client.closeSend()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", ctx.Err().Error()).
		Int("clients_closed", len(clients)).
		Msg("WebSocket hub stopped")
}
