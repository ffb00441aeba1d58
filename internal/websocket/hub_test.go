// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/fieldsense/fieldsense/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop after cancel")
		}
	})
	return hub, cancel
}

func register(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.Register <- client
	waitForCount(t, hub, func(n int) bool { return n > 0 })
}

func waitForCount(t *testing.T, hub *Hub, ok func(int) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok(hub.ClientCount()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached expected state, have %d", hub.ClientCount())
}

func recvMessage(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		if !ok {
			t.Fatal("client send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	register(t, hub, client)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister <- client
	waitForCount(t, hub, func(n int) bool { return n == 0 })

	// The hub closes the send channel on unregister.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel after unregister")
		}
	case <-time.After(2 * time.Second):
		t.Error("send channel not closed after unregister")
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub, _ := startHub(t)

	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	register(t, hub, a)
	hub.Register <- b
	waitForCount(t, hub, func(n int) bool { return n == 2 })

	hub.BroadcastJSON(EventReadingUpdate, &models.SensorReading{NodeID: "node-1"})

	for _, client := range []*Client{a, b} {
		msg := recvMessage(t, client)
		if msg.Type != EventReadingUpdate {
			t.Errorf("message type = %q, want %q", msg.Type, EventReadingUpdate)
		}
	}
}

func TestHubSnapshotPrecedesBroadcasts(t *testing.T) {
	hub, _ := startHub(t)
	hub.SetSnapshotSource(func() interface{} {
		return &models.Snapshot{Nodes: map[string]*models.Node{"node-1": {NodeID: "node-1"}}}
	})

	client := NewClient(hub, nil)
	register(t, hub, client)
	hub.BroadcastJSON(EventAlertsUpdate, []*models.Alert{{ID: "a-1"}})

	first := recvMessage(t, client)
	if first.Type != EventSnapshot {
		t.Fatalf("first message type = %q, want %q", first.Type, EventSnapshot)
	}
	snap, ok := first.Data.(*models.Snapshot)
	if !ok || len(snap.Nodes) != 1 {
		t.Errorf("snapshot payload = %+v", first.Data)
	}

	second := recvMessage(t, client)
	if second.Type != EventAlertsUpdate {
		t.Errorf("second message type = %q, want %q", second.Type, EventAlertsUpdate)
	}
}

func TestHubNoSnapshotSourceStillAccepts(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	register(t, hub, client)

	hub.BroadcastJSON(EventAIPrediction, map[string]interface{}{"model": "lstm"})
	msg := recvMessage(t, client)
	if msg.Type != EventAIPrediction {
		t.Errorf("message type = %q, want %q", msg.Type, EventAIPrediction)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := NewClient(hub, nil)
	slow.send = make(chan Message, 1)
	register(t, hub, slow)

	// First event fills the buffer, second forces the drop.
	hub.BroadcastJSON(EventReadingUpdate, nil)
	hub.BroadcastJSON(EventReadingUpdate, nil)

	waitForCount(t, hub, func(n int) bool { return n == 0 })
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()

	client := NewClient(hub, nil)
	hub.Register <- client
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown, want 0", hub.ClientCount())
	}
}

func TestClientIDsAreUnique(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	if a.ID() == b.ID() {
		t.Errorf("client IDs collide: %d", a.ID())
	}
	if b.ID() <= a.ID() {
		t.Errorf("client IDs not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestClientTrySendAfterClose(t *testing.T) {
	client := NewClient(NewHub(), nil)

	if !client.trySend(Message{Type: MessageTypePong}) {
		t.Fatal("trySend() on open client = false")
	}

	client.closeSend()
	// Closing twice must be a no-op, not a panic.
	client.closeSend()

	if client.trySend(Message{Type: MessageTypePong}) {
		t.Error("trySend() after close = true, want false")
	}
}
