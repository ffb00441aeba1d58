// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package supervisor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldsense/fieldsense/internal/logging"
)

// blockingRunner runs until cancelled and counts starts.
type blockingRunner struct {
	starts atomic.Int32
}

func (r *blockingRunner) RunWithContext(ctx context.Context) error {
	r.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestContextServiceDelegates(t *testing.T) {
	runner := &blockingRunner{}
	svc := NewContextService("probe", runner)

	if svc.String() != "probe" {
		t.Errorf("name = %q, want probe", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancel")
	}

	if runner.starts.Load() != 1 {
		t.Errorf("expected 1 start, got %d", runner.starts.Load())
	}
}

func TestTreeRunsAndStopsServices(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), DefaultTreeConfig())

	messaging := &blockingRunner{}
	apiRunner := &blockingRunner{}
	tree.AddMessagingService(NewContextService("messaging-probe", messaging))
	tree.AddAPIService(NewContextService("api-probe", apiRunner))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for messaging.starts.Load() == 0 || apiRunner.starts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("services did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected tree error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestHTTPServerServiceReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	server := &http.Server{Addr: ln.Addr().String()}
	svc := NewHTTPServerService(server, time.Second)

	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected bind failure on occupied port")
	}
}

func TestHTTPServerServiceStopsOnCancel(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0"}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after cancel")
	}
}
