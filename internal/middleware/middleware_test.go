// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if seen == "" {
		t.Fatal("expected request ID in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header %q does not match context %q", got, seen)
	}
}

func TestRequestIDHonorsUpstreamHeader(t *testing.T) {
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "proxy-assigned" {
			t.Errorf("expected upstream ID to win, got %q", got)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "proxy-assigned")
	handler(httptest.NewRecorder(), req)
}

func TestPrometheusMetricsCapturesStatus(t *testing.T) {
	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status not passed through, got %d", rec.Code)
	}
}

func TestCompressionGzipsWhenAccepted(t *testing.T) {
	body := strings.Repeat("telemetry ", 200)
	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/recent", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gz.Close()
	decoded, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decoded) != body {
		t.Error("decompressed body does not match original")
	}
}

func TestCompressionSkipsWithoutAcceptHeader(t *testing.T) {
	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain"))
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("should not compress without Accept-Encoding")
	}
	if rec.Body.String() != "plain" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestCompressionSkipsWebSocketUpgrade(t *testing.T) {
	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("upgrade"))
	})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("websocket upgrade must not be compressed")
	}
}
