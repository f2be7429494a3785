package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tradesync/internal/model"
)

func TestHTTPClientMarketVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/mkt-1/versions" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"platform":3,"orderbook":7,"candle":2,"user":9}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	vv, err := client.MarketVersions(context.Background(), "mkt-1")
	if err != nil {
		t.Fatalf("market versions: %v", err)
	}
	want := model.VersionVector{Platform: 3, Orderbook: 7, Candle: 2, User: 9}
	if !vv.Equal(want) {
		t.Fatalf("versions = %+v, want %+v", vv, want)
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"market_id":"mkt-1"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, WithRetries(3, time.Millisecond))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	snap, err := client.IndexSnapshot(context.Background(), "mkt-1")
	if err != nil {
		t.Fatalf("index snapshot: %v", err)
	}
	if snap.MarketID != "mkt-1" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("server hits = %d, want 3", got)
	}
}

func TestHTTPClientLogsFailedAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	client, err := NewHTTPClient(srv.URL,
		WithRetries(1, time.Millisecond),
		WithLogger(zap.New(core)),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.IndexSnapshot(context.Background(), "mkt-1"); err == nil {
		t.Fatalf("expected error from failing backend")
	}

	entries := logs.FilterMessage("backend request failed").All()
	if len(entries) != 2 {
		t.Fatalf("got %d failure log entries, want 2", len(entries))
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(""); err == nil {
		t.Fatalf("empty base url accepted")
	}
}
