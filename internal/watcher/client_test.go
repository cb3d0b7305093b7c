package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFetchPickupsBuildsMultiStoreRequest(t *testing.T) {
	var gotQuery []string
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()["store_id"]
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"multi": true,
			"results": [
				{"storeId":"1","status":200,"pickups":[{"date":"2025-09-01T10:00:00+02:00","totalSlots":2}]},
				{"storeId":"2","status":200,"pickups":[{"date":"2025-09-01T10:00:00+02:00","totalSlots":1}]}
			]
		}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/proxy", map[string]string{"X-Extra": "1"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	pickups, err := c.FetchPickups(context.Background(), []string{"1", "2"})
	if err != nil {
		t.Fatalf("FetchPickups returned error: %v", err)
	}

	if len(gotQuery) != 2 || gotQuery[0] != "1" || gotQuery[1] != "2" {
		t.Fatalf("store_id params = %v, want [1 2]", gotQuery)
	}
	if gotHeader.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", gotHeader.Get("Accept"))
	}
	if gotHeader.Get("X-Extra") != "1" {
		t.Errorf("custom header not forwarded: %v", gotHeader)
	}
	if len(pickups) != 2 {
		t.Fatalf("pickups = %d, want 2", len(pickups))
	}
	if pickups[0].StoreID != "1" || pickups[1].StoreID != "2" {
		t.Fatalf("store ids = %q, %q, want stamped from the multi payload", pickups[0].StoreID, pickups[1].StoreID)
	}
}

func TestFetchPickupsSurfacesProxyErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.FetchPickups(context.Background(), []string{"1"})
	if err == nil {
		t.Fatal("FetchPickups swallowed a 500")
	}
	if !strings.Contains(err.Error(), "HTTP 500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error = %v, want status and body excerpt", err)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("localhost:8787/proxy", nil, zap.NewNop()); err == nil {
		t.Fatal("NewClient accepted a URL without a scheme")
	}
}

func TestNotifyURLDerivedFromProxyOrigin(t *testing.T) {
	c, err := NewClient("http://localhost:8787/proxy?x=1", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if got := c.NotifyURL(); got != "http://localhost:8787/notify-email" {
		t.Fatalf("NotifyURL() = %q", got)
	}
}
