package watcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
)

func TestAnnounceSendsOneSummaryEmail(t *testing.T) {
	type mail struct {
		Subject string `json:"subject"`
		Text    string `json:"text"`
	}
	got := make(chan mail, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/notify-email" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var m mail
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode email payload: %v", err)
		}
		got <- m
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	n := NewNotifier(false, server.URL+"/notify-email", zap.NewNop())
	n.Announce([]foodsharing.PickupSlot{
		{StoreID: "1", Date: "2025-09-01T10:00:00+02:00", Description: "Bio Markt"},
		{StoreID: "2", Date: "2025-09-02T10:00:00+02:00"},
	})

	select {
	case m := <-got:
		if m.Subject != "Neue freie Foodsharing Abhol-Slots!" {
			t.Errorf("subject = %q", m.Subject)
		}
		if lines := strings.Split(m.Text, "\n"); len(lines) != 2 {
			t.Errorf("text = %q, want one line per slot", m.Text)
		}
		if !strings.Contains(m.Text, "Bio Markt") {
			t.Errorf("text = %q, want the slot description included", m.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no email request within 2s")
	}
}

func TestAnnounceEmptyDeltaSendsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("email request issued for an empty delta")
	}))
	t.Cleanup(server.Close)

	n := NewNotifier(false, server.URL, zap.NewNop())
	n.Announce(nil)
	time.Sleep(50 * time.Millisecond)
}

func TestAnnounceWithoutEmailURLStaysLocal(t *testing.T) {
	// desktop off, email off: Announce must be a no-op and must not panic
	n := NewNotifier(false, "", zap.NewNop())
	n.Announce([]foodsharing.PickupSlot{{StoreID: "1", Date: "2025-09-01T10:00:00+02:00"}})
}
