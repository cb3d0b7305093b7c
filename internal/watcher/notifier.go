package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
)

// Notifier announces newly-free slots. Everything here is best effort: a
// failed desktop popup or email must never fail the poll that produced it.
type Notifier struct {
	desktop  bool
	emailURL string
	hc       *http.Client
	log      *zap.Logger
}

const notifyTitle = "Foodsharing Abholungs-Beobachter"

// NewNotifier builds a Notifier. emailURL is the proxy's /notify-email
// endpoint; empty disables the email path, desktop=false disables popups.
func NewNotifier(desktop bool, emailURL string, log *zap.Logger) *Notifier {
	return &Notifier{
		desktop:  desktop,
		emailURL: emailURL,
		hc:       &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// Announce emits one desktop notification per newly-free slot and one
// summary email for the whole batch. The email is dispatched in the
// background and deliberately not awaited.
func (n *Notifier) Announce(newlyFree []foodsharing.PickupSlot) {
	if len(newlyFree) == 0 {
		return
	}

	if n.desktop {
		for _, p := range newlyFree {
			msg := slotMessage(p)
			if err := beeep.Notify(notifyTitle, msg, ""); err != nil {
				n.log.Warn("desktop notification failed", zap.Error(err))
			}
		}
	}

	if n.emailURL != "" {
		go n.sendEmail(newlyFree)
	}
}

func (n *Notifier) sendEmail(newlyFree []foodsharing.PickupSlot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lines := make([]string, 0, len(newlyFree))
	for _, p := range newlyFree {
		lines = append(lines, fmt.Sprintf("%s: %s", p.Date, p.Description))
	}
	payload, err := json.Marshal(map[string]string{
		"subject": "Neue freie Foodsharing Abhol-Slots!",
		"text":    strings.Join(lines, "\n"),
	})
	if err != nil {
		n.log.Warn("email notification payload failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.emailURL, bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("email notification request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.hc.Do(req)
	if err != nil {
		n.log.Warn("email notification send failed", zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		n.log.Warn("email notification rejected", zap.Int("status", resp.StatusCode))
		return
	}
	n.log.Info("email notification dispatched", zap.Int("slots", len(newlyFree)))
}

func slotMessage(p foodsharing.PickupSlot) string {
	msg := "Neuer freier Slot: " + FormatBerlin(p.Date)
	if p.Description != "" {
		msg += " um " + p.Description
	}
	return msg
}
