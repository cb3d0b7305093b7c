// Package watcher is the headless counterpart of the browser dashboard: it
// polls the proxy for pickup availability, diffs each result against the
// persisted baseline and announces newly-free slots.
package watcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
	"github.com/robotikz/foodsharing-watcher/internal/state"
)

// Watcher runs one poll cycle at a time; the Poller serializes calls, so no
// locking is needed around the baseline.
type Watcher struct {
	Client    *Client
	Notifier  *Notifier
	StoreIDs  []string
	StatePath string
	ShowAll   bool
	Log       *zap.Logger

	prevFreeKeys []string
	lastUpdated  time.Time
}

// SetBaseline seeds the free-key baseline from persisted state.
func (w *Watcher) SetBaseline(keys []string) { w.prevFreeKeys = keys }

// LastUpdated reports when the last successful poll finished.
func (w *Watcher) LastUpdated() time.Time { return w.lastUpdated }

// Poll runs one full cycle: fetch, diff, notify, persist. The baseline is
// replaced after every successful fetch whether or not anything was newly
// free; fetch failures leave it untouched so the next poll still notifies.
func (w *Watcher) Poll(ctx context.Context) error {
	pollID := uuid.NewString()[:8]
	log := w.Log.With(zap.String("poll_id", pollID))

	pickups, err := w.Client.FetchPickups(ctx, w.StoreIDs)
	if err != nil {
		log.Error("poll failed", zap.Error(err))
		return err
	}

	delta := DetectNewlyFree(pickups, w.prevFreeKeys)
	if len(delta.NewlyFree) > 0 {
		log.Info("newly free slots", zap.Int("count", len(delta.NewlyFree)))
		w.Notifier.Announce(delta.NewlyFree)
	}
	w.prevFreeKeys = delta.NowFreeKeys
	w.lastUpdated = time.Now()

	if err := state.Save(w.StatePath, state.State{
		StoreIDs: w.StoreIDs,
		Headers:  w.Client.Headers(),
		FreeKeys: delta.NowFreeKeys,
	}); err != nil {
		log.Warn("failed to persist state", zap.Error(err))
	}

	w.logSummary(log, pickups, delta)
	return nil
}

func (w *Watcher) logSummary(log *zap.Logger, pickups []foodsharing.PickupSlot, delta Delta) {
	withFree := 0
	for _, p := range pickups {
		if p.HasFree() {
			withFree++
		}
	}
	log.Info("poll complete",
		zap.Int("pickups", len(pickups)),
		zap.Int("with_free", withFree),
		zap.Int("newly_free", len(delta.NewlyFree)))

	for _, p := range pickups {
		if !w.ShowAll && !p.HasFree() {
			continue
		}
		log.Info("slot",
			zap.String("store_id", p.StoreID),
			zap.String("date", FormatBerlin(p.Date)),
			zap.String("description", p.Description),
			zap.Int("free", p.Free()),
			zap.Int("total", p.TotalSlots))
	}
}
