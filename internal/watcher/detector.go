package watcher

import "github.com/robotikz/foodsharing-watcher/internal/foodsharing"

// Delta is the outcome of one change-detection pass.
type Delta struct {
	// NowFreeKeys is the full key set of currently free slots. It becomes
	// the next baseline regardless of whether anything was newly free.
	NowFreeKeys []string
	// NewlyFree holds the slots whose keys were absent from the previous
	// baseline.
	NewlyFree []foodsharing.PickupSlot
}

// DetectNewlyFree diffs the current poll against the persisted baseline.
// An empty baseline (cold start) marks every free slot as newly free; that is
// accepted behavior, not a bug.
func DetectNewlyFree(pickups []foodsharing.PickupSlot, prevKeys []string) Delta {
	prev := make(map[string]struct{}, len(prevKeys))
	for _, k := range prevKeys {
		prev[k] = struct{}{}
	}

	var delta Delta
	for _, p := range pickups {
		if !p.HasFree() {
			continue
		}
		key := p.Key()
		delta.NowFreeKeys = append(delta.NowFreeKeys, key)
		if _, seen := prev[key]; !seen {
			delta.NewlyFree = append(delta.NewlyFree, p)
		}
	}
	return delta
}
