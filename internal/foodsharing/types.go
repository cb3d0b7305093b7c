package foodsharing

import (
	"encoding/json"
	"time"
)

// Profile is the public part of a foodsharing user attached to a slot.
type Profile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Occupant is one person signed up for a pickup slot.
type Occupant struct {
	Profile     Profile `json:"profile"`
	IsConfirmed bool    `json:"isConfirmed"`
}

// PickupSlot is one pickup time window at one store.
//
// Date stays the raw ISO string the upstream sent. The change detector keys
// slots by (store id, date) and re-rendering the timestamp through time.Time
// would shift the key between polls.
type PickupSlot struct {
	StoreID       string     `json:"storeId,omitempty"`
	Date          string     `json:"date"`
	Description   string     `json:"description,omitempty"`
	TotalSlots    int        `json:"totalSlots"`
	OccupiedSlots []Occupant `json:"occupiedSlots"`
	IsAvailable   bool       `json:"isAvailable,omitempty"`
}

// Free returns the number of unoccupied places, never negative.
func (p PickupSlot) Free() int {
	free := p.TotalSlots - len(p.OccupiedSlots)
	if free < 0 {
		return 0
	}
	return free
}

// HasFree reports whether the slot can still be taken. The upstream
// isAvailable flag wins when set.
func (p PickupSlot) HasFree() bool {
	return p.IsAvailable || p.Free() > 0
}

// Key identifies the slot across polls.
func (p PickupSlot) Key() string {
	return p.StoreID + "-" + p.Date
}

// Time parses the slot's start. Falls back to the zero time on malformed
// input; callers that only display the date show the raw string instead.
func (p PickupSlot) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, p.Date)
}

// PickupsResponse is the upstream single-store payload.
type PickupsResponse struct {
	Pickups []PickupSlot `json:"pickups"`
}

// StoreResult is one fan-out leg's outcome inside a multi-store response.
type StoreResult struct {
	StoreID string       `json:"storeId"`
	Pickups []PickupSlot `json:"pickups"`
	Status  int          `json:"status"`
	Error   string       `json:"error,omitempty"`
}

// MultiResponse is the aggregate envelope for multi-store requests.
type MultiResponse struct {
	Multi   bool          `json:"multi"`
	Results []StoreResult `json:"results"`
}

// Flatten merges either proxy response shape, {pickups:[...]} or
// {multi:true, results:[...]}, into one slice of slots. Multi results stamp
// their store id onto each slot so Key() stays stable per store.
func Flatten(body []byte) ([]PickupSlot, error) {
	var probe struct {
		Pickups []PickupSlot  `json:"pickups"`
		Multi   bool          `json:"multi"`
		Results []StoreResult `json:"results"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, err
	}

	if !probe.Multi {
		return probe.Pickups, nil
	}

	var out []PickupSlot
	for _, r := range probe.Results {
		for _, p := range r.Pickups {
			if p.StoreID == "" {
				p.StoreID = r.StoreID
			}
			out = append(out, p)
		}
	}
	return out, nil
}
