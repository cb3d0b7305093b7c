package watcher

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	berlinOnce sync.Once
	berlinLoc  *time.Location
)

func berlin() *time.Location {
	berlinOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Berlin")
		if err != nil {
			loc = time.Local
		}
		berlinLoc = loc
	})
	return berlinLoc
}

var germanWeekdays = [...]string{"So.", "Mo.", "Di.", "Mi.", "Do.", "Fr.", "Sa."}

// FormatBerlin renders an ISO timestamp the way the dashboard shows it:
// German weekday, day.month.year, hour:minute, Europe/Berlin. Malformed input
// comes back unchanged.
func FormatBerlin(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	t = t.In(berlin())
	return fmt.Sprintf("%s, %02d.%02d.%d, %02d:%02d",
		germanWeekdays[t.Weekday()], t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute())
}

// HumanDuration renders a countdown like "1h 4m 9s". Sub-minute values show
// seconds only.
func HumanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Seconds())
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || h > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", sec))
	return strings.Join(parts, " ")
}
