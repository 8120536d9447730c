// Package totals computes rolling tracked-time totals over the three
// display windows: today, current week, current month.
package totals

import (
	"fmt"
	"time"

	"tracklite/internal/domain"
)

// Totals holds summed durations in minutes per window.
type Totals struct {
	Today int64
	Week  int64
	Month int64
}

// Calculate sums entry durations bucketed by CreatedAt against now.
// It recomputes from the full collection on every call; cost is O(N) per
// mutation, which is fine for a personal tracker's collection sizes.
//
// Windows:
//   - today: CreatedAt on the same calendar date as now.
//   - week: CreatedAt on or after the start of the current week, where the
//     week starts on Sunday (weekday index 0) at midnight.
//   - month: CreatedAt in the same calendar month and year as now. The year
//     must match too; an entry from the same month of a previous year does
//     not count.
//
// Entries carry absolute instants; every calendar comparison happens in
// now's location, so the caller picks one timezone and each CreatedAt is
// converted into it before bucketing.
func Calculate(entries []domain.TimeEntry, now time.Time) Totals {
	startOfWeek := StartOfWeek(now)

	var t Totals
	for _, e := range entries {
		d := e.Duration
		if d < 0 {
			d = 0
		}
		created := e.CreatedAt.In(now.Location())
		if sameDate(created, now) {
			t.Today += d
		}
		if !created.Before(startOfWeek) {
			t.Week += d
		}
		if created.Month() == now.Month() && created.Year() == now.Year() {
			t.Month += d
		}
	}
	return t
}

// StartOfWeek returns midnight of the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	d := t.AddDate(0, 0, -int(t.Weekday()))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// Formatted is the presentation form of Totals, one "3h 20m" string per
// window.
type Formatted struct {
	Today string `json:"today"`
	Week  string `json:"week"`
	Month string `json:"month"`
}

// Formatted renders every window with Format.
func (t Totals) Formatted() Formatted {
	return Formatted{
		Today: Format(t.Today),
		Week:  Format(t.Week),
		Month: Format(t.Month),
	}
}

// Format renders a minute total as "3h 20m".
func Format(minutes int64) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
