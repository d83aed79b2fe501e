package forecast

import (
	"time"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/stage"
)

// DefaultMinEventDuration is the default cutoff below which clipped
// slots are discarded.
const DefaultMinEventDuration = 30 * time.Minute

// Compute derives the concrete outage forecast for one area by
// intersecting the region's planned stage timeline with the area's
// per-stage weekly timetable.
//
// For every planned interval with an active stage, each weekly slot of
// that stage is clipped to the interval's bounds; slots that don't
// overlap, collapse to zero length, or come out shorter than minDuration
// are dropped. When the intersection yields nothing at all, the area's
// ad-hoc events (same duration filter) are used as a fallback, since
// some areas report confirmed one-off outages with no matching weekly
// schedule entry.
//
// The result is pure and order-stable: entries appear in (planned
// interval, weekly slot) iteration order, not necessarily sorted by
// start time.
func Compute(planned []models.StageInterval, schedule map[stage.Stage][]models.TimeSlot, events []models.StageInterval, minDuration time.Duration) []models.StageInterval {
	forecast := []models.StageInterval{}

	for _, p := range planned {
		if p.Stage == stage.NoLoadShedding {
			continue
		}

		for _, slot := range schedule[p.Stage] {
			start, end := slot.StartTime, slot.EndTime

			if !start.Before(p.EndTime) {
				continue
			}
			if !end.After(p.StartTime) {
				continue
			}

			// Clip to the planned interval's bounds. A slot that fully
			// contains the interval collapses to exactly the interval.
			if start.Before(p.StartTime) {
				start = p.StartTime
			}
			if end.After(p.EndTime) {
				end = p.EndTime
			}

			if start.Equal(end) {
				continue
			}
			if end.Sub(start) < minDuration {
				continue
			}

			forecast = append(forecast, models.StageInterval{
				Stage:     p.Stage,
				StartTime: start,
				EndTime:   end,
			})
		}
	}

	if len(forecast) == 0 {
		for _, ev := range events {
			if ev.Duration() < minDuration {
				continue
			}
			forecast = append(forecast, ev)
		}
	}

	return forecast
}
