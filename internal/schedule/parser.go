package schedule

import (
	"fmt"
	"log"
	"strings"
	"time"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/sepush"
	"load-shedding-monitor/internal/stage"
)

// sast is the fixed UTC+2 offset the provider publishes schedules in.
// Deliberately not an IANA zone: South Africa has no DST and the
// upstream data carries no zone information.
var sast = time.FixedZone("SAST", 2*60*60)

// ParseAreaData converts a raw area payload into normalized events and a
// per-stage weekly timetable in UTC.
//
// Event notes are parsed leniently: a note that doesn't name a stage
// falls back to NoLoadShedding rather than failing. Schedule slots are
// interpreted as SAST wall-clock on the day's date; a slot whose end
// precedes its start wraps past midnight and gets a day added to the end
// before conversion.
//
// Slots are appended in (day, slot) iteration order per stage; callers
// that need chronological order across days must sort explicitly.
func ParseAreaData(resp *sepush.AreaResponse) (*models.AreaData, error) {
	events := make([]models.StageInterval, 0, len(resp.Events))
	for _, ev := range resp.Events {
		start, err := time.Parse(time.RFC3339, ev.Start)
		if err != nil {
			return nil, fmt.Errorf("event start %q: %w", ev.Start, err)
		}
		end, err := time.Parse(time.RFC3339, ev.End)
		if err != nil {
			return nil, fmt.Errorf("event end %q: %w", ev.End, err)
		}
		events = append(events, models.StageInterval{
			Stage:     stage.ParseNote(ev.Note),
			StartTime: start.UTC(),
			EndTime:   end.UTC(),
		})
	}

	timetable := make(map[stage.Stage][]models.TimeSlot)
	for _, day := range resp.Schedule.Days {
		date, err := time.ParseInLocation("2006-01-02", day.Date, sast)
		if err != nil {
			return nil, fmt.Errorf("schedule date %q: %w", day.Date, err)
		}

		for i, slots := range day.Stages {
			s := stage.FromInt(i + 1)
			if s == stage.Unknown {
				log.Printf("[schedule] ignoring slots for out-of-range stage index %d on %s", i+1, day.Date)
				continue
			}
			for _, raw := range slots {
				slot, err := parseSlot(date, raw)
				if err != nil {
					return nil, fmt.Errorf("%s stage %d: %w", day.Date, i+1, err)
				}
				timetable[s] = append(timetable[s], slot)
			}
		}
	}

	return &models.AreaData{Events: events, Schedule: timetable}, nil
}

// parseSlot turns one "HH:MM-HH:MM" string on the given SAST date into a
// UTC slot. The wrapped portion of a past-midnight slot stays attributed
// to the origin date, then gains a day.
func parseSlot(date time.Time, raw string) (models.TimeSlot, error) {
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return models.TimeSlot{}, fmt.Errorf("malformed timeslot %q", raw)
	}

	start, err := atTime(date, startStr)
	if err != nil {
		return models.TimeSlot{}, err
	}
	end, err := atTime(date, endStr)
	if err != nil {
		return models.TimeSlot{}, err
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}

	return models.TimeSlot{StartTime: start.UTC(), EndTime: end.UTC()}, nil
}

func atTime(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, sast), nil
}
