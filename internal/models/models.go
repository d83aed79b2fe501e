package models

import (
	"time"

	"load-shedding-monitor/internal/stage"
)

// StageInterval is one window during which a given stage is active.
// Used both for planned stage timelines and for computed forecasts.
type StageInterval struct {
	Stage     stage.Stage `json:"stage"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
}

// Duration returns the length of the interval.
func (i StageInterval) Duration() time.Duration {
	return i.EndTime.Sub(i.StartTime)
}

// TimeSlot is one recurring weekly outage slot, materialized into
// absolute UTC instants for a specific date.
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// RegionTimeline is a region's planned stage timeline: ordered, gapless,
// pruned of past intervals.
type RegionTimeline struct {
	Name    string          `json:"name"`
	Planned []StageInterval `json:"planned"`
}

// AreaData is the parsed schedule payload for one area: ad-hoc events
// plus the weekly timetable keyed by stage.
type AreaData struct {
	Events   []StageInterval            `json:"events"`
	Schedule map[stage.Stage][]TimeSlot `json:"schedule"`
}

// Area is a monitored local area persisted in the database. RegionID is
// set explicitly at registration time rather than inferred from the
// area ID string.
type Area struct {
	ID           int64     `json:"id" db:"id"`
	AreaID       string    `json:"area_id" db:"area_id"`
	Name         string    `json:"name" db:"name"`
	RegionID     string    `json:"region_id" db:"region_id"`
	Municipality string    `json:"municipality" db:"municipality"`
	Province     string    `json:"province" db:"province"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Subscription links a Telegram chat to an area so the bot can notify
// about upcoming outages.
type Subscription struct {
	ID           int64      `json:"id" db:"id"`
	ChatID       int64      `json:"chat_id" db:"chat_id"`
	AreaID       string     `json:"area_id" db:"area_id"`
	PingTarget   string     `json:"ping_target" db:"ping_target"`
	NotifiedUpTo *time.Time `json:"notified_up_to,omitempty" db:"notified_up_to"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// OutageRecord is a historical row of one forecast outage window, kept
// so past windows can be compared against observed power state.
type OutageRecord struct {
	ID        int64       `json:"id" db:"id"`
	AreaID    string      `json:"area_id" db:"area_id"`
	Stage     stage.Stage `json:"stage" db:"stage"`
	StartTime time.Time   `json:"start_time" db:"start_time"`
	EndTime   time.Time   `json:"end_time" db:"end_time"`
	Confirmed *bool       `json:"confirmed,omitempty" db:"confirmed"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
