package coordinator

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"load-shedding-monitor/internal/forecast"
	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/schedule"
	"load-shedding-monitor/internal/sepush"
)

// AreaAPI is the slice of the sepush client the area coordinator needs.
type AreaAPI interface {
	Area(id string) (*sepush.AreaResponse, error)
}

// StageSource provides the upstream planned stage timelines. Injected
// explicitly so the area coordinator never reaches into shared state.
type StageSource interface {
	Snapshot() map[string]models.RegionTimeline
}

// AreaSnapshot is the area coordinator's published state: raw parsed
// area data plus derived forecasts, both keyed by area ID.
type AreaSnapshot struct {
	Data      map[string]models.AreaData
	Forecasts map[string][]models.StageInterval
}

// AreaCoordinator polls area schedules for all tracked areas and derives
// their outage forecasts from the stage coordinator's timelines.
type AreaCoordinator struct {
	api         AreaAPI
	stages      StageSource
	interval    time.Duration
	minDuration time.Duration
	now         func() time.Time

	mu         sync.RWMutex
	areas      []models.Area
	data       map[string]models.AreaData
	forecasts  map[string][]models.StageInterval
	lastUpdate time.Time
}

// NewAreaCoordinator creates a coordinator refetching area data at most
// once per interval. minDuration is the cutoff for forecast entries.
func NewAreaCoordinator(api AreaAPI, stages StageSource, interval, minDuration time.Duration) *AreaCoordinator {
	return &AreaCoordinator{
		api:         api,
		stages:      stages,
		interval:    interval,
		minDuration: minDuration,
		now:         time.Now,
		data:        make(map[string]models.AreaData),
		forecasts:   make(map[string][]models.StageInterval),
	}
}

// AddArea registers an area to track. The area's RegionID decides which
// planned stage timeline its forecast is derived from.
func (c *AreaCoordinator) AddArea(area models.Area) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.areas = append(c.areas, area)
}

// SetAreas replaces the tracked area list wholesale.
func (c *AreaCoordinator) SetAreas(areas []models.Area) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.areas = areas
}

// Areas returns the tracked areas.
func (c *AreaCoordinator) Areas() []models.Area {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Area, len(c.areas))
	copy(out, c.areas)
	return out
}

// Refresh refetches area data when stale and recomputes forecasts.
// Forecasts are recomputed even on the cached path because the upstream
// stage timeline may have changed since the last area fetch. Failure to
// fetch one area keeps that area's last-good data (transient) or drops
// it (validation); other areas are unaffected. When several areas fail,
// the returned error joins all per-area failures and its kind is
// validation if any area's payload was invalid.
func (c *AreaCoordinator) Refresh() (AreaSnapshot, *RefreshError) {
	now := c.now().UTC()

	c.mu.RLock()
	fresh := !c.lastUpdate.IsZero() && now.Sub(c.lastUpdate) < c.interval
	c.mu.RUnlock()

	var lastErr *RefreshError
	if !fresh {
		lastErr = c.fetchAll(now)
	}

	c.recomputeForecasts()
	return c.Snapshot(), lastErr
}

// RefreshArea refetches a single area immediately, bypassing the
// freshness check, and recomputes forecasts. Used for on-demand
// refreshes requested through the bot.
func (c *AreaCoordinator) RefreshArea(areaID string) *RefreshError {
	var target *models.Area
	for _, area := range c.Areas() {
		if area.AreaID == areaID {
			target = &area
			break
		}
	}
	if target == nil {
		return &RefreshError{Kind: FailureValidation, Err: fmt.Errorf("unknown area %s", areaID)}
	}

	refreshErr := c.fetchOne(*target)
	c.recomputeForecasts()
	return refreshErr
}

func (c *AreaCoordinator) fetchAll(now time.Time) *RefreshError {
	var errs []error
	kind := FailureTransient

	for _, area := range c.Areas() {
		if err := c.fetchOne(area); err != nil {
			errs = append(errs, err.Err)
			if err.Kind == FailureValidation {
				kind = FailureValidation
			}
		}
	}

	c.mu.Lock()
	c.lastUpdate = now
	c.mu.Unlock()

	if len(errs) == 0 {
		return nil
	}
	return &RefreshError{Kind: kind, Err: errors.Join(errs...)}
}

func (c *AreaCoordinator) fetchOne(area models.Area) *RefreshError {
	resp, err := c.api.Area(area.AreaID)
	if err != nil {
		log.Printf("[area] unable to get schedule for %s: %v", area.AreaID, err)
		return &RefreshError{Kind: FailureTransient, Err: err}
	}

	parsed, err := schedule.ParseAreaData(resp)
	if err != nil {
		log.Printf("[area] invalid schedule payload for %s: %v", area.AreaID, err)
		c.mu.Lock()
		delete(c.data, area.AreaID)
		c.mu.Unlock()
		return &RefreshError{Kind: FailureValidation, Err: err}
	}

	c.mu.Lock()
	c.data[area.AreaID] = *parsed
	c.mu.Unlock()
	return nil
}

// recomputeForecasts derives every tracked area's forecast from the
// current stage snapshot. A missing or empty upstream timeline is
// treated as "no stage data yet", not an error.
func (c *AreaCoordinator) recomputeForecasts() {
	timelines := c.stages.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	forecasts := make(map[string][]models.StageInterval, len(c.areas))
	for _, area := range c.areas {
		data, ok := c.data[area.AreaID]
		if !ok {
			continue
		}
		planned := timelines[area.RegionID].Planned
		forecasts[area.AreaID] = forecast.Compute(planned, data.Schedule, data.Events, c.minDuration)
	}
	c.forecasts = forecasts
}

// Forecast returns the current forecast for one area, nil if unknown.
func (c *AreaCoordinator) Forecast(areaID string) []models.StageInterval {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.forecasts[areaID]
}

// Snapshot returns a copy of the current area data and forecasts.
func (c *AreaCoordinator) Snapshot() AreaSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := AreaSnapshot{
		Data:      make(map[string]models.AreaData, len(c.data)),
		Forecasts: make(map[string][]models.StageInterval, len(c.forecasts)),
	}
	for k, v := range c.data {
		snap.Data[k] = v
	}
	for k, v := range c.forecasts {
		snap.Forecasts[k] = v
	}
	return snap
}
