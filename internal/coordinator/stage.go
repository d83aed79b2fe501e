package coordinator

import (
	"log"
	"sync"
	"time"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/sepush"
	"load-shedding-monitor/internal/status"
)

// StatusAPI is the slice of the sepush client the stage coordinator needs.
type StatusAPI interface {
	Status() (*sepush.StatusResponse, error)
}

// StageCoordinator polls region stage statuses and maintains the
// last-good planned stage timelines.
type StageCoordinator struct {
	api      StatusAPI
	interval time.Duration
	now      func() time.Time

	mu         sync.RWMutex
	data       map[string]models.RegionTimeline
	lastUpdate time.Time
}

// NewStageCoordinator creates a coordinator that refetches at most once
// per interval.
func NewStageCoordinator(api StatusAPI, interval time.Duration) *StageCoordinator {
	return &StageCoordinator{
		api:      api,
		interval: interval,
		now:      time.Now,
		data:     make(map[string]models.RegionTimeline),
	}
}

// Refresh fetches the latest region statuses unless the previous fetch
// is still fresh, in which case the cached snapshot is returned as-is.
// On transient failure the last-good snapshot is kept.
func (c *StageCoordinator) Refresh() (map[string]models.RegionTimeline, *RefreshError) {
	now := c.now().UTC()

	c.mu.RLock()
	fresh := !c.lastUpdate.IsZero() && now.Sub(c.lastUpdate) < c.interval
	c.mu.RUnlock()
	if fresh {
		return c.Snapshot(), nil
	}

	resp, err := c.api.Status()
	if err != nil {
		refreshErr := &RefreshError{Kind: FailureTransient, Err: err}
		log.Printf("[stage] unable to get stage: %v", err)
		c.applyFailure(refreshErr)
		return c.Snapshot(), refreshErr
	}

	data := status.BuildTimelines(resp, now)

	c.mu.Lock()
	c.data = data
	c.lastUpdate = now
	c.mu.Unlock()

	return c.Snapshot(), nil
}

func (c *StageCoordinator) applyFailure(err *RefreshError) {
	if KeepLastGood(err) {
		return
	}
	c.mu.Lock()
	c.data = make(map[string]models.RegionTimeline)
	c.mu.Unlock()
}

// Snapshot returns the current timelines. An empty map means no stage
// data yet, which downstream consumers must tolerate.
func (c *StageCoordinator) Snapshot() map[string]models.RegionTimeline {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.RegionTimeline, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}
