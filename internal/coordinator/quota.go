package coordinator

import (
	"log"
	"sync"
	"time"

	"load-shedding-monitor/internal/sepush"
)

// AllowanceAPI is the slice of the sepush client the quota coordinator needs.
type AllowanceAPI interface {
	CheckAllowance() (*sepush.AllowanceResponse, error)
}

// QuotaCoordinator tracks the remaining API call budget.
type QuotaCoordinator struct {
	api      AllowanceAPI
	interval time.Duration
	now      func() time.Time

	mu         sync.RWMutex
	allowance  sepush.Allowance
	loaded     bool
	lastUpdate time.Time
}

// NewQuotaCoordinator creates a coordinator refetching the allowance at
// most once per interval.
func NewQuotaCoordinator(api AllowanceAPI, interval time.Duration) *QuotaCoordinator {
	return &QuotaCoordinator{
		api:      api,
		interval: interval,
		now:      time.Now,
	}
}

// Refresh fetches the current allowance unless the cached value is
// still fresh. Quota exhaustion surfaces as an ordinary transport
// failure; the last-good value is kept.
func (c *QuotaCoordinator) Refresh() (sepush.Allowance, *RefreshError) {
	now := c.now().UTC()

	c.mu.RLock()
	fresh := !c.lastUpdate.IsZero() && now.Sub(c.lastUpdate) < c.interval
	c.mu.RUnlock()
	if fresh {
		return c.Snapshot(), nil
	}

	resp, err := c.api.CheckAllowance()
	if err != nil {
		log.Printf("[quota] unable to get allowance: %v", err)
		return c.Snapshot(), &RefreshError{Kind: FailureTransient, Err: err}
	}

	c.mu.Lock()
	c.allowance = resp.Allowance
	c.loaded = true
	c.lastUpdate = now
	c.mu.Unlock()

	return resp.Allowance, nil
}

// Snapshot returns the cached allowance.
func (c *QuotaCoordinator) Snapshot() sepush.Allowance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allowance
}

// Loaded reports whether an allowance has ever been fetched.
func (c *QuotaCoordinator) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
