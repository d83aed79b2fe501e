package powercheck

import (
	"context"
	"log"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"load-shedding-monitor/internal/database"
	"load-shedding-monitor/internal/models"
)

// PingHost sends ICMP pings to the target and returns true if reachable.
func PingHost(target string) bool {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		log.Printf("[powercheck] failed to create pinger for %s: %v", target, err)
		return false
	}
	pinger.Count = 3
	pinger.Timeout = 5 * time.Second
	pinger.SetPrivileged(true)
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// ForecastSource provides the current forecast for an area.
type ForecastSource interface {
	Forecast(areaID string) []models.StageInterval
}

// Verifier pings subscriber-registered hosts during forecast outage
// windows and records whether the outage actually materialized.
type Verifier struct {
	db        *database.DB
	forecasts ForecastSource
	pingFn    func(target string) bool
	now       func() time.Time
}

// NewVerifier creates a verifier over the given forecast source.
func NewVerifier(db *database.DB, forecasts ForecastSource) *Verifier {
	return &Verifier{
		db:        db,
		forecasts: forecasts,
		pingFn:    PingHost,
		now:       time.Now,
	}
}

// Start runs the verification loop. intervalSec controls how often it fires.
func (v *Verifier) Start(ctx context.Context, intervalSec int) {
	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	v.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.run(ctx)
		}
	}
}

func (v *Verifier) run(ctx context.Context) {
	subs, err := v.db.GetSubscriptionsWithPingTarget(ctx)
	if err != nil {
		log.Printf("[powercheck] failed to query subscriptions: %v", err)
		return
	}

	now := v.now().UTC()
	checked := make(map[string]bool)

	for _, sub := range subs {
		if !v.inOutageWindow(sub.AreaID, now) {
			continue
		}
		// One area verdict per cycle is enough even with many subscribers.
		if _, done := checked[sub.AreaID]; done {
			continue
		}

		reachable := v.pingFn(sub.PingTarget)
		checked[sub.AreaID] = reachable

		// Unreachable host during a forecast window confirms the outage.
		if err := v.db.ConfirmOutage(ctx, sub.AreaID, now, !reachable); err != nil {
			log.Printf("[powercheck] failed to record verdict for %s: %v", sub.AreaID, err)
			continue
		}
		log.Printf("[powercheck] area %s: host %s reachable=%t during forecast window", sub.AreaID, sub.PingTarget, reachable)
	}
}

func (v *Verifier) inOutageWindow(areaID string, now time.Time) bool {
	for _, f := range v.forecasts.Forecast(areaID) {
		if !f.StartTime.After(now) && f.EndTime.After(now) {
			return true
		}
	}
	return false
}
