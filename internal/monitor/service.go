package monitor

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"load-shedding-monitor/internal/coordinator"
	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/mq"
	"load-shedding-monitor/internal/sepush"
	"load-shedding-monitor/internal/stage"
)

// AlertLead is how far ahead of an outage start subscribers are warned.
const AlertLead = 30 * time.Minute

// Notifier publishes stage changes and outage alerts.
type Notifier interface {
	NotifyStageChange(regionID, regionName string, oldStage, newStage stage.Stage, when time.Time)
	NotifyOutageAlert(chatID int64, areaID, areaName string, s stage.Stage, start, end time.Time)
}

// Store is the slice of the database the monitor writes and reads.
type Store interface {
	GetAllAreas(ctx context.Context) ([]models.Area, error)
	GetSubscriptionsByArea(ctx context.Context, areaID string) ([]models.Subscription, error)
	SetSubscriptionNotifiedUpTo(ctx context.Context, id int64, t time.Time) error
	RecordOutages(ctx context.Context, areaID string, outages []models.StageInterval) error
}

// SnapshotStore holds the last-good snapshots the API serves from.
type SnapshotStore interface {
	SetTimelines(ctx context.Context, timelines map[string]models.RegionTimeline) error
	SetAreaData(ctx context.Context, areaID string, data models.AreaData) error
	SetForecast(ctx context.Context, areaID string, forecast []models.StageInterval) error
	SetQuota(ctx context.Context, allowance sepush.Allowance) error
}

// Service runs the refresh cycle: poll coordinators, persist last-good
// snapshots, record forecast history, and raise notifications.
type Service struct {
	stages   *coordinator.StageCoordinator
	areas    *coordinator.AreaCoordinator
	quota    *coordinator.QuotaCoordinator
	db       Store
	cache    SnapshotStore
	notifier Notifier
	now      func() time.Time

	// lastStages tracks each region's current stage from the previous
	// cycle so stage changes can be detected.
	lastStages map[string]stage.Stage
}

func NewService(stages *coordinator.StageCoordinator, areas *coordinator.AreaCoordinator, quota *coordinator.QuotaCoordinator, db Store, c SnapshotStore, notifier Notifier) *Service {
	return &Service{
		stages:     stages,
		areas:      areas,
		quota:      quota,
		db:         db,
		cache:      c,
		notifier:   notifier,
		now:        time.Now,
		lastStages: make(map[string]stage.Stage),
	}
}

// LoadAreas reads tracked areas from the database into the area
// coordinator.
func (s *Service) LoadAreas(ctx context.Context) error {
	areas, err := s.db.GetAllAreas(ctx)
	if err != nil {
		return err
	}
	s.areas.SetAreas(areas)
	log.Printf("[monitor] tracking %d areas", len(areas))
	return nil
}

// Start runs refresh cycles until ctx is cancelled. The first cycle
// runs immediately.
func (s *Service) Start(ctx context.Context, intervalSec int) {
	s.runCycle(ctx)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// StartRefreshListener consumes on-demand refresh requests from the bot.
func (s *Service) StartRefreshListener(ctx context.Context, consumer *mq.Consumer) {
	deliveries, err := consumer.Consume(mq.QueueRefreshRequest)
	if err != nil {
		log.Printf("[monitor] failed to consume refresh requests: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var req mq.RefreshRequestMsg
			if err := json.Unmarshal(d.Body, &req); err != nil {
				log.Printf("[monitor] bad refresh request: %v", err)
				d.Nack(false, false)
				continue
			}
			if err := s.areas.RefreshArea(req.AreaID); err != nil {
				log.Printf("[monitor] on-demand refresh of %s failed: %v", req.AreaID, err)
			}
			s.persistAreas(ctx, s.areas.Snapshot())
			d.Ack(false)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	timelines, stageErr := s.stages.Refresh()
	if stageErr == nil || coordinator.KeepLastGood(stageErr) {
		s.detectStageChanges(timelines)
		if err := s.cache.SetTimelines(ctx, timelines); err != nil {
			log.Printf("[monitor] failed to cache timelines: %v", err)
		}
	}

	areaSnap, areaErr := s.areas.Refresh()
	if areaErr == nil || coordinator.KeepLastGood(areaErr) {
		s.persistAreas(ctx, areaSnap)
	}

	s.sendOutageAlerts(ctx, areaSnap)

	if allowance, err := s.quota.Refresh(); err == nil {
		if err := s.cache.SetQuota(ctx, allowance); err != nil {
			log.Printf("[monitor] failed to cache quota: %v", err)
		}
	}
}

// detectStageChanges compares each region's current stage against the
// previous cycle and publishes changes.
func (s *Service) detectStageChanges(timelines map[string]models.RegionTimeline) {
	now := s.now().UTC()
	for regionID, tl := range timelines {
		current := currentStage(tl.Planned, now)
		prev, seen := s.lastStages[regionID]
		s.lastStages[regionID] = current
		if !seen || prev == current {
			continue
		}
		log.Printf("[monitor] region %s stage changed: %s -> %s", regionID, prev, current)
		s.notifier.NotifyStageChange(regionID, tl.Name, prev, current, now)
	}
}

// currentStage returns the stage active at the given instant, or
// NoLoadShedding if the timeline doesn't cover it.
func currentStage(planned []models.StageInterval, now time.Time) stage.Stage {
	for _, p := range planned {
		if !p.StartTime.After(now) && p.EndTime.After(now) {
			return p.Stage
		}
	}
	return stage.NoLoadShedding
}

func (s *Service) persistAreas(ctx context.Context, snap coordinator.AreaSnapshot) {
	for areaID, data := range snap.Data {
		if err := s.cache.SetAreaData(ctx, areaID, data); err != nil {
			log.Printf("[monitor] failed to cache area data for %s: %v", areaID, err)
		}
	}
	for areaID, fc := range snap.Forecasts {
		if err := s.cache.SetForecast(ctx, areaID, fc); err != nil {
			log.Printf("[monitor] failed to cache forecast for %s: %v", areaID, err)
		}
		if err := s.db.RecordOutages(ctx, areaID, fc); err != nil {
			log.Printf("[monitor] failed to record outages for %s: %v", areaID, err)
		}
	}
}

// sendOutageAlerts warns each subscription about the next outage window
// starting within AlertLead. NotifiedUpTo prevents duplicate alerts for
// the same window across cycles.
func (s *Service) sendOutageAlerts(ctx context.Context, snap coordinator.AreaSnapshot) {
	now := s.now().UTC()

	for _, area := range s.areas.Areas() {
		fc := snap.Forecasts[area.AreaID]
		if len(fc) == 0 {
			continue
		}

		sorted := make([]models.StageInterval, len(fc))
		copy(sorted, fc)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

		next, ok := nextUpcoming(sorted, now)
		if !ok || next.StartTime.Sub(now) > AlertLead {
			continue
		}

		subs, err := s.db.GetSubscriptionsByArea(ctx, area.AreaID)
		if err != nil {
			log.Printf("[monitor] failed to load subscriptions for %s: %v", area.AreaID, err)
			continue
		}
		for _, sub := range subs {
			if sub.NotifiedUpTo != nil && !sub.NotifiedUpTo.Before(next.StartTime) {
				continue
			}
			s.notifier.NotifyOutageAlert(sub.ChatID, area.AreaID, area.Name, next.Stage, next.StartTime, next.EndTime)
			if err := s.db.SetSubscriptionNotifiedUpTo(ctx, sub.ID, next.StartTime); err != nil {
				log.Printf("[monitor] failed to mark subscription %d notified: %v", sub.ID, err)
			}
		}
	}
}

// nextUpcoming returns the first interval that hasn't started yet.
func nextUpcoming(sorted []models.StageInterval, now time.Time) (models.StageInterval, bool) {
	for _, f := range sorted {
		if f.StartTime.After(now) {
			return f, true
		}
	}
	return models.StageInterval{}, false
}
