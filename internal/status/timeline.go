package status

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/sepush"
	"load-shedding-monitor/internal/stage"
)

// Horizon is the synthetic end applied to the last planned interval when
// the provider announces no further stage change.
const Horizon = 7 * 24 * time.Hour

// BuildTimelines converts a raw status payload into per-region planned
// stage timelines. The current stage (starting at stage_updated) is
// prepended to the announced changes; each interval ends where the next
// one starts; the final interval ends Horizon after it starts. Intervals
// that ended before now are pruned.
//
// Transport and JSON-level failures are the client's problem; here a
// record that fails semantic validation (unknown stage ordinal, bad
// timestamp) is logged and skipped rather than failing the batch.
func BuildTimelines(resp *sepush.StatusResponse, now time.Time) map[string]models.RegionTimeline {
	now = now.UTC().Truncate(time.Second)

	data := make(map[string]models.RegionTimeline, len(resp.Status))
	for regionID, region := range resp.Status {
		planned, err := buildRegion(region, now)
		if err != nil {
			log.Printf("[status] skipping region %s: %v", regionID, err)
			continue
		}
		data[regionID] = models.RegionTimeline{
			Name:    region.Name,
			Planned: planned,
		}
	}
	return data
}

func buildRegion(region sepush.RegionStatus, now time.Time) ([]models.StageInterval, error) {
	current, err := parseStageOrdinal(region.Stage)
	if err != nil {
		return nil, err
	}

	start, err := parseTimestamp(region.StageUpdated)
	if err != nil {
		return nil, fmt.Errorf("stage_updated: %w", err)
	}

	planned := []models.StageInterval{{Stage: current, StartTime: start}}

	for _, next := range region.NextStages {
		changeAt, err := parseTimestamp(next.StageStartTimestamp)
		if err != nil {
			return nil, fmt.Errorf("next_stages: %w", err)
		}

		// The announced change closes the previous interval.
		planned[len(planned)-1].EndTime = changeAt

		s, err := parseStageOrdinal(next.Stage)
		if err != nil {
			log.Printf("[status] skipping announced change with bad stage %q: %v", next.Stage, err)
			continue
		}
		planned = append(planned, models.StageInterval{Stage: s, StartTime: changeAt})
	}

	filtered := make([]models.StageInterval, 0, len(planned))
	for _, p := range planned {
		if p.EndTime.IsZero() {
			p.EndTime = p.StartTime.Add(Horizon)
		}
		if p.EndTime.Before(now) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

func parseStageOrdinal(raw string) (stage.Stage, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return stage.Unknown, fmt.Errorf("parse stage ordinal %q: %w", raw, err)
	}
	s := stage.FromInt(n)
	if s == stage.Unknown {
		return stage.Unknown, fmt.Errorf("unknown stage ordinal %d", n)
	}
	return s, nil
}

// parseTimestamp parses an ISO 8601 timestamp and truncates it to
// minute resolution in UTC, matching the provider's announcement
// granularity.
func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC().Truncate(time.Minute), nil
}
