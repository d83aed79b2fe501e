package handlers

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"load-shedding-monitor/internal/cache"
	"load-shedding-monitor/internal/database"
	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/stage"
)

// Handlers holds the API's dependencies. All reads are served from the
// Redis snapshots the worker maintains; the SePush API is never called
// from the request path.
type Handlers struct {
	DB    *database.DB
	Cache *cache.Cache
}

const (
	// DefaultHistoryLookback is the default time range for history queries.
	DefaultHistoryLookback = 7 * 24 * time.Hour
	// MaxHistoryRange is the maximum allowed time range for history queries.
	MaxHistoryRange = 90 * 24 * time.Hour
)

// RegisterRoutes registers all API routes on the given Fiber group.
func (h *Handlers) RegisterRoutes(api fiber.Router) {
	api.Get("/regions", h.GetRegions)
	api.Get("/regions/:region", h.GetRegionTimeline)
	api.Get("/areas", h.GetAreas)
	api.Post("/areas", h.CreateArea)
	api.Delete("/areas/:id", h.DeleteArea)
	api.Get("/areas/:id/forecast", h.GetForecast)
	api.Get("/areas/:id/schedule", h.GetSchedule)
	api.Get("/areas/:id/history", h.GetHistory)
	api.Get("/quota", h.GetQuota)
}

// GetRegions returns each region with its currently active stage.
func (h *Handlers) GetRegions(c *fiber.Ctx) error {
	timelines, err := h.Cache.GetTimelines(c.Context())
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "stage data not yet loaded",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stage data"})
	}

	now := time.Now().UTC()
	result := make([]fiber.Map, 0, len(timelines))
	for regionID, tl := range timelines {
		current := stage.NoLoadShedding
		for _, p := range tl.Planned {
			if !p.StartTime.After(now) && p.EndTime.After(now) {
				current = p.Stage
				break
			}
		}
		result = append(result, fiber.Map{
			"region_id":  regionID,
			"name":       tl.Name,
			"stage":      current,
			"stage_name": current.String(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i]["region_id"].(string) < result[j]["region_id"].(string)
	})
	return c.JSON(result)
}

// GetRegionTimeline returns the full planned stage timeline for a region.
func (h *Handlers) GetRegionTimeline(c *fiber.Ctx) error {
	region := c.Params("region")

	timelines, err := h.Cache.GetTimelines(c.Context())
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "stage data not yet loaded",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stage data"})
	}

	tl, ok := timelines[region]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "region not found",
		})
	}
	return c.JSON(fiber.Map{
		"region_id": region,
		"name":      tl.Name,
		"planned":   tl.Planned,
	})
}

// GetAreas returns all tracked areas.
func (h *Handlers) GetAreas(c *fiber.Ctx) error {
	areas, err := h.DB.GetAllAreas(context.Background())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load areas"})
	}
	if areas == nil {
		areas = []models.Area{}
	}
	return c.JSON(areas)
}

type createAreaRequest struct {
	AreaID       string `json:"area_id"`
	Name         string `json:"name"`
	RegionID     string `json:"region_id"`
	Municipality string `json:"municipality"`
	Province     string `json:"province"`
}

// CreateArea registers a new area to track. RegionID is required: the
// forecast is derived from that region's planned stage timeline.
func (h *Handlers) CreateArea(c *fiber.Ctx) error {
	var req createAreaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.AreaID == "" || req.Name == "" || req.RegionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "area_id, name and region_id are required",
		})
	}

	area, err := h.DB.UpsertArea(context.Background(), req.AreaID, req.Name, req.RegionID, req.Municipality, req.Province)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save area"})
	}
	return c.Status(fiber.StatusCreated).JSON(area)
}

// DeleteArea stops tracking an area.
func (h *Handlers) DeleteArea(c *fiber.Ctx) error {
	areaID := c.Params("id")
	if err := h.DB.DeleteArea(context.Background(), areaID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete area"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetForecast returns the outage forecast for an area, sorted by start
// time (the stored forecast is in derivation order).
func (h *Handlers) GetForecast(c *fiber.Ctx) error {
	areaID := c.Params("id")

	forecast, err := h.Cache.GetForecast(c.Context(), areaID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no forecast for this area yet",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load forecast"})
	}

	sort.Slice(forecast, func(i, j int) bool {
		return forecast[i].StartTime.Before(forecast[j].StartTime)
	})
	if forecast == nil {
		forecast = []models.StageInterval{}
	}
	return c.JSON(fiber.Map{
		"area_id":  areaID,
		"forecast": forecast,
	})
}

// GetSchedule returns the parsed weekly timetable and events for an area.
func (h *Handlers) GetSchedule(c *fiber.Ctx) error {
	areaID := c.Params("id")

	data, err := h.Cache.GetAreaData(c.Context(), areaID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no schedule for this area yet",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load schedule"})
	}
	return c.JSON(fiber.Map{
		"area_id":  areaID,
		"events":   data.Events,
		"schedule": data.Schedule,
	})
}

// GetHistory returns recorded outage windows for an area.
func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	areaID := c.Params("id")
	ctx := context.Background()

	if _, err := h.DB.GetArea(ctx, areaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "area not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load area"})
	}

	now := time.Now().UTC()
	from := now.Add(-DefaultHistoryLookback)
	to := now
	if v := c.QueryInt("from"); v > 0 {
		from = time.Unix(int64(v), 0).UTC()
	}
	if v := c.QueryInt("to"); v > 0 {
		to = time.Unix(int64(v), 0).UTC()
	}
	if to.Sub(from) > MaxHistoryRange {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "time range too large"})
	}

	records, err := h.DB.GetOutageHistory(ctx, areaID, from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load history"})
	}
	if records == nil {
		records = []models.OutageRecord{}
	}
	return c.JSON(records)
}

// GetQuota returns the remaining API allowance.
func (h *Handlers) GetQuota(c *fiber.Ctx) error {
	quota, err := h.Cache.GetQuota(c.Context())
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "quota not yet loaded",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load quota"})
	}
	return c.JSON(quota)
}
