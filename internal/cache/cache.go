package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/sepush"
)

const (
	timelineKey    = "ls:timelines"
	forecastPrefix = "ls:forecast:"
	areaDataPrefix = "ls:area:"
	quotaKey       = "ls:quota"
)

// ErrNotFound is returned when a snapshot hasn't been stored yet.
var ErrNotFound = errors.New("cache: not found")

// Cache stores last-good snapshots in Redis so the API can serve
// without touching the SePush API or waiting for the worker.
type Cache struct {
	Client *redis.Client
}

func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{Client: client}, nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// SetTimelines stores the planned stage timelines for all regions.
func (c *Cache) SetTimelines(ctx context.Context, timelines map[string]models.RegionTimeline) error {
	return c.setJSON(ctx, timelineKey, timelines)
}

// GetTimelines returns the stored stage timelines.
func (c *Cache) GetTimelines(ctx context.Context) (map[string]models.RegionTimeline, error) {
	var out map[string]models.RegionTimeline
	if err := c.getJSON(ctx, timelineKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetForecast stores the derived forecast for one area.
func (c *Cache) SetForecast(ctx context.Context, areaID string, forecast []models.StageInterval) error {
	return c.setJSON(ctx, forecastPrefix+areaID, forecast)
}

// GetForecast returns the stored forecast for one area.
func (c *Cache) GetForecast(ctx context.Context, areaID string) ([]models.StageInterval, error) {
	var out []models.StageInterval
	if err := c.getJSON(ctx, forecastPrefix+areaID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetAreaData stores the parsed schedule and events for one area.
func (c *Cache) SetAreaData(ctx context.Context, areaID string, data models.AreaData) error {
	return c.setJSON(ctx, areaDataPrefix+areaID, data)
}

// GetAreaData returns the parsed schedule and events for one area.
func (c *Cache) GetAreaData(ctx context.Context, areaID string) (*models.AreaData, error) {
	var out models.AreaData
	if err := c.getJSON(ctx, areaDataPrefix+areaID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetQuota stores the remaining API allowance.
func (c *Cache) SetQuota(ctx context.Context, allowance sepush.Allowance) error {
	return c.setJSON(ctx, quotaKey, allowance)
}

// GetQuota returns the remaining API allowance.
func (c *Cache) GetQuota(ctx context.Context) (*sepush.Allowance, error) {
	var out sepush.Allowance
	if err := c.getJSON(ctx, quotaKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.Client.Set(ctx, key, data, 0).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, out any) error {
	data, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
