package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/stage"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the schema if it doesn't exist.
func (db *DB) Migrate(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS areas (
		id           BIGSERIAL PRIMARY KEY,
		area_id      TEXT UNIQUE NOT NULL,
		name         TEXT NOT NULL,
		region_id    TEXT NOT NULL,
		municipality TEXT NOT NULL DEFAULT '',
		province     TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id             BIGSERIAL PRIMARY KEY,
		chat_id        BIGINT NOT NULL,
		area_id        TEXT NOT NULL REFERENCES areas(area_id) ON DELETE CASCADE,
		ping_target    TEXT NOT NULL DEFAULT '',
		notified_up_to TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (chat_id, area_id)
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_chat_id ON subscriptions(chat_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_area_id ON subscriptions(area_id);

	CREATE TABLE IF NOT EXISTS outage_records (
		id         BIGSERIAL PRIMARY KEY,
		area_id    TEXT NOT NULL REFERENCES areas(area_id) ON DELETE CASCADE,
		stage      INT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time   TIMESTAMPTZ NOT NULL,
		confirmed  BOOLEAN,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (area_id, stage, start_time, end_time)
	);

	CREATE INDEX IF NOT EXISTS idx_outage_records_area_time
		ON outage_records (area_id, start_time DESC);
	`
	_, err := db.Pool.Exec(ctx, sql)
	return err
}

// UpsertArea creates or updates a tracked area and returns its record.
func (db *DB) UpsertArea(ctx context.Context, areaID, name, regionID, municipality, province string) (*models.Area, error) {
	var a models.Area
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO areas (area_id, name, region_id, municipality, province)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (area_id) DO UPDATE
			SET name = $2, region_id = $3, municipality = $4, province = $5
		RETURNING id, area_id, name, region_id, municipality, province, created_at
	`, areaID, name, regionID, municipality, province).Scan(
		&a.ID, &a.AreaID, &a.Name, &a.RegionID, &a.Municipality, &a.Province, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAllAreas returns every tracked area.
func (db *DB) GetAllAreas(ctx context.Context) ([]models.Area, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, area_id, name, region_id, municipality, province, created_at
		FROM areas ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []models.Area
	for rows.Next() {
		var a models.Area
		if err := rows.Scan(&a.ID, &a.AreaID, &a.Name, &a.RegionID, &a.Municipality, &a.Province, &a.CreatedAt); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// GetArea returns one tracked area by its external area ID.
func (db *DB) GetArea(ctx context.Context, areaID string) (*models.Area, error) {
	var a models.Area
	err := db.Pool.QueryRow(ctx, `
		SELECT id, area_id, name, region_id, municipality, province, created_at
		FROM areas WHERE area_id = $1
	`, areaID).Scan(&a.ID, &a.AreaID, &a.Name, &a.RegionID, &a.Municipality, &a.Province, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteArea removes a tracked area and its subscriptions.
func (db *DB) DeleteArea(ctx context.Context, areaID string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM areas WHERE area_id = $1`, areaID)
	return err
}

// Subscribe links a chat to an area, optionally with a ping target used
// to verify outages.
func (db *DB) Subscribe(ctx context.Context, chatID int64, areaID, pingTarget string) (*models.Subscription, error) {
	var s models.Subscription
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO subscriptions (chat_id, area_id, ping_target)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, area_id) DO UPDATE SET ping_target = $3
		RETURNING id, chat_id, area_id, ping_target, notified_up_to, created_at
	`, chatID, areaID, pingTarget).Scan(
		&s.ID, &s.ChatID, &s.AreaID, &s.PingTarget, &s.NotifiedUpTo, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Unsubscribe removes a chat's subscription to an area.
func (db *DB) Unsubscribe(ctx context.Context, chatID int64, areaID string) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM subscriptions WHERE chat_id = $1 AND area_id = $2`, chatID, areaID)
	return err
}

// GetSubscriptionsByChat returns all of a chat's subscriptions.
func (db *DB) GetSubscriptionsByChat(ctx context.Context, chatID int64) ([]models.Subscription, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, chat_id, area_id, ping_target, notified_up_to, created_at
		FROM subscriptions WHERE chat_id = $1 ORDER BY created_at
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

// GetSubscriptionsByArea returns all subscriptions for an area.
func (db *DB) GetSubscriptionsByArea(ctx context.Context, areaID string) ([]models.Subscription, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, chat_id, area_id, ping_target, notified_up_to, created_at
		FROM subscriptions WHERE area_id = $1
	`, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

// GetChatIDsByRegion returns the distinct chats subscribed to any area
// in the given region.
func (db *DB) GetChatIDsByRegion(ctx context.Context, regionID string) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT s.chat_id
		FROM subscriptions s
		JOIN areas a ON a.area_id = s.area_id
		WHERE a.region_id = $1
	`, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chats = append(chats, id)
	}
	return chats, rows.Err()
}

// GetSubscriptionsWithPingTarget returns subscriptions that registered a
// host for outage verification.
func (db *DB) GetSubscriptionsWithPingTarget(ctx context.Context) ([]models.Subscription, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, chat_id, area_id, ping_target, notified_up_to, created_at
		FROM subscriptions WHERE ping_target <> ''
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

// SetSubscriptionNotifiedUpTo advances the high-water mark of outage
// starts already notified to a subscription.
func (db *DB) SetSubscriptionNotifiedUpTo(ctx context.Context, id int64, t time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE subscriptions SET notified_up_to = $2 WHERE id = $1`, id, t)
	return err
}

func scanSubscriptions(rows pgx.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.ChatID, &s.AreaID, &s.PingTarget, &s.NotifiedUpTo, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// RecordOutages inserts forecast outage windows for an area, ignoring
// windows already recorded.
func (db *DB) RecordOutages(ctx context.Context, areaID string, outages []models.StageInterval) error {
	for _, o := range outages {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO outage_records (area_id, stage, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (area_id, stage, start_time, end_time) DO NOTHING
		`, areaID, int(o.Stage), o.StartTime, o.EndTime)
		if err != nil {
			return fmt.Errorf("record outage for %s: %w", areaID, err)
		}
	}
	return nil
}

// GetOutageHistory returns recorded outage windows for an area within
// the given time range, newest first.
func (db *DB) GetOutageHistory(ctx context.Context, areaID string, from, to time.Time) ([]models.OutageRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, area_id, stage, start_time, end_time, confirmed, created_at
		FROM outage_records
		WHERE area_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time DESC
	`, areaID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.OutageRecord
	for rows.Next() {
		var r models.OutageRecord
		var st int
		if err := rows.Scan(&r.ID, &r.AreaID, &st, &r.StartTime, &r.EndTime, &r.Confirmed, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Stage = stage.Stage(st)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ConfirmOutage marks whether a recorded outage window actually
// materialized, based on a power verification ping.
func (db *DB) ConfirmOutage(ctx context.Context, areaID string, at time.Time, confirmed bool) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE outage_records SET confirmed = $3
		WHERE area_id = $1 AND start_time <= $2 AND end_time > $2 AND confirmed IS NULL
	`, areaID, at, confirmed)
	return err
}
