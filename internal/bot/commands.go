package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	tele "gopkg.in/telebot.v3"

	"load-shedding-monitor/internal/cache"
)

// sastZone renders times in the provider's local zone for users.
var sastZone = time.FixedZone("SAST", 2*60*60)

func (b *Bot) handleStart(c tele.Context) error {
	log.Printf("[bot] /start from user %d (@%s)", c.Sender().ID, c.Sender().Username)
	return c.Send(msgStart, htmlOpts)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(msgHelp, htmlOpts)
}

func (b *Bot) handleSubscribe(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 || len(args) > 2 {
		return c.Send(msgUsageSubscribe)
	}
	areaID := args[0]
	pingTarget := ""
	if len(args) == 2 {
		pingTarget = args[1]
	}

	ctx := context.Background()
	area, err := b.db.GetArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Send(msgAreaNotFound)
		}
		log.Printf("[bot] get area error: %v", err)
		return c.Send(msgError)
	}

	if _, err := b.db.Subscribe(ctx, c.Chat().ID, areaID, pingTarget); err != nil {
		log.Printf("[bot] subscribe error: %v", err)
		return c.Send(msgError)
	}

	log.Printf("[bot] chat %d subscribed to %s", c.Chat().ID, areaID)
	return c.Send(fmt.Sprintf(msgSubscribed, html.EscapeString(area.Name)), htmlOpts)
}

func (b *Bot) handleUnsubscribe(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send(msgUsageUnsubscribe)
	}
	areaID := args[0]

	ctx := context.Background()
	area, err := b.db.GetArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Send(msgAreaNotFound)
		}
		log.Printf("[bot] get area error: %v", err)
		return c.Send(msgError)
	}

	if err := b.db.Unsubscribe(ctx, c.Chat().ID, areaID); err != nil {
		log.Printf("[bot] unsubscribe error: %v", err)
		return c.Send(msgError)
	}
	return c.Send(fmt.Sprintf(msgUnsubscribed, html.EscapeString(area.Name)), htmlOpts)
}

func (b *Bot) handleAreas(c tele.Context) error {
	ctx := context.Background()
	areas, err := b.db.GetAllAreas(ctx)
	if err != nil {
		log.Printf("[bot] get areas error: %v", err)
		return c.Send(msgError)
	}
	if len(areas) == 0 {
		return c.Send(msgNoAreas)
	}

	var bld strings.Builder
	bld.WriteString("<b>Tracked areas:</b>\n")
	for _, a := range areas {
		fmt.Fprintf(&bld, "• %s — <code>%s</code> (%s)\n",
			html.EscapeString(a.Name), html.EscapeString(a.AreaID), html.EscapeString(a.RegionID))
	}
	return c.Send(bld.String(), htmlOpts)
}

func (b *Bot) handleStage(c tele.Context) error {
	ctx := context.Background()
	timelines, err := b.cache.GetTimelines(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Send(msgNoStageData)
		}
		log.Printf("[bot] get timelines error: %v", err)
		return c.Send(msgError)
	}

	regionIDs := make([]string, 0, len(timelines))
	for id := range timelines {
		regionIDs = append(regionIDs, id)
	}
	sort.Strings(regionIDs)

	now := time.Now().UTC()
	var bld strings.Builder
	bld.WriteString("<b>Current stages:</b>\n")
	for _, id := range regionIDs {
		tl := timelines[id]
		current := "No Load Shedding"
		for _, p := range tl.Planned {
			if !p.StartTime.After(now) && p.EndTime.After(now) {
				current = p.Stage.String()
				break
			}
		}
		fmt.Fprintf(&bld, "• %s: <b>%s</b>\n", html.EscapeString(tl.Name), current)
	}
	return c.Send(bld.String(), htmlOpts)
}

func (b *Bot) handleForecast(c tele.Context) error {
	ctx := context.Background()
	subs, err := b.db.GetSubscriptionsByChat(ctx, c.Chat().ID)
	if err != nil {
		log.Printf("[bot] get subscriptions error: %v", err)
		return c.Send(msgError)
	}
	if len(subs) == 0 {
		return c.Send(msgNoSubscriptions)
	}

	var bld strings.Builder
	total := 0
	for _, sub := range subs {
		forecast, err := b.cache.GetForecast(ctx, sub.AreaID)
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			log.Printf("[bot] get forecast for %s error: %v", sub.AreaID, err)
			continue
		}
		if len(forecast) == 0 {
			continue
		}

		sort.Slice(forecast, func(i, j int) bool {
			return forecast[i].StartTime.Before(forecast[j].StartTime)
		})

		area, err := b.db.GetArea(ctx, sub.AreaID)
		name := sub.AreaID
		if err == nil {
			name = area.Name
		}

		fmt.Fprintf(&bld, "<b>%s</b>\n", html.EscapeString(name))
		for _, f := range forecast {
			fmt.Fprintf(&bld, "• %s: %s – %s\n",
				f.Stage,
				f.StartTime.In(sastZone).Format("Mon 15:04"),
				f.EndTime.In(sastZone).Format("Mon 15:04"))
			total++
		}
	}
	if total == 0 {
		return c.Send(msgNoForecast)
	}
	return c.Send(bld.String(), htmlOpts)
}

func (b *Bot) handleRefresh(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send(msgUsageRefresh)
	}
	areaID := args[0]

	ctx := context.Background()
	area, err := b.db.GetArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Send(msgAreaNotFound)
		}
		log.Printf("[bot] get area error: %v", err)
		return c.Send(msgError)
	}

	if err := b.refresher.RequestRefresh(ctx, areaID, c.Chat().ID); err != nil {
		log.Printf("[bot] refresh request error: %v", err)
		return c.Send(msgError)
	}
	return c.Send(fmt.Sprintf(msgRefreshRequested, html.EscapeString(area.Name)), htmlOpts)
}
