package bot

// All user-facing bot messages in one place.

const msgStart = `<b>Welcome to Load Shedding Monitor!</b>

I track the national load shedding status and your local area schedules, and warn you before an outage window starts.

/subscribe - Subscribe to an area's outage alerts
/unsubscribe - Stop alerts for an area
/areas - List tracked areas
/stage - Current stage per region
/forecast - Outage forecast for your areas
/refresh - Force a schedule refresh for an area
/help - More details`

const msgHelp = `<b>How it works:</b>

1. Pick an area from /areas and /subscribe to it
2. I poll the load shedding API and derive the outage forecast for your area
3. About 30 minutes before an outage window starts, I send you an alert
4. When the region's stage changes, I let you know too

<b>Commands:</b>
/subscribe &lt;area_id&gt; [ping_host] — subscribe; the optional host is pinged during outage windows to confirm the power actually went out
/unsubscribe &lt;area_id&gt; — stop alerts for an area
/areas — all tracked areas with their IDs
/stage — current stage for each region
/forecast — upcoming outage windows for your areas
/refresh &lt;area_id&gt; — fetch the latest schedule now`

// ── Generic / errors ────────────────────────────────────────────────

const (
	msgError            = "Something went wrong. Please try again later."
	msgUsageSubscribe   = "Usage: /subscribe <area_id> [ping_host]"
	msgUsageUnsubscribe = "Usage: /unsubscribe <area_id>"
	msgUsageRefresh     = "Usage: /refresh <area_id>"
	msgAreaNotFound     = "Unknown area ID. See /areas for tracked areas."
	msgNoAreas          = "No areas are tracked yet."
	msgNoSubscriptions  = "You have no subscriptions. Use /subscribe <area_id> first."
	msgNoStageData      = "No stage data yet, try again in a minute."
	msgNoForecast       = "No outages forecast for your areas. \U0001F389"
	msgSubscribed       = "Subscribed to <b>%s</b>. I'll warn you before outage windows."
	msgUnsubscribed     = "Unsubscribed from <b>%s</b>."
	msgRefreshRequested = "Refresh requested for <b>%s</b>, give it a few seconds."
)

// ── Notifications ───────────────────────────────────────────────────

const (
	msgStageChange = "⚡ <b>%s</b>: stage changed from %s to <b>%s</b>"
	msgOutageAlert = "\U0001F50C <b>%s</b>: %s load shedding from <b>%s</b> to <b>%s</b>"
)
