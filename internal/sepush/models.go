package sepush

// StatusResponse is the top-level payload from /status.
type StatusResponse struct {
	// Status is keyed by region ID (e.g. "eskom", "capetown").
	Status map[string]RegionStatus `json:"status"`
}

// RegionStatus is one region's reported stage plus announced changes.
type RegionStatus struct {
	Name string `json:"name"`
	// Stage is the current stage ordinal as a decimal string.
	Stage string `json:"stage"`
	// StageUpdated is when the current stage took effect (ISO 8601).
	StageUpdated string      `json:"stage_updated"`
	NextStages   []NextStage `json:"next_stages"`
}

// NextStage is an announced future stage change.
type NextStage struct {
	Stage               string `json:"stage"`
	StageStartTimestamp string `json:"stage_start_timestamp"`
}

// AreaResponse is the payload from /area for a single area.
type AreaResponse struct {
	Events   []Event  `json:"events"`
	Info     AreaInfo `json:"info"`
	Schedule Schedule `json:"schedule"`
}

// Event is an ad-hoc provider-confirmed outage. The stage is embedded in
// the free-text note.
type Event struct {
	Note  string `json:"note"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// AreaInfo carries display metadata for an area.
type AreaInfo struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Schedule is the weekly timetable for an area, one entry per upcoming day.
type Schedule struct {
	Days   []ScheduleDay `json:"days"`
	Source string        `json:"source"`
}

// ScheduleDay lists outage slots per stage for one calendar date.
// Stages is indexed by stage ordinal minus one; each inner list holds
// "HH:MM-HH:MM" slot strings in local (SAST) time.
type ScheduleDay struct {
	Date   string     `json:"date"`
	Name   string     `json:"name"`
	Stages [][]string `json:"stages"`
}

// AllowanceResponse is the payload from /api_allowance.
type AllowanceResponse struct {
	Allowance Allowance `json:"allowance"`
}

// Allowance is the remaining API call budget for the configured token.
type Allowance struct {
	Count int    `json:"count"`
	Limit int    `json:"limit"`
	Type  string `json:"type"`
}
