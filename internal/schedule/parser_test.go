package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load-shedding-monitor/internal/sepush"
	"load-shedding-monitor/internal/stage"
)

func TestParseAreaDataSlotConversion(t *testing.T) {
	resp := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{
					Date: "2024-06-01",
					Stages: [][]string{
						{"06:00-08:30"}, // stage 1
					},
				},
			},
		},
	}

	got, err := ParseAreaData(resp)
	require.NoError(t, err)

	slots := got.Schedule[stage.Stage1]
	require.Len(t, slots, 1)
	// 06:00 SAST (UTC+2) on 2024-06-01 is 04:00 UTC.
	assert.Equal(t, time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC), slots[0].EndTime)
}

func TestParseAreaDataMidnightWrap(t *testing.T) {
	// "22:00-00:30" on 2024-06-01: the end precedes the start in local
	// wall-clock, so a day is added before UTC conversion. 22:00 SAST =
	// 20:00 UTC on the 1st; 00:30 SAST on the 2nd = 22:30 UTC on the 1st.
	resp := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{
					Date:   "2024-06-01",
					Stages: [][]string{{}, {"22:00-00:30"}}, // stage 2
				},
			},
		},
	}

	got, err := ParseAreaData(resp)
	require.NoError(t, err)

	slots := got.Schedule[stage.Stage2]
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC), slots[0].EndTime)
}

func TestParseAreaDataStageIndexMapping(t *testing.T) {
	resp := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{
					Date: "2024-06-01",
					Stages: [][]string{
						{"02:00-04:30"},
						{"02:00-04:30", "10:00-12:30"},
						{},
						{"02:00-04:30", "10:00-12:30", "18:00-20:30"},
					},
				},
			},
		},
	}

	got, err := ParseAreaData(resp)
	require.NoError(t, err)

	assert.Len(t, got.Schedule[stage.Stage1], 1)
	assert.Len(t, got.Schedule[stage.Stage2], 2)
	assert.Empty(t, got.Schedule[stage.Stage3])
	assert.Len(t, got.Schedule[stage.Stage4], 3)
}

func TestParseAreaDataAppendsAcrossDaysInOrder(t *testing.T) {
	resp := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{Date: "2024-06-02", Stages: [][]string{{"06:00-08:30"}}},
				{Date: "2024-06-01", Stages: [][]string{{"06:00-08:30"}}},
			},
		},
	}

	got, err := ParseAreaData(resp)
	require.NoError(t, err)

	// Slots keep provider day order; no global sort is promised.
	slots := got.Schedule[stage.Stage1]
	require.Len(t, slots, 2)
	assert.True(t, slots[0].StartTime.After(slots[1].StartTime))
}

func TestParseAreaDataEvents(t *testing.T) {
	resp := &sepush.AreaResponse{
		Events: []sepush.Event{
			{
				Note:  "Stage 6 (21:00-23:30)",
				Start: "2024-06-01T21:00:00+02:00",
				End:   "2024-06-01T23:30:00+02:00",
			},
			{
				Note:  "Load Reduction",
				Start: "2024-06-02T05:00:00+02:00",
				End:   "2024-06-02T07:00:00+02:00",
			},
			{
				Note:  "unparseable nonsense",
				Start: "2024-06-02T08:00:00+02:00",
				End:   "2024-06-02T09:00:00+02:00",
			},
		},
	}

	got, err := ParseAreaData(resp)
	require.NoError(t, err)
	require.Len(t, got.Events, 3)

	assert.Equal(t, stage.Stage6, got.Events[0].Stage)
	assert.Equal(t, time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC), got.Events[0].StartTime)
	assert.Equal(t, stage.LoadReduction, got.Events[1].Stage)
	// Lenient fallback, never an error.
	assert.Equal(t, stage.NoLoadShedding, got.Events[2].Stage)
}

func TestParseAreaDataRejectsMalformedSlot(t *testing.T) {
	resp := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{Date: "2024-06-01", Stages: [][]string{{"0600 to 0830"}}},
			},
		},
	}

	_, err := ParseAreaData(resp)
	assert.Error(t, err)
}

func TestParseAreaDataRejectsBadDate(t *testing.T) {
	resp := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{Date: "01/06/2024", Stages: [][]string{{"06:00-08:30"}}},
			},
		},
	}

	_, err := ParseAreaData(resp)
	assert.Error(t, err)
}
