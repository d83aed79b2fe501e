package coordinator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load-shedding-monitor/internal/models"
	"load-shedding-monitor/internal/sepush"
	"load-shedding-monitor/internal/stage"
)

type fakeStatusAPI struct {
	calls int
	resp  *sepush.StatusResponse
	err   error
}

func (f *fakeStatusAPI) Status() (*sepush.StatusResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeAreaAPI struct {
	calls int
	resp  map[string]*sepush.AreaResponse
	err   error
	errs  map[string]error
}

func (f *fakeAreaAPI) Area(id string) (*sepush.AreaResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.resp[id], nil
}

type fakeAllowanceAPI struct {
	calls int
	resp  *sepush.AllowanceResponse
	err   error
}

func (f *fakeAllowanceAPI) CheckAllowance() (*sepush.AllowanceResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func statusResponse() *sepush.StatusResponse {
	return &sepush.StatusResponse{
		Status: map[string]sepush.RegionStatus{
			"eskom": {
				Name:         "National",
				Stage:        "2",
				StageUpdated: "2024-06-01T08:00:00Z",
			},
		},
	}
}

func areaResponse() *sepush.AreaResponse {
	return &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{
				{
					Date:   "2024-06-01",
					Stages: [][]string{{}, {"10:00-12:30"}},
				},
			},
		},
	}
}

func frozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestStageCoordinatorCachesWithinInterval(t *testing.T) {
	api := &fakeStatusAPI{resp: statusResponse()}
	c := NewStageCoordinator(api, time.Minute)
	c.now = frozenClock(testNow)

	_, err := c.Refresh()
	require.Nil(t, err)
	assert.Equal(t, 1, api.calls)

	// Second refresh within the interval: served from cache.
	c.now = frozenClock(testNow.Add(30 * time.Second))
	snap, err := c.Refresh()
	require.Nil(t, err)
	assert.Equal(t, 1, api.calls)
	assert.Contains(t, snap, "eskom")

	// Past the interval: refetches.
	c.now = frozenClock(testNow.Add(2 * time.Minute))
	_, err = c.Refresh()
	require.Nil(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestStageCoordinatorKeepsLastGoodOnTransientFailure(t *testing.T) {
	api := &fakeStatusAPI{resp: statusResponse()}
	c := NewStageCoordinator(api, time.Minute)
	c.now = frozenClock(testNow)

	_, err := c.Refresh()
	require.Nil(t, err)

	api.err = errors.New("connection reset")
	c.now = frozenClock(testNow.Add(2 * time.Minute))
	snap, refreshErr := c.Refresh()

	require.NotNil(t, refreshErr)
	assert.Equal(t, FailureTransient, refreshErr.Kind)
	assert.Contains(t, snap, "eskom", "last-good snapshot must survive a transient failure")
}

func TestStageCoordinatorEmptySnapshotBeforeFirstRefresh(t *testing.T) {
	c := NewStageCoordinator(&fakeStatusAPI{resp: statusResponse()}, time.Minute)
	assert.Empty(t, c.Snapshot())
}

func TestAreaCoordinatorDerivesForecast(t *testing.T) {
	stageAPI := &fakeStatusAPI{resp: statusResponse()}
	stages := NewStageCoordinator(stageAPI, time.Minute)
	stages.now = frozenClock(testNow)
	_, err := stages.Refresh()
	require.Nil(t, err)

	areaAPI := &fakeAreaAPI{resp: map[string]*sepush.AreaResponse{"area-1": areaResponse()}}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Test Area", RegionID: "eskom"})

	snap, refreshErr := c.Refresh()
	require.Nil(t, refreshErr)

	fc := snap.Forecasts["area-1"]
	require.Len(t, fc, 1)
	assert.Equal(t, stage.Stage2, fc[0].Stage)
	// 10:00-12:30 SAST = 08:00-10:30 UTC, clipped start to the planned
	// interval's 08:00 start (equal, so unchanged).
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), fc[0].StartTime)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC), fc[0].EndTime)
}

func TestAreaCoordinatorToleratesMissingStageData(t *testing.T) {
	// Upstream coordinator never refreshed: empty timelines must mean
	// "no forecast", not an error.
	stages := NewStageCoordinator(&fakeStatusAPI{resp: statusResponse()}, time.Minute)

	areaAPI := &fakeAreaAPI{resp: map[string]*sepush.AreaResponse{"area-1": areaResponse()}}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Test Area", RegionID: "eskom"})

	snap, refreshErr := c.Refresh()
	require.Nil(t, refreshErr)
	assert.Empty(t, snap.Forecasts["area-1"])
	assert.Contains(t, snap.Data, "area-1")
}

func TestAreaCoordinatorRecomputesForecastOnCachedPath(t *testing.T) {
	stageAPI := &fakeStatusAPI{resp: statusResponse()}
	stages := NewStageCoordinator(stageAPI, time.Minute)
	stages.now = frozenClock(testNow)

	areaAPI := &fakeAreaAPI{resp: map[string]*sepush.AreaResponse{"area-1": areaResponse()}}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Test Area", RegionID: "eskom"})

	// First refresh before any stage data exists.
	snap, _ := c.Refresh()
	assert.Empty(t, snap.Forecasts["area-1"])
	assert.Equal(t, 1, areaAPI.calls)

	// Stage data arrives; the cached-path refresh must still produce a
	// forecast without refetching area data.
	_, err := stages.Refresh()
	require.Nil(t, err)

	c.now = frozenClock(testNow.Add(time.Minute))
	snap, refreshErr := c.Refresh()
	require.Nil(t, refreshErr)
	assert.Equal(t, 1, areaAPI.calls, "area data must come from cache")
	assert.Len(t, snap.Forecasts["area-1"], 1)
}

func TestAreaCoordinatorKeepsLastGoodPerArea(t *testing.T) {
	stages := NewStageCoordinator(&fakeStatusAPI{resp: statusResponse()}, time.Minute)

	areaAPI := &fakeAreaAPI{resp: map[string]*sepush.AreaResponse{"area-1": areaResponse()}}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Test Area", RegionID: "eskom"})

	_, refreshErr := c.Refresh()
	require.Nil(t, refreshErr)

	areaAPI.err = errors.New("timeout")
	c.now = frozenClock(testNow.Add(2 * time.Hour))
	snap, refreshErr := c.Refresh()

	require.NotNil(t, refreshErr)
	assert.Equal(t, FailureTransient, refreshErr.Kind)
	assert.Contains(t, snap.Data, "area-1", "transient failure keeps last-good area data")
}

func TestAreaCoordinatorClearsAreaOnValidationFailure(t *testing.T) {
	stages := NewStageCoordinator(&fakeStatusAPI{resp: statusResponse()}, time.Minute)

	bad := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{{Date: "garbage", Stages: [][]string{{"06:00-08:30"}}}},
		},
	}
	areaAPI := &fakeAreaAPI{resp: map[string]*sepush.AreaResponse{"area-1": areaResponse()}}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Test Area", RegionID: "eskom"})

	_, refreshErr := c.Refresh()
	require.Nil(t, refreshErr)

	areaAPI.resp["area-1"] = bad
	c.now = frozenClock(testNow.Add(2 * time.Hour))
	snap, refreshErr := c.Refresh()

	require.NotNil(t, refreshErr)
	assert.Equal(t, FailureValidation, refreshErr.Kind)
	assert.NotContains(t, snap.Data, "area-1", "validation failure clears stale data")
}

func TestAreaCoordinatorJoinsMixedFailures(t *testing.T) {
	stages := NewStageCoordinator(&fakeStatusAPI{resp: statusResponse()}, time.Minute)

	bad := &sepush.AreaResponse{
		Schedule: sepush.Schedule{
			Days: []sepush.ScheduleDay{{Date: "garbage", Stages: [][]string{{"06:00-08:30"}}}},
		},
	}
	areaAPI := &fakeAreaAPI{
		resp: map[string]*sepush.AreaResponse{"area-1": bad},
		errs: map[string]error{"area-2": errors.New("timeout")},
	}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Bad Payload", RegionID: "eskom"})
	c.AddArea(models.Area{AreaID: "area-2", Name: "Unreachable", RegionID: "eskom"})

	_, refreshErr := c.Refresh()
	require.NotNil(t, refreshErr)

	// A later transient failure must not mask an earlier validation one,
	// and both causes stay inspectable.
	assert.Equal(t, FailureValidation, refreshErr.Kind)
	assert.Contains(t, refreshErr.Error(), "garbage")
	assert.Contains(t, refreshErr.Error(), "timeout")
}

func TestAreaCoordinatorRefreshAreaBypassesInterval(t *testing.T) {
	stages := NewStageCoordinator(&fakeStatusAPI{resp: statusResponse()}, time.Minute)

	areaAPI := &fakeAreaAPI{resp: map[string]*sepush.AreaResponse{"area-1": areaResponse()}}
	c := NewAreaCoordinator(areaAPI, stages, time.Hour, 30*time.Minute)
	c.now = frozenClock(testNow)
	c.AddArea(models.Area{AreaID: "area-1", Name: "Test Area", RegionID: "eskom"})

	_, refreshErr := c.Refresh()
	require.Nil(t, refreshErr)
	assert.Equal(t, 1, areaAPI.calls)

	require.Nil(t, c.RefreshArea("area-1"))
	assert.Equal(t, 2, areaAPI.calls)

	err := c.RefreshArea("nonexistent")
	require.NotNil(t, err)
	assert.Equal(t, FailureValidation, err.Kind)
}

func TestQuotaCoordinatorCachesAndKeepsLastGood(t *testing.T) {
	api := &fakeAllowanceAPI{resp: &sepush.AllowanceResponse{
		Allowance: sepush.Allowance{Count: 42, Limit: 50, Type: "daily"},
	}}
	c := NewQuotaCoordinator(api, time.Hour)
	c.now = frozenClock(testNow)

	allowance, err := c.Refresh()
	require.Nil(t, err)
	assert.Equal(t, 42, allowance.Count)
	assert.True(t, c.Loaded())

	// Cached within the interval.
	c.now = frozenClock(testNow.Add(time.Minute))
	_, err = c.Refresh()
	require.Nil(t, err)
	assert.Equal(t, 1, api.calls)

	// Transient failure keeps the last-good value.
	api.err = errors.New("quota exceeded")
	c.now = frozenClock(testNow.Add(2 * time.Hour))
	allowance, refreshErr := c.Refresh()
	require.NotNil(t, refreshErr)
	assert.Equal(t, 42, allowance.Count)
}

func TestKeepLastGoodPolicy(t *testing.T) {
	assert.True(t, KeepLastGood(&RefreshError{Kind: FailureTransient}))
	assert.False(t, KeepLastGood(&RefreshError{Kind: FailureValidation}))
}
