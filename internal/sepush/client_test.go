package sepush

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("token"))
		w.Write([]byte(`{
			"status": {
				"eskom": {
					"name": "National",
					"stage": "2",
					"stage_updated": "2024-06-01T08:00:00+02:00",
					"next_stages": [
						{"stage": "4", "stage_start_timestamp": "2024-06-01T16:00:00+02:00"}
					]
				}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	resp, err := c.Status()
	require.NoError(t, err)

	region, ok := resp.Status["eskom"]
	require.True(t, ok)
	assert.Equal(t, "National", region.Name)
	assert.Equal(t, "2", region.Stage)
	require.Len(t, region.NextStages, 1)
	assert.Equal(t, "4", region.NextStages[0].Stage)
}

func TestClientArea(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/area", r.URL.Path)
		assert.Equal(t, "capetown-14-area", r.URL.Query().Get("id"))
		w.Write([]byte(`{
			"events": [
				{"note": "Stage 4", "start": "2024-06-01T20:00:00+02:00", "end": "2024-06-01T22:30:00+02:00"}
			],
			"info": {"name": "Test Area", "region": "Cape Town"},
			"schedule": {
				"days": [
					{"date": "2024-06-01", "name": "Saturday", "stages": [["06:00-08:30"], ["06:00-08:30", "14:00-16:30"]]}
				],
				"source": "https://example.test"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	resp, err := c.Area("capetown-14-area")
	require.NoError(t, err)

	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Stage 4", resp.Events[0].Note)
	require.Len(t, resp.Schedule.Days, 1)
	assert.Len(t, resp.Schedule.Days[0].Stages, 2)
	assert.Equal(t, "Test Area", resp.Info.Name)
}

func TestClientCheckAllowance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api_allowance", r.URL.Path)
		w.Write([]byte(`{"allowance": {"count": 37, "limit": 50, "type": "daily"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	resp, err := c.CheckAllowance()
	require.NoError(t, err)
	assert.Equal(t, 37, resp.Allowance.Count)
	assert.Equal(t, 50, resp.Allowance.Limit)
}

func TestClientNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "invalid token"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("bad-token", srv.URL)
	_, err := c.Status()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClientMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": `))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	_, err := c.Status()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
