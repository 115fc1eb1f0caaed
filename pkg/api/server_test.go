package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/aggregator"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/codec"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/locations"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/storage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

type fakeJobs struct {
	refreshDir string
	forced     bool
	offloadErr error
	last       *types.JobResult
}

func (f *fakeJobs) Refresh(ctx context.Context, dir string) (*types.JobResult, error) {
	f.refreshDir = dir
	f.last = &types.JobResult{FilesParsed: 3, Coverage: "20130901"}
	return f.last, nil
}

func (f *fakeJobs) Offload(ctx context.Context, force bool) (*types.JobResult, error) {
	f.forced = force
	if f.offloadErr != nil {
		return nil, f.offloadErr
	}
	return &types.JobResult{TagsWritten: []string{"Weekday|Monday"}}, nil
}

func (f *fakeJobs) LastResult() *types.JobResult {
	return f.last
}

func newTestServer(t *testing.T, populate bool) (*httptest.Server, *fakeJobs) {
	t.Helper()

	store, err := storage.NewStore(&storage.Config{
		Path:      filepath.Join(t.TempDir(), "hist_data.txt"),
		CacheSize: 4,
	})
	require.NoError(t, err)
	store.SetLogger(log.New(io.Discard, "", 0))

	if populate {
		rec := types.NewDayRecord(types.UnknownDate, "Weekday|Monday")
		rec.Buckets = []types.Bucket{{Timestamp: "0100", Data: codec.Encode(strings.Repeat("C", codec.RecordLen))}}
		require.NoError(t, store.Rewrite(context.Background(),
			&types.FileHeader{Coverage: "20130902", Tags: []string{"Weekday|Monday"}},
			[]*types.DayRecord{rec}))
	}

	jobs := &fakeJobs{}
	srv := NewServer(":0", store, jobs, "Traffic_Records")
	srv.SetLogger(log.New(io.Discard, "", 0))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, jobs
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestArchiveInfo(t *testing.T) {
	ts, _ := newTestServer(t, true)

	var body archiveResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/archive", &body))
	assert.True(t, body.Exists)
	assert.Equal(t, "20130902", body.Coverage)
	assert.Equal(t, []string{"Weekday|Monday"}, body.Tags)
}

func TestArchiveInfoMissing(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var body archiveResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/archive", &body))
	assert.False(t, body.Exists)
	assert.Empty(t, body.Tags)
}

func TestTagBlock(t *testing.T) {
	ts, _ := newTestServer(t, true)
	path := ts.URL + "/api/v1/archive/tags/" + url.PathEscape("Weekday|Monday")

	var plain tagResponse
	require.Equal(t, http.StatusOK, getJSON(t, path, &plain))
	assert.Equal(t, "Weekday|Monday", plain.Tag)
	require.Len(t, plain.Buckets, 1)
	assert.Equal(t, "0100", plain.Buckets[0].Timestamp)
	assert.Nil(t, plain.Buckets[0].Readings)

	var decoded tagResponse
	require.Equal(t, http.StatusOK, getJSON(t, path+"?decode=true", &decoded))
	readings := decoded.Buckets[0].Readings
	require.Len(t, readings, locations.Count)

	first, _ := locations.Name(0)
	assert.Equal(t, first, readings[0].Location)
	assert.Equal(t, 2, readings[0].Southbound)
	assert.Equal(t, 2.0, readings[0].NBAverage)
}

func TestTagBlockNotFound(t *testing.T) {
	ts, _ := newTestServer(t, true)

	var body map[string]string
	status := getJSON(t, ts.URL+"/api/v1/archive/tags/"+url.PathEscape("Weekend|Sunday"), &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestCoverage(t *testing.T) {
	ts, _ := newTestServer(t, true)

	tests := []struct {
		date    string
		covered bool
	}{
		{"20130902", true},
		{"20130903", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			var body struct {
				Covered bool `json:"covered"`
			}
			require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/coverage/"+tt.date, &body))
			assert.Equal(t, tt.covered, body.Covered)
		})
	}

	resp, err := http.Get(ts.URL + "/api/v1/coverage/2013")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobs(t *testing.T) {
	ts, jobs := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/api/v1/jobs/refresh", "application/json", nil)
	require.NoError(t, err)
	var res types.JobResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, res.FilesParsed)
	assert.Equal(t, "Traffic_Records", jobs.refreshDir)

	var status statusResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	require.NotNil(t, status.LastJob)
	assert.Equal(t, "20130901", status.LastJob.Coverage)
	require.NotNil(t, status.Cache)
	assert.Equal(t, 4, status.Cache.Capacity)

	resp, err = http.Post(ts.URL+"/api/v1/jobs/offload?force=true", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, jobs.forced)

	jobs.offloadErr = fmt.Errorf("wrapped: %w", aggregator.ErrTooFewRecords)
	resp, err = http.Post(ts.URL+"/api/v1/jobs/offload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, jobs.forced)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, true)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/jobs/refresh", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/jobs/offload", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/archive", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/status", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSetLoggerIgnoresNil(t *testing.T) {
	srv := NewServer(":0", nil, nil, "")
	srv.SetLogger(nil)
	assert.NotNil(t, srv.logger)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "traffichist_")
}
