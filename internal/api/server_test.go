package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/csk-sniffer/imagefetch/internal/api"
	"github.com/csk-sniffer/imagefetch/internal/progress"
)

func doRequest(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := api.NewServer(progress.NewSnapshotRecorder(), zap.NewNop())

	rec := doRequest(t, srv.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusReflectsRecordedEvents(t *testing.T) {
	snapshot := progress.NewSnapshotRecorder()
	runID := uuid.New()
	snapshot.Record(progress.Event{
		RunID:    runID,
		Keyword:  "boats",
		Reason:   "ok",
		Filename: "Image1.png",
		Bytes:    512,
	})
	snapshot.Record(progress.Event{
		RunID:   runID,
		Keyword: "boats",
		Reason:  "skip-duplicate-url",
	})

	srv := api.NewServer(snapshot, zap.NewNop())
	rec := doRequest(t, srv.Handler(), "/v1/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got progress.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, runID.String(), got.RunID)
	assert.Equal(t, "boats", got.Keyword)
	assert.Equal(t, int64(1), got.Reasons["ok"])
	assert.Equal(t, int64(1), got.Reasons["skip-duplicate-url"])
	assert.Equal(t, int64(512), got.Bytes)
	assert.Equal(t, "Image1.png", got.LastSaved)
}

func TestStatusWithoutSnapshot(t *testing.T) {
	srv := api.NewServer(nil, zap.NewNop())
	rec := doRequest(t, srv.Handler(), "/v1/status")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointServes(t *testing.T) {
	srv := api.NewServer(progress.NewSnapshotRecorder(), zap.NewNop())
	rec := doRequest(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
