package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triptomat/trip-analyzer/internal/config"
	"github.com/triptomat/trip-analyzer/internal/model"
	"github.com/triptomat/trip-analyzer/internal/store"
	"github.com/triptomat/trip-analyzer/internal/worker"
)

// newTestGateway wires a gateway against an in-memory store and an idle
// pool. Jobs stay queued; nothing consumes them during handler tests.
func newTestGateway(t *testing.T, queueDepth int) (*gateway, store.Store) {
	t.Helper()

	cfg = &config.Config{}
	cfg.Server.MaxBodyBytes = 1_000_000
	cfg.Server.MaxTextChars = 50_000

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	pool := worker.NewPool(worker.NewRunner(nil, st), 1, queueDepth)
	return &gateway{env: &env{Store: st}, pool: pool}, st
}

func postAnalyze(t *testing.T, gw *gateway, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	gw.handleAnalyze(w, req)
	return w
}

func TestHandleAnalyze_URLAccepted(t *testing.T) {
	gw, st := newTestGateway(t, 8)

	w := postAnalyze(t, gw, `{"url": "https://blog.example.com/post"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
	assert.NotEmpty(t, resp["job_id"])

	rec, err := st.Get(context.Background(), "https://blog.example.com/post")
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, rec.Status)
	assert.Equal(t, resp["job_id"], rec.JobID)
}

func TestHandleAnalyze_TextAccepted(t *testing.T) {
	gw, st := newTestGateway(t, 8)

	w := postAnalyze(t, gw, `{"text": "My friend loved the rooftop bar in Lisbon"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	rec, err := st.GetByJobID(context.Background(), resp["job_id"])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.URL, "text://paste-"))
}

func TestHandleAnalyze_MissingInput(t *testing.T) {
	gw, _ := newTestGateway(t, 8)

	w := postAnalyze(t, gw, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "either url or text")
}

func TestHandleAnalyze_BadScheme(t *testing.T) {
	gw, _ := newTestGateway(t, 8)

	for _, u := range []string{"ftp://example.com/file", "javascript:alert(1)", "not a url"} {
		w := postAnalyze(t, gw, `{"url": "`+u+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, u)
	}
}

func TestHandleAnalyze_TextTooLong(t *testing.T) {
	gw, _ := newTestGateway(t, 8)
	cfg.Server.MaxTextChars = 10

	w := postAnalyze(t, gw, `{"text": "this text is well over ten characters"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too long")
}

func TestHandleAnalyze_InvalidBody(t *testing.T) {
	gw, _ := newTestGateway(t, 8)

	w := postAnalyze(t, gw, `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAnalyze_CompletedCacheHit(t *testing.T) {
	gw, st := newTestGateway(t, 8)

	url := "https://blog.example.com/post"
	payload := &model.AnalysisPayload{
		Recommendations: []model.Recommendation{{Name: "Cafe Xoho"}},
	}
	require.NoError(t, st.MarkProcessing(context.Background(), url, "job-1"))
	require.NoError(t, st.MarkCompleted(context.Background(), url, "job-1", payload, model.SourceMetadata{Title: "A Post"}))

	w := postAnalyze(t, gw, `{"url": "`+url+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cafe Xoho")
	assert.Contains(t, w.Body.String(), "completed")
}

func TestHandleAnalyze_OverwriteBypassesCache(t *testing.T) {
	gw, st := newTestGateway(t, 8)

	url := "https://blog.example.com/post"
	require.NoError(t, st.MarkProcessing(context.Background(), url, "job-1"))
	require.NoError(t, st.MarkCompleted(context.Background(), url, "job-1", &model.AnalysisPayload{}, model.SourceMetadata{}))

	w := postAnalyze(t, gw, `{"url": "`+url+`", "overwrite": true}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	rec, err := st.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, rec.Status)
	assert.NotEqual(t, "job-1", rec.JobID)
}

func TestHandleAnalyze_FailedRecordReprocessed(t *testing.T) {
	gw, st := newTestGateway(t, 8)

	url := "https://blog.example.com/post"
	require.NoError(t, st.MarkProcessing(context.Background(), url, "job-1"))
	require.NoError(t, st.MarkFailed(context.Background(), url, "job-1", "model down"))

	// A failed record is not a cache hit; the URL runs again.
	w := postAnalyze(t, gw, `{"url": "`+url+`"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHandleAnalyze_QueueFull(t *testing.T) {
	gw, _ := newTestGateway(t, 1)

	w := postAnalyze(t, gw, `{"url": "https://a.example.com"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = postAnalyze(t, gw, `{"url": "https://b.example.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "queue full")
}

func TestHandleJobStatus(t *testing.T) {
	gw, st := newTestGateway(t, 8)

	require.NoError(t, st.MarkProcessing(context.Background(), "https://a.example.com", "job-9"))

	r := chi.NewRouter()
	r.Get("/jobs/{jobID}", gw.handleJobStatus)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-9", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var rec model.JobRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "job-9", rec.JobID)
	assert.Equal(t, model.JobProcessing, rec.Status)
}

func TestHandleJobStatus_NotFound(t *testing.T) {
	gw, _ := newTestGateway(t, 8)

	r := chi.NewRouter()
	r.Get("/jobs/{jobID}", gw.handleJobStatus)

	req := httptest.NewRequest(http.MethodGet, "/jobs/no-such-job", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "first", firstLine("first\nsecond", 80))
	assert.Equal(t, "no newline here", firstLine("no newline here", 80))
	assert.Equal(t, strings.Repeat("x", 10), firstLine(strings.Repeat("x", 40), 10))
	assert.Equal(t, "", firstLine("", 80))
}

func TestTextJob(t *testing.T) {
	job := textJob("Go to the old town\nand eat at the market")

	assert.True(t, strings.HasPrefix(job.URL, "text://paste-"))
	assert.Equal(t, model.SourceWeb, job.SourceType)
	assert.Equal(t, "Go to the old town", job.Metadata.Title)
	assert.NotEmpty(t, job.Text)
}

func TestUrlJob(t *testing.T) {
	job := urlJob("https://youtu.be/abc")
	assert.Equal(t, model.SourceVideo, job.SourceType)
	assert.NotEmpty(t, job.ID)
}
