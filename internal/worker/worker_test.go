package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triptomat/trip-analyzer/internal/model"
	"github.com/triptomat/trip-analyzer/internal/pipeline"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Geocode(_ context.Context, _ string) (model.Location, error) {
	return model.Location{}, nil
}
func (fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	return "", nil
}
func (fakeGeocoder) PlacePhoto(_ context.Context, _, _ float64, _ string) (string, error) {
	return "", nil
}

type fakeAnalyzer struct {
	response string
	err      error
}

func (a fakeAnalyzer) AnalyzeVideo(_ context.Context, _, _ string) (string, error) {
	return a.response, a.err
}
func (a fakeAnalyzer) AnalyzeText(_ context.Context, _ string) (string, error) {
	return a.response, a.err
}

type fakeScraper struct {
	text string
}

func (s fakeScraper) ExtractText(_ context.Context, _ string) (string, error) {
	return s.text, nil
}
func (s fakeScraper) Metadata(_ context.Context, _ string) (model.SourceMetadata, error) {
	return model.SourceMetadata{}, nil
}
func (s fakeScraper) ResolveRedirect(_ context.Context, url string) string { return url }

type fakeMedia struct{}

func (fakeMedia) Probe(_ context.Context, _ string) (model.SourceMetadata, error) {
	return model.SourceMetadata{}, nil
}
func (fakeMedia) Download(_ context.Context, _, _ string) (string, error) {
	return "/tmp/fake.mp4", nil
}

type fakeSink struct{}

func (fakeSink) Deliver(_ context.Context, _ model.Envelope, _ string) error { return nil }

// fakeStore records status transitions for assertions.
type fakeStore struct {
	mu        sync.Mutex
	completed map[string]*model.AnalysisPayload
	failed    map[string]string
	storeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completed: make(map[string]*model.AnalysisPayload),
		failed:    make(map[string]string),
	}
}

func (s *fakeStore) MarkProcessing(_ context.Context, _, _ string) error { return s.storeErr }

func (s *fakeStore) MarkCompleted(_ context.Context, url, _ string, result *model.AnalysisPayload, _ model.SourceMetadata) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[url] = result
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, url, _, errMsg string) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[url] = errMsg
	return nil
}

func (s *fakeStore) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

func (s *fakeStore) Get(_ context.Context, _ string) (*model.JobRecord, error) {
	return nil, eris.New("not implemented")
}

func (s *fakeStore) GetByJobID(_ context.Context, _ string) (*model.JobRecord, error) {
	return nil, eris.New("not implemented")
}

func (s *fakeStore) Migrate(_ context.Context) error { return nil }
func (s *fakeStore) Close() error                    { return nil }

func newTestRunner(analyzer fakeAnalyzer, st *fakeStore) *Runner {
	preparer := pipeline.NewPreparer(fakeScraper{text: "some travel text"}, fakeMedia{}, fakeGeocoder{}, 0)
	p := pipeline.New(preparer, analyzer, fakeGeocoder{}, fakeSink{}, "base prompt")
	return NewRunner(p, st)
}

func TestExecute_Completed(t *testing.T) {
	st := newFakeStore()
	r := newTestRunner(fakeAnalyzer{response: `{"recommendations": [{"name": "Spot"}]}`}, st)

	job := &model.Job{ID: "job-1", URL: "https://blog.example.com", SourceType: model.SourceWeb}
	r.Execute(context.Background(), job)

	require.Contains(t, st.completed, job.URL)
	require.NotNil(t, st.completed[job.URL])
	assert.Equal(t, "Spot", st.completed[job.URL].Recommendations[0].Name)
	assert.Empty(t, st.failed)
}

func TestExecute_Failed(t *testing.T) {
	st := newFakeStore()
	r := newTestRunner(fakeAnalyzer{err: eris.New("model down")}, st)

	job := &model.Job{ID: "job-2", URL: "https://blog.example.com", SourceType: model.SourceWeb}
	r.Execute(context.Background(), job)

	assert.Empty(t, st.completed)
	require.Contains(t, st.failed, job.URL)
	assert.Contains(t, st.failed[job.URL], "model down")
}

func TestExecute_EmptySourceCompletesWithNilResult(t *testing.T) {
	st := newFakeStore()
	preparer := pipeline.NewPreparer(fakeScraper{text: ""}, fakeMedia{}, fakeGeocoder{}, 0)
	p := pipeline.New(preparer, fakeAnalyzer{}, fakeGeocoder{}, fakeSink{}, "base prompt")
	r := NewRunner(p, st)

	job := &model.Job{ID: "job-3", URL: "https://empty.example.com", SourceType: model.SourceWeb}
	r.Execute(context.Background(), job)

	require.Contains(t, st.completed, job.URL)
	assert.Nil(t, st.completed[job.URL])
}

func TestExecute_StoreFailureDoesNotPanic(t *testing.T) {
	st := newFakeStore()
	st.storeErr = eris.New("db gone")
	r := newTestRunner(fakeAnalyzer{response: `{}`}, st)

	job := &model.Job{ID: "job-4", URL: "https://blog.example.com", SourceType: model.SourceWeb}
	r.Execute(context.Background(), job)
}

func TestPool_SubmitAndRun(t *testing.T) {
	st := newFakeStore()
	r := newTestRunner(fakeAnalyzer{response: `{}`}, st)
	pool := NewPool(r, 2, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(&model.Job{
			ID:         "job",
			URL:        "https://blog.example.com/" + string(rune('a'+i)),
			SourceType: model.SourceWeb,
		}))
	}

	assert.Eventually(t, func() bool {
		return st.completedCount() == 4
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPool_SubmitQueueFull(t *testing.T) {
	pool := NewPool(newTestRunner(fakeAnalyzer{}, newFakeStore()), 1, 1)

	require.NoError(t, pool.Submit(&model.Job{ID: "a"}))
	err := pool.Submit(&model.Job{ID: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}
