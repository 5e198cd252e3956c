package pipeline

import (
	"context"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// mockGeocoder implements Geocoder for testing.
type mockGeocoder struct {
	locations   map[string]model.Location
	queries     []string
	geocodeErr  error
	reverseAddr string
	reverseErr  error
	photoURL    string
	photoErr    error
	photoCalls  int
}

func (m *mockGeocoder) Geocode(_ context.Context, query string) (model.Location, error) {
	m.queries = append(m.queries, query)
	if m.geocodeErr != nil {
		return model.Location{}, m.geocodeErr
	}
	return m.locations[query], nil
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	return m.reverseAddr, m.reverseErr
}

func (m *mockGeocoder) PlacePhoto(_ context.Context, _, _ float64, _ string) (string, error) {
	m.photoCalls++
	return m.photoURL, m.photoErr
}

// mockAnalyzer implements Analyzer for testing.
type mockAnalyzer struct {
	response   string
	err        error
	videoPath  string
	lastPrompt string
	textCalls  int
	videoCalls int
}

func (m *mockAnalyzer) AnalyzeVideo(_ context.Context, path, prompt string) (string, error) {
	m.videoCalls++
	m.videoPath = path
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockAnalyzer) AnalyzeText(_ context.Context, prompt string) (string, error) {
	m.textCalls++
	m.lastPrompt = prompt
	return m.response, m.err
}

// mockScraper implements Scraper for testing.
type mockScraper struct {
	text        string
	textErr     error
	meta        model.SourceMetadata
	metaErr     error
	resolvedURL string
}

func (m *mockScraper) ExtractText(_ context.Context, _ string) (string, error) {
	return m.text, m.textErr
}

func (m *mockScraper) Metadata(_ context.Context, _ string) (model.SourceMetadata, error) {
	return m.meta, m.metaErr
}

func (m *mockScraper) ResolveRedirect(_ context.Context, url string) string {
	if m.resolvedURL != "" {
		return m.resolvedURL
	}
	return url
}

// mockMedia implements Media for testing.
type mockMedia struct {
	meta        model.SourceMetadata
	probeErr    error
	path        string
	downloadErr error
}

func (m *mockMedia) Probe(_ context.Context, _ string) (model.SourceMetadata, error) {
	return m.meta, m.probeErr
}

func (m *mockMedia) Download(_ context.Context, _, _ string) (string, error) {
	if m.downloadErr != nil {
		return "", m.downloadErr
	}
	return m.path, nil
}

// mockSink implements Sink for testing.
type mockSink struct {
	envelopes []model.Envelope
	tokens    []string
	err       error
}

func (m *mockSink) Deliver(_ context.Context, env model.Envelope, token string) error {
	m.envelopes = append(m.envelopes, env)
	m.tokens = append(m.tokens, token)
	return m.err
}
