// Package gemini provides a client for the Gemini generative language API,
// covering one-shot text analysis and video analysis via the Files API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultBaseURL       = "https://generativelanguage.googleapis.com"
	defaultUploadBaseURL = "https://generativelanguage.googleapis.com/upload"
	defaultVideoModel    = "models/gemini-2.5-flash"
	defaultTextModel     = "models/gemini-2.0-flash"
)

// Client defines the Gemini operations used by the pipeline. Both calls
// return raw text constrained to a JSON response format.
type Client interface {
	AnalyzeVideo(ctx context.Context, path, prompt string) (string, error)
	AnalyzeText(ctx context.Context, prompt string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithUploadBaseURL sets a custom upload base URL (for testing).
func WithUploadBaseURL(u string) Option {
	return func(c *httpClient) {
		c.uploadBaseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.client = hc
	}
}

// WithModels overrides the video and text model IDs.
func WithModels(videoModel, textModel string) Option {
	return func(c *httpClient) {
		if videoModel != "" {
			c.videoModel = videoModel
		}
		if textModel != "" {
			c.textModel = textModel
		}
	}
}

// WithPollInterval overrides the initial file-processing poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *httpClient) {
		c.pollInterval = d
	}
}

// WithPollTimeout overrides the file-processing poll timeout.
func WithPollTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.pollTimeout = d
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	uploadBaseURL string
	videoModel    string
	textModel     string
	pollInterval  time.Duration
	pollTimeout   time.Duration
	client        *http.Client
}

// NewClient creates a Gemini client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		uploadBaseURL: defaultUploadBaseURL,
		videoModel:    defaultVideoModel,
		textModel:     defaultTextModel,
		pollInterval:  2 * time.Second,
		pollTimeout:   5 * time.Minute,
		client:        &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type"`
}

// generateResponse is the subset of the generateContent response we read.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AnalyzeText performs a one-shot text analysis with a JSON-constrained
// response.
func (c *httpClient) AnalyzeText(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}
	return c.generate(ctx, c.textModel, req)
}

// AnalyzeVideo uploads the media file, waits for the artifact to leave the
// processing state, then generates the analysis against it.
func (c *httpClient) AnalyzeVideo(ctx context.Context, path, prompt string) (string, error) {
	file, err := c.uploadFile(ctx, path)
	if err != nil {
		return "", err
	}

	file, err = c.waitForProcessing(ctx, file)
	if err != nil {
		return "", err
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{
			{FileData: &fileData{MimeType: file.MimeType, FileURI: file.URI}},
			{Text: prompt},
		}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}
	return c.generate(ctx, c.videoModel, req)
}

// generate calls the generateContent endpoint for a model and returns the
// first candidate's text.
func (c *httpClient) generate(ctx context.Context, modelID string, genReq generateRequest) (string, error) {
	payload, err := json.Marshal(genReq)
	if err != nil {
		return "", eris.Wrap(err, "gemini: marshal request")
	}

	reqURL := fmt.Sprintf("%s/v1beta/%s:generateContent?key=%s", c.baseURL, modelID, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "gemini: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "gemini: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("gemini: generate returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", eris.Wrap(err, "gemini: parse response")
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", eris.New("gemini: empty response")
	}

	zap.L().Debug("gemini: generate complete", zap.String("model", modelID))
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// truncateBody bounds error payloads included in messages.
func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
