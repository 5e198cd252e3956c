package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// File artifact processing states reported by the Files API.
const (
	fileStateProcessing = "PROCESSING"
	fileStateActive     = "ACTIVE"
	fileStateFailed     = "FAILED"
)

// ErrProcessingTimeout marks an uploaded artifact that did not leave the
// processing state before the poll deadline. Callers can distinguish it
// from an upload or generation failure.
var ErrProcessingTimeout = eris.New("gemini: artifact processing timeout")

// uploadedFile is the Files API view of an uploaded artifact.
type uploadedFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

// fileEnvelope wraps the upload response.
type fileEnvelope struct {
	File uploadedFile `json:"file"`
}

// uploadFile pushes the media file to the Files API with a raw upload.
func (c *httpClient) uploadFile(ctx context.Context, path string) (*uploadedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gemini: open media %s", path)
	}
	defer f.Close() //nolint:errcheck

	stat, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "gemini: stat media %s", path)
	}

	reqURL := fmt.Sprintf("%s/v1beta/files?key=%s", c.uploadBaseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, f)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create upload request")
	}
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("Content-Type", "video/mp4")
	req.ContentLength = stat.Size()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: upload request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: read upload response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gemini: upload returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var envelope fileEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrap(err, "gemini: parse upload response")
	}

	zap.L().Debug("gemini: media uploaded",
		zap.String("file", envelope.File.Name),
		zap.String("state", envelope.File.State),
	)
	return &envelope.File, nil
}

// waitForProcessing polls the Files API until the artifact leaves the
// processing state, the poll deadline passes, or the context expires. The
// interval doubles each round up to a fixed cap.
func (c *httpClient) waitForProcessing(ctx context.Context, file *uploadedFile) (*uploadedFile, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pollTimeout)
		defer cancel()
	}

	const intervalCap = 15 * time.Second
	interval := c.pollInterval

	for {
		switch file.State {
		case fileStateActive:
			return file, nil
		case fileStateFailed:
			return nil, eris.Errorf("gemini: artifact %s failed processing", file.Name)
		}

		select {
		case <-ctx.Done():
			if eris.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrProcessingTimeout
			}
			return nil, eris.Wrap(ctx.Err(), "gemini: poll artifact")
		case <-time.After(interval):
		}

		interval *= 2
		if interval > intervalCap {
			interval = intervalCap
		}

		refreshed, err := c.getFile(ctx, file.Name)
		if err != nil {
			return nil, err
		}
		file = refreshed
	}
}

// getFile fetches the current state of an uploaded artifact.
func (c *httpClient) getFile(ctx context.Context, name string) (*uploadedFile, error) {
	reqURL := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create file request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: file request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: read file response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gemini: file get returned status %d", resp.StatusCode)
	}

	var file uploadedFile
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, eris.Wrap(err, "gemini: parse file response")
	}
	return &file, nil
}
