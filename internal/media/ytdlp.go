// Package media probes and downloads video sources via the yt-dlp CLI.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// downloadFormat prefers mp4 video+audio, falling back to best mp4.
const downloadFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"

// YtDlp shells out to the yt-dlp binary for metadata probing and media
// download.
type YtDlp struct {
	binPath    string
	scratchDir string
}

// NewYtDlp creates a YtDlp client. Empty binPath defaults to "yt-dlp";
// empty scratchDir defaults to "/tmp".
func NewYtDlp(binPath, scratchDir string) *YtDlp {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if scratchDir == "" {
		scratchDir = "/tmp"
	}
	return &YtDlp{binPath: binPath, scratchDir: scratchDir}
}

// probeInfo is the subset of yt-dlp's JSON dump we need.
type probeInfo struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// Probe fetches the source's title and thumbnail without downloading.
func (y *YtDlp) Probe(ctx context.Context, url string) (model.SourceMetadata, error) {
	cmd := exec.CommandContext(ctx, y.binPath, "--dump-json", "--no-download", "--quiet", url)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return model.SourceMetadata{}, eris.Wrapf(err, "media: probe %s: %s", url, stderr.String())
	}

	var info probeInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return model.SourceMetadata{}, eris.Wrapf(err, "media: parse probe output for %s", url)
	}

	return model.SourceMetadata{Title: info.Title, Image: info.Thumbnail}, nil
}

// Download fetches the media to the scratch directory and returns the file
// path.
func (y *YtDlp) Download(ctx context.Context, url, baseName string) (string, error) {
	outPath := filepath.Join(y.scratchDir, baseName+".mp4")

	cmd := exec.CommandContext(ctx, y.binPath, "-f", downloadFormat, "-o", outPath, "--quiet", url)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "media: download %s: %s", url, stderr.String())
	}

	return outPath, nil
}

// SafeFilename derives a short, filesystem-safe name from a URL.
func SafeFilename(url string) string {
	h := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", h)[:10]
}
