package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/triptomat/trip-analyzer/internal/media"
	"github.com/triptomat/trip-analyzer/internal/model"
)

// PreparedSource is the exact input the model needs for one job: a prompt,
// plus a downloaded media path for video sources.
type PreparedSource struct {
	Prompt    string
	VideoPath string

	// Empty marks a web source that produced no text to analyze. The job
	// completes with an empty result instead of calling the model.
	Empty bool
}

// Preparer assembles model input per source classification. Every external
// call it makes (probe, download metadata, redirect, reverse geocode,
// scrape) degrades to empty-string defaults on failure; only a failed video
// download aborts the job, since there is nothing to analyze without the
// artifact.
type Preparer struct {
	scraper  Scraper
	media    Media
	geocoder Geocoder
	maxText  int
}

// NewPreparer creates a Preparer with the given capabilities. maxText bounds
// the characters of scraped or pasted text injected into the prompt.
func NewPreparer(scraper Scraper, mediaClient Media, geocoder Geocoder, maxText int) *Preparer {
	if maxText <= 0 {
		maxText = 5000
	}
	return &Preparer{
		scraper:  scraper,
		media:    mediaClient,
		geocoder: geocoder,
		maxText:  maxText,
	}
}

// Prepare builds the model input for a job, filling in the job's source
// metadata, canonical URL, and manual coordinates along the way.
func (p *Preparer) Prepare(ctx context.Context, job *model.Job, basePrompt string) (*PreparedSource, error) {
	switch job.SourceType {
	case model.SourceVideo:
		return p.prepareVideo(ctx, job, basePrompt)
	case model.SourceMaps:
		return p.prepareMaps(ctx, job, basePrompt)
	default:
		return p.prepareWeb(ctx, job, basePrompt)
	}
}

func (p *Preparer) prepareVideo(ctx context.Context, job *model.Job, basePrompt string) (*PreparedSource, error) {
	meta, err := p.media.Probe(ctx, job.URL)
	if err != nil {
		zap.L().Warn("prepare: video probe failed", zap.String("url", job.URL), zap.Error(err))
	} else {
		job.Metadata = meta
	}

	path, err := p.media.Download(ctx, job.URL, media.SafeFilename(job.URL))
	if err != nil {
		return nil, err
	}

	return &PreparedSource{Prompt: basePrompt, VideoPath: path}, nil
}

func (p *Preparer) prepareMaps(ctx context.Context, job *model.Job, basePrompt string) (*PreparedSource, error) {
	if job.FinalURL == "" {
		job.FinalURL = p.scraper.ResolveRedirect(ctx, job.URL)
	}

	if !job.HasManual {
		if lat, lng, ok := ExtractCoords(job.FinalURL); ok {
			job.ManualLat, job.ManualLng, job.HasManual = lat, lng, true
		}
	}

	address := ""
	if job.HasManual {
		addr, err := p.geocoder.ReverseGeocode(ctx, job.ManualLat, job.ManualLng)
		if err != nil {
			zap.L().Warn("prepare: reverse geocode failed",
				zap.Float64("lat", job.ManualLat),
				zap.Float64("lng", job.ManualLng),
				zap.Error(err),
			)
		}
		address = addr
		if address != "" && job.Metadata.Title == "" {
			job.Metadata.Title = "Location: " + address
		}
	}

	return &PreparedSource{Prompt: mapsPrompt(basePrompt, job.FinalURL, address)}, nil
}

func (p *Preparer) prepareWeb(ctx context.Context, job *model.Job, basePrompt string) (*PreparedSource, error) {
	text := job.Text
	if text == "" {
		scraped, err := p.scraper.ExtractText(ctx, job.URL)
		if err != nil {
			zap.L().Warn("prepare: scrape failed", zap.String("url", job.URL), zap.Error(err))
		}
		text = scraped

		meta, err := p.scraper.Metadata(ctx, job.URL)
		if err != nil {
			zap.L().Warn("prepare: metadata fetch failed", zap.String("url", job.URL), zap.Error(err))
		} else {
			job.Metadata = meta
		}
	}

	if text == "" {
		return &PreparedSource{Empty: true}, nil
	}

	text = truncate(text, p.maxText)
	return &PreparedSource{Prompt: textPrompt(basePrompt, text)}, nil
}

// truncate bounds s to max characters without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
