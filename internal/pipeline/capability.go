package pipeline

import (
	"context"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// Geocoder is the geographic lookup capability. Implementations own the
// safe-default contract: when the underlying provider has no results or
// errors, they return zero values rather than failing the caller. Returned
// errors cover transport problems only and callers degrade on them.
type Geocoder interface {
	// Geocode resolves a free-text query to an address and coordinates.
	// The zero Location is the documented no-match fallback.
	Geocode(ctx context.Context, query string) (model.Location, error)
	// ReverseGeocode resolves coordinates to a formatted address, or "".
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	// PlacePhoto finds a photo URL for a named place near the coordinates,
	// or "" when nothing matches.
	PlacePhoto(ctx context.Context, lat, lng float64, name string) (string, error)
}

// Analyzer is the model capability. Both calls return raw text expected to
// parse as an AnalysisPayload.
type Analyzer interface {
	// AnalyzeVideo uploads the media file, waits for the artifact to finish
	// processing, and generates the analysis.
	AnalyzeVideo(ctx context.Context, path, prompt string) (string, error)
	// AnalyzeText performs a one-shot text analysis.
	AnalyzeText(ctx context.Context, prompt string) (string, error)
}

// Scraper fetches web page text and metadata and resolves short links.
type Scraper interface {
	// ExtractText returns the page's visible text, whitespace-collapsed.
	ExtractText(ctx context.Context, url string) (string, error)
	// Metadata returns the page's og:title/og:image (with <title> fallback).
	Metadata(ctx context.Context, url string) (model.SourceMetadata, error)
	// ResolveRedirect follows redirects to the canonical URL. On failure it
	// returns the input URL unchanged.
	ResolveRedirect(ctx context.Context, url string) string
}

// Media probes and downloads video sources.
type Media interface {
	// Probe fetches title and thumbnail without downloading.
	Probe(ctx context.Context, url string) (model.SourceMetadata, error)
	// Download fetches the media to a scratch location and returns its path.
	Download(ctx context.Context, url, baseName string) (string, error)
}

// Sink receives the final envelope. A non-empty token overrides the sink's
// configured credential for that delivery. Delivery failure is logged by
// callers, never raised as a job failure.
type Sink interface {
	Deliver(ctx context.Context, env model.Envelope, token string) error
}
