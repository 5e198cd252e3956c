package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// Pipeline runs one job end to end: prepare, analyze, enrich, deliver.
// Jobs share no state; a Pipeline is safe for concurrent Process calls as
// long as its capabilities are.
type Pipeline struct {
	preparer *Preparer
	analyzer Analyzer
	geocoder Geocoder
	sink     Sink
	prompt   string
}

// New creates a Pipeline with explicit capability dependencies.
func New(preparer *Preparer, analyzer Analyzer, geocoder Geocoder, sink Sink, basePrompt string) *Pipeline {
	return &Pipeline{
		preparer: preparer,
		analyzer: analyzer,
		geocoder: geocoder,
		sink:     sink,
		prompt:   basePrompt,
	}
}

// Process executes the full pipeline for one job and returns the enriched
// payload. A nil payload with nil error means the source had nothing to
// analyze. Errors are job-level failures (download, model call, malformed
// model output); stage-local external failures have already degraded to
// empty defaults inside the preparer and capabilities.
func (p *Pipeline) Process(ctx context.Context, job *model.Job) (*model.AnalysisPayload, error) {
	log := zap.L().With(
		zap.String("job_id", job.ID),
		zap.String("source_type", string(job.SourceType)),
		zap.String("url", job.URL),
	)
	log.Info("pipeline: processing job")

	prepared, err := p.preparer.Prepare(ctx, job, p.prompt)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: prepare source")
	}
	if prepared.Empty {
		log.Info("pipeline: nothing to analyze")
		return nil, nil
	}

	var raw string
	if prepared.VideoPath != "" {
		raw, err = p.analyzer.AnalyzeVideo(ctx, prepared.VideoPath, prepared.Prompt)
	} else {
		raw, err = p.analyzer.AnalyzeText(ctx, prepared.Prompt)
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: analyze")
	}

	payload, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	p.applyMapsMetadata(ctx, job, payload)

	Enrich(ctx, payload, p.geocoder, job.ManualLat, job.ManualLng)

	p.deliver(ctx, job, payload)

	log.Info("pipeline: job complete",
		zap.Int("recommendations", len(payload.Recommendations)),
		zap.Int("contacts", len(payload.Contacts)),
	)
	return payload, nil
}

// applyMapsMetadata fills the source title and image for map-link jobs from
// the model's first recommendation. Photo lookup failure leaves the image
// empty.
func (p *Pipeline) applyMapsMetadata(ctx context.Context, job *model.Job, payload *model.AnalysisPayload) {
	if job.SourceType != model.SourceMaps || len(payload.Recommendations) == 0 {
		return
	}

	name := payload.Recommendations[0].Name
	if name == "" {
		name = "Google Maps Location"
	}
	job.Metadata.Title = name

	if job.HasManual {
		photo, err := p.geocoder.PlacePhoto(ctx, job.ManualLat, job.ManualLng, name)
		if err != nil {
			zap.L().Warn("pipeline: place photo lookup failed", zap.Error(err))
		}
		job.Metadata.Image = photo
	}
}

// deliver sends the final envelope to the sink. Failures are logged, never
// raised.
func (p *Pipeline) deliver(ctx context.Context, job *model.Job, payload *model.AnalysisPayload) {
	env := model.Envelope{
		InputType:        "recommendation",
		RecommendationID: uuid.New().String(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		SourceURL:        job.URL,
		SourceTitle:      job.Metadata.Title,
		SourceImage:      job.Metadata.Image,
		Analysis:         payload,
	}
	if err := p.sink.Deliver(ctx, env, job.WebhookToken); err != nil {
		zap.L().Error("pipeline: sink delivery failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}

// ParsePayload decodes raw model output into an AnalysisPayload, stripping
// markdown fences and surrounding prose first. Invalid JSON is a job-level
// failure.
func ParsePayload(raw string) (*model.AnalysisPayload, error) {
	cleaned := cleanJSON(raw)

	var payload model.AnalysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse model output")
	}

	payload.FlattenSites()
	return &payload, nil
}

// cleanJSON strips markdown code fences and trims to the outermost JSON
// object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
