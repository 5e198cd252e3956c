package model

import "time"

// SourceType tags how a submitted source is prepared for analysis.
type SourceType string

const (
	SourceVideo SourceType = "video"
	SourceMaps  SourceType = "maps"
	SourceWeb   SourceType = "web"
)

// JobStatus is the terminal-state machine for a job. Transitions are
// processing -> completed | failed; redelivery may replay a transition, so
// stores must apply them idempotently.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// SourceMetadata holds the display title and image discovered for a source.
// Both fields default to empty strings when discovery fails.
type SourceMetadata struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

// Job is the ephemeral identity threading through all pipeline stages. It is
// created at ingestion and discarded once the sink has the result; nothing
// mid-pipeline is persisted.
type Job struct {
	ID           string         `json:"job_id"`
	URL          string         `json:"url"`
	SourceType   SourceType     `json:"source_type"`
	Metadata     SourceMetadata `json:"source_metadata"`
	Text         string         `json:"text,omitempty"`
	FinalURL     string         `json:"final_url,omitempty"`
	WebhookToken string         `json:"webhook_token,omitempty"`

	// Manual coordinates extracted from a map-link URL. HasManual is false
	// unless both values parsed; zero coordinates are treated as absent.
	ManualLat float64 `json:"manual_lat,omitempty"`
	ManualLng float64 `json:"manual_lng,omitempty"`
	HasManual bool    `json:"-"`
}

// JobRecord is the persisted view of a job in the status store.
type JobRecord struct {
	URL       string           `json:"url"`
	JobID     string           `json:"job_id"`
	Status    JobStatus        `json:"status"`
	Result    *AnalysisPayload `json:"result,omitempty"`
	Metadata  SourceMetadata   `json:"source_metadata"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Envelope is the final payload delivered to the sink.
type Envelope struct {
	InputType        string           `json:"input_type"`
	RecommendationID string           `json:"recommendation_id"`
	Timestamp        string           `json:"timestamp"`
	SourceURL        string           `json:"source_url"`
	SourceTitle      string           `json:"source_title"`
	SourceImage      string           `json:"source_image"`
	Analysis         *AnalysisPayload `json:"analysis"`
}
