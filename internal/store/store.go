// Package store persists job status records keyed by source URL.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = eris.New("store: record not found")

// Store is the job-status cache. Transitions are at-least-once and must be
// idempotent: replaying a terminal transition for the same job id leaves
// the record unchanged, and MarkProcessing never downgrades a terminal
// record belonging to the same job id. A new job id for the same URL (a
// resubmission) overwrites freely.
type Store interface {
	// MarkProcessing records a job as in flight.
	MarkProcessing(ctx context.Context, url, jobID string) error
	// MarkCompleted records the final payload and source metadata.
	MarkCompleted(ctx context.Context, url, jobID string, result *model.AnalysisPayload, meta model.SourceMetadata) error
	// MarkFailed records a job-level failure with its message.
	MarkFailed(ctx context.Context, url, jobID, errMsg string) error
	// Get fetches the record for a source URL.
	Get(ctx context.Context, url string) (*model.JobRecord, error)
	// GetByJobID fetches the record for a job id.
	GetByJobID(ctx context.Context, jobID string) (*model.JobRecord, error)

	// Migrate prepares backing storage.
	Migrate(ctx context.Context) error
	Close() error
}
