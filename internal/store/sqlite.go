package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Single connection: sqlite allows one writer, and in-memory databases
	// exist per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	url        TEXT PRIMARY KEY,
	job_id     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'processing',
	result     TEXT,
	metadata   TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_job_id ON jobs(job_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) MarkProcessing(ctx context.Context, url, jobID string) error {
	// A terminal record for the same job id wins over a replayed
	// processing transition; a different job id is a resubmission.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (url, job_id, status, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			job_id = excluded.job_id,
			status = excluded.status,
			result = NULL,
			metadata = NULL,
			error = NULL,
			created_at = excluded.created_at
		WHERE jobs.job_id != excluded.job_id OR jobs.status = 'processing'`,
		url, jobID, string(model.JobProcessing), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark processing %s", jobID)
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, url, jobID string, result *model.AnalysisPayload, meta model.SourceMetadata) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (url, job_id, status, result, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			job_id = excluded.job_id,
			status = excluded.status,
			result = excluded.result,
			metadata = excluded.metadata,
			error = NULL,
			created_at = excluded.created_at`,
		url, jobID, string(model.JobCompleted), string(resultJSON), string(metaJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark completed %s", jobID)
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, url, jobID, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (url, job_id, status, error, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			job_id = excluded.job_id,
			status = excluded.status,
			result = NULL,
			error = excluded.error,
			created_at = excluded.created_at`,
		url, jobID, string(model.JobFailed), errMsg, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark failed %s", jobID)
}

func (s *SQLiteStore) Get(ctx context.Context, url string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, job_id, status, result, metadata, error, created_at FROM jobs WHERE url = ?`,
		url,
	)
	return scanRecord(row)
}

func (s *SQLiteStore) GetByJobID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, job_id, status, result, metadata, error, created_at FROM jobs WHERE job_id = ?`,
		jobID,
	)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*model.JobRecord, error) {
	var rec model.JobRecord
	var status string
	var resultJSON, metaJSON, errMsg sql.NullString

	err := row.Scan(&rec.URL, &rec.JobID, &status, &resultJSON, &metaJSON, &errMsg, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job record")
	}

	rec.Status = model.JobStatus(status)
	if resultJSON.Valid && resultJSON.String != "" {
		var payload model.AnalysisPayload
		if err := json.Unmarshal([]byte(resultJSON.String), &payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		rec.Result = &payload
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	return &rec, nil
}
