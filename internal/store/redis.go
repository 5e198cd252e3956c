package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/triptomat/trip-analyzer/internal/model"
)

const (
	urlKeyPrefix = "trip:job:url:"
	idKeyPrefix  = "trip:job:id:"
)

// RedisStore implements Store on Redis. Records are JSON values keyed by
// source URL, with a secondary job-id key pointing at the URL. Both keys
// share a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis creates a RedisStore and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "redis: ping")
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Migrate is a no-op for Redis.
func (s *RedisStore) Migrate(ctx context.Context) error { return nil }

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) MarkProcessing(ctx context.Context, url, jobID string) error {
	existing, err := s.Get(ctx, url)
	if err != nil && !eris.Is(err, ErrNotFound) {
		return err
	}
	// A replayed processing transition must not downgrade a terminal
	// record for the same job id.
	if existing != nil && existing.JobID == jobID && existing.Status != model.JobProcessing {
		return nil
	}

	return s.put(ctx, model.JobRecord{
		URL:       url,
		JobID:     jobID,
		Status:    model.JobProcessing,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *RedisStore) MarkCompleted(ctx context.Context, url, jobID string, result *model.AnalysisPayload, meta model.SourceMetadata) error {
	return s.put(ctx, model.JobRecord{
		URL:       url,
		JobID:     jobID,
		Status:    model.JobCompleted,
		Result:    result,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *RedisStore) MarkFailed(ctx context.Context, url, jobID, errMsg string) error {
	return s.put(ctx, model.JobRecord{
		URL:       url,
		JobID:     jobID,
		Status:    model.JobFailed,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *RedisStore) Get(ctx context.Context, url string) (*model.JobRecord, error) {
	data, err := s.client.Get(ctx, urlKeyPrefix+url).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", url)
	}

	var rec model.JobRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, eris.Wrap(err, "redis: unmarshal record")
	}
	return &rec, nil
}

func (s *RedisStore) GetByJobID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	url, err := s.client.Get(ctx, idKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get job %s", jobID)
	}
	return s.Get(ctx, url)
}

// put writes the record under both keys with the configured TTL.
func (s *RedisStore) put(ctx context.Context, rec model.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "redis: marshal record")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, urlKeyPrefix+rec.URL, data, s.ttl)
	pipe.Set(ctx, idKeyPrefix+rec.JobID, rec.URL, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "redis: store record %s", rec.JobID)
	}
	return nil
}
