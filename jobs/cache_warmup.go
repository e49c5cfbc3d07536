package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-hq/meridian/internal/jobs"
	"github.com/meridian-hq/meridian/internal/navigation"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

// CacheWarmupJob pre-resolves navigation trees for active subjects so the
// first request after an invalidation is served from cache.
type CacheWarmupJob struct {
	Navigation *navigation.Service
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(nav *navigation.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{Navigation: nav, Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes nav:cache_warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Navigation == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskNavCacheWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	logger.Info("starting cache warmup")

	subjects, err := j.fetchSubjects(ctx, payload.SubjectLimit)
	if err != nil {
		resultErr = err
		logger.Error("load warmup subjects", slog.Any("error", err))
		return resultErr
	}
	if len(subjects) == 0 {
		logger.Info("no subjects discovered for warmup")
		return resultErr
	}

	warmed := 0
	for _, subjectID := range subjects {
		if err := j.warmSubject(ctx, subjectID); err != nil {
			resultErr = err
			logger.Error("warm subject", slog.Int64("subject", subjectID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed cache warmup",
		slog.Int("subjects", warmed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

// warmSubject resolves the subject's home context tree. The home context is
// what a fresh session lands on, so it is the entry with the highest hit rate.
func (j *CacheWarmupJob) warmSubject(ctx context.Context, subjectID int64) error {
	subjectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	_, err := j.Navigation.ResolveTree(subjectCtx, subjectID, tenancy.None(), false)
	return err
}

func (j *CacheWarmupJob) fetchSubjects(ctx context.Context, limit int) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("cache warmup: pool not configured")
	}
	query := `
		SELECT DISTINCT u.id
		FROM users u
		JOIN role_assignments ra ON ra.user_id = u.id
			AND ra.status = 'active' AND ra.deleted_at IS NULL
		WHERE u.is_active AND u.deleted_at IS NULL
		ORDER BY u.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subjects = append(subjects, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskNavCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskNavCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
