package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/receiving/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer recomputes cached statistics and reports how many entries it stored.
type Warmer interface {
	Warm(ctx context.Context) (int, error)
}

// StatisticsWarmupJob refreshes the dashboard statistics cache.
type StatisticsWarmupJob struct {
	Statistics Warmer
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Timeout    time.Duration
}

// NewStatisticsWarmupJob wires dependencies for the warmup handler.
func NewStatisticsWarmupJob(stats Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatisticsWarmupJob {
	return &StatisticsWarmupJob{Statistics: stats, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes statistics warmup tasks.
func (j *StatisticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Statistics == nil {
		return errors.New("statistics warmup: handler not configured")
	}
	var payload StatisticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskStatisticsWarmup)
	logger := jobLogger(j.Logger, TaskStatisticsWarmup).With(slog.String("reason", payload.Reason))

	runCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	started := time.Now()
	warmed, err := j.Statistics.Warm(runCtx)
	if err != nil {
		logger.Error("warm statistics", slog.Any("error", err))
		return tracker.End(err)
	}
	tracker.Add(warmed)
	logger.Info("completed statistics warmup", slog.Int("keys", warmed), slog.Duration("duration", time.Since(started)))
	return tracker.End(nil)
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
