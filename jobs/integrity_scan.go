package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-hq/meridian/internal/jobs"
	"github.com/meridian-hq/meridian/internal/navigation"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NodeLister loads the full node set for integrity checks.
type NodeLister interface {
	ListAllNodes(ctx context.Context) ([]navigation.Node, error)
}

// IntegrityScanJob verifies the menu node graph: no cycles, no orphan
// parents, cached levels consistent, sort_order unique per sibling group.
type IntegrityScanJob struct {
	Nodes   NodeLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob wires dependencies for the scan handler.
func NewIntegrityScanJob(nodes NodeLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Nodes: nodes, Logger: logger, Metrics: metrics}
}

// Handle processes nav:integrity_scan tasks.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Nodes == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskNavIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	logger.Info("starting integrity scan")

	nodes, err := j.Nodes.ListAllNodes(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load nodes", slog.Any("error", err))
		return resultErr
	}

	findings := j.scan(nodes, logger)
	if findings > 0 && payload.FailOnFindings {
		resultErr = fmt.Errorf("integrity scan: %d findings", findings)
		return resultErr
	}

	logger.Info("completed integrity scan",
		slog.Int("nodes", len(nodes)),
		slog.Int("findings", findings),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *IntegrityScanJob) scan(nodes []navigation.Node, logger *slog.Logger) int {
	findings := 0
	byID := make(map[int64]navigation.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	if err := navigation.ValidateForest(nodes); err != nil {
		findings++
		j.metrics().AddFindings("cycle", 1)
		logger.Error("parent graph invalid", slog.Any("error", err))
	}

	type slot struct {
		parent int64
		order  int
	}
	seen := make(map[slot]int64, len(nodes))
	for _, n := range nodes {
		var parentKey int64
		if n.ParentID != nil {
			parent, ok := byID[*n.ParentID]
			if !ok {
				findings++
				j.metrics().AddFindings("orphan", 1)
				logger.Error("orphan parent reference",
					slog.Int64("node", n.ID), slog.Int64("parent", *n.ParentID))
				continue
			}
			parentKey = parent.ID
			if n.Level != parent.Level+1 {
				findings++
				j.metrics().AddFindings("level", 1)
				logger.Error("cached level mismatch",
					slog.Int64("node", n.ID), slog.Int("level", n.Level), slog.Int("parent_level", parent.Level))
			}
		} else if n.Level != 0 {
			findings++
			j.metrics().AddFindings("level", 1)
			logger.Error("root node with non-zero level",
				slog.Int64("node", n.ID), slog.Int("level", n.Level))
		}

		key := slot{parent: parentKey, order: n.SortOrder}
		if other, dup := seen[key]; dup {
			findings++
			j.metrics().AddFindings("sort_order", 1)
			logger.Error("duplicate sort_order in sibling group",
				slog.Int64("node", n.ID), slog.Int64("other", other), slog.Int("sort_order", n.SortOrder))
		} else {
			seen[key] = n.ID
		}
	}
	return findings
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskNavIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskNavIntegrityScan))
}

func (j *IntegrityScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
