package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNavIntegrityScan verifies the menu node graph stays well formed.
	TaskNavIntegrityScan = "nav:integrity_scan"
	// TaskNavCacheWarmup pre-resolves navigation trees for active subjects.
	TaskNavCacheWarmup = "nav:cache_warmup"
)

// IntegrityScanPayload configures one integrity scan run.
type IntegrityScanPayload struct {
	// FailOnFindings makes the task fail (and retry) when the scan finds
	// defects, instead of only logging them.
	FailOnFindings bool `json:"fail_on_findings"`
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNavIntegrityScan, data), nil
}

// CacheWarmupPayload configures one cache warmup run.
type CacheWarmupPayload struct {
	// SubjectLimit caps how many subjects are warmed per run; 0 means all.
	SubjectLimit int `json:"subject_limit"`
}

// NewCacheWarmupTask constructs an Asynq task.
func NewCacheWarmupTask(payload CacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNavCacheWarmup, data), nil
}
