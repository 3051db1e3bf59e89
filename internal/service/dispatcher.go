package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/homereel/api/internal/model"
)

const (
	TaskTypeGeneration = "generation:process"
	TaskTypeRetry      = "generation:retry"

	QueueGeneration = "generation"
)

// Dispatcher hands generation work to the background worker. The production
// implementation enqueues through asynq; tests substitute an in-process one.
type Dispatcher interface {
	EnqueueGeneration(ctx context.Context, payload *model.GenerationTaskPayload) error
	EnqueueRetry(ctx context.Context, payload *model.RetryTaskPayload) error
}

// AsynqDispatcher enqueues tasks on the Redis-backed queue. Queue delivery
// survives a process restart, so a job interrupted mid-generation is
// re-delivered and resumes from its persisted unit states.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) EnqueueGeneration(ctx context.Context, payload *model.GenerationTaskPayload) error {
	return d.enqueue(ctx, TaskTypeGeneration, payload)
}

func (d *AsynqDispatcher) EnqueueRetry(ctx context.Context, payload *model.RetryTaskPayload) error {
	return d.enqueue(ctx, TaskTypeRetry, payload)
}

func (d *AsynqDispatcher) enqueue(ctx context.Context, taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	_, err = d.client.EnqueueContext(ctx, asynq.NewTask(taskType, data),
		asynq.Queue(QueueGeneration),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}
