package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/model"
)

const (
	jobRetention = 7 * 24 * time.Hour

	// casRetries bounds the optimistic-lock retry loop. Contention is per-job
	// and short-lived (unit completions), so a handful of retries suffices.
	casRetries = 8
)

// RedisStore implements JobStore on Redis. Job records are JSON blobs under
// job:<id>; mutations run inside a WATCH transaction so a concurrent write
// between read and save aborts and retries the whole mutation.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(jobID string) string         { return fmt.Sprintf("job:%s", jobID) }
func projectKey(projectID string) string { return fmt.Sprintf("project:%s", projectID) }
func projectJobKey(projectID string) string {
	return fmt.Sprintf("project_job:%s", projectID)
}

func (s *RedisStore) CreateJob(ctx context.Context, job *model.GenerationJob) error {
	if err := checkInvariants(job); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.ID), data, jobRetention)
		pipe.Set(ctx, projectJobKey(job.ProjectID), job.ID, jobRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *RedisStore) GetJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound("job %s not found", jobID)
		}
		return nil, err
	}
	var job model.GenerationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) GetJobByProject(ctx context.Context, projectID string) (*model.GenerationJob, error) {
	jobID, err := s.client.Get(ctx, projectJobKey(projectID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound("no job for project %s", projectID)
		}
		return nil, err
	}
	return s.GetJob(ctx, jobID)
}

func (s *RedisStore) UpdateJob(ctx context.Context, jobID string, mutate func(job *model.GenerationJob) error) (*model.GenerationJob, error) {
	key := jobKey(jobID)
	var updated *model.GenerationJob

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return apperr.NotFound("job %s not found", jobID)
			}
			return err
		}

		var job model.GenerationJob
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}

		if err := mutate(&job); err != nil {
			return err
		}
		if err := checkInvariants(&job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now()

		out, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, jobRetention)
			return nil
		})
		if err == nil {
			updated = &job
		}
		return err
	}

	for i := 0; i < casRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("job %s update contended beyond %d retries", jobID, casRetries)
}

func (s *RedisStore) DeleteJob(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, jobKey(jobID)).Err()
}

func (s *RedisStore) SaveProject(ctx context.Context, project *model.Project) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	return s.client.Set(ctx, projectKey(project.ID), data, 0).Err()
}

func (s *RedisStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	data, err := s.client.Get(ctx, projectKey(projectID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound("project %s not found", projectID)
		}
		return nil, err
	}
	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &project, nil
}

func (s *RedisStore) DeleteProject(ctx context.Context, projectID string) error {
	jobID, err := s.client.Get(ctx, projectJobKey(projectID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if jobID != "" {
			pipe.Del(ctx, jobKey(jobID))
		}
		pipe.Del(ctx, projectJobKey(projectID))
		pipe.Del(ctx, projectKey(projectID))
		return nil
	})
	return err
}
