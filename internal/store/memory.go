package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/model"
)

// MemoryStore is an in-process JobStore used by tests and when Redis is not
// configured in development. It is not restart-safe.
type MemoryStore struct {
	mu          sync.Mutex
	jobs        map[string]*model.GenerationJob
	projects    map[string]*model.Project
	projectJobs map[string]string // projectID → latest jobID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:        make(map[string]*model.GenerationJob),
		projects:    make(map[string]*model.Project),
		projectJobs: make(map[string]string),
	}
}

// cloneJob deep-copies a record so callers never alias stored state.
func cloneJob(job *model.GenerationJob) *model.GenerationJob {
	data, _ := json.Marshal(job)
	var out model.GenerationJob
	_ = json.Unmarshal(data, &out)
	return &out
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *model.GenerationJob) error {
	if err := checkInvariants(job); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	s.projectJobs[job.ProjectID] = job.ID
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) GetJobByProject(ctx context.Context, projectID string) (*model.GenerationJob, error) {
	s.mu.Lock()
	jobID, ok := s.projectJobs[projectID]
	s.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("no job for project %s", projectID)
	}
	return s.GetJob(ctx, jobID)
}

func (s *MemoryStore) UpdateJob(ctx context.Context, jobID string, mutate func(job *model.GenerationJob) error) (*model.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[jobID]
	if !ok {
		return nil, apperr.NotFound("job %s not found", jobID)
	}

	job := cloneJob(current)
	if err := mutate(job); err != nil {
		return nil, err
	}
	if err := checkInvariants(job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now()
	s.jobs[jobID] = job
	return cloneJob(job), nil
}

func (s *MemoryStore) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *MemoryStore) SaveProject(ctx context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *project
	s.projects[project.ID] = &p
	return nil
}

func (s *MemoryStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, apperr.NotFound("project %s not found", projectID)
	}
	p := *project
	return &p, nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID, ok := s.projectJobs[projectID]; ok {
		delete(s.jobs, jobID)
	}
	delete(s.projectJobs, projectID)
	delete(s.projects, projectID)
	return nil
}
