package service

import (
	"context"
	"fmt"

	"app/internal/model"
	"app/internal/repository"
)

// JobService reads synced job-board listings. Writes come only from the
// scraper's sync webhook.
type JobService interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, includeArchived bool, limit, offset int) ([]model.Job, error)
	// Sync upserts a scraper batch and returns the number of rows written.
	// Archived listings are left untouched.
	Sync(ctx context.Context, jobs []model.Job) (int, error)
}

type jobService struct {
	jobRepo repository.JobRepository
}

// NewJobService creates a new JobService.
func NewJobService(jobRepo repository.JobRepository) JobService {
	return &jobService{jobRepo: jobRepo}
}

func (s *jobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *jobService) List(ctx context.Context, includeArchived bool, limit, offset int) ([]model.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.jobRepo.List(ctx, includeArchived, limit, offset)
}

func (s *jobService) Sync(ctx context.Context, jobs []model.Job) (int, error) {
	for i := range jobs {
		if err := s.jobRepo.UpsertJob(ctx, &jobs[i]); err != nil {
			return i, fmt.Errorf("syncing job %s: %w", jobs[i].ID, err)
		}
	}
	return len(jobs), nil
}
