package service

import (
	"context"
	"fmt"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

// ExportQueue hands an export job off to the background worker. The call
// must return without waiting for the job to run.
type ExportQueue interface {
	EnqueueExport(ctx context.Context, jobID int) error
}

type ExportService struct {
	jobRepo repository.ExportJobRepository
	queue   ExportQueue
}

func NewExportService(jobRepo repository.ExportJobRepository, queue ExportQueue) *ExportService {
	return &ExportService{jobRepo: jobRepo, queue: queue}
}

// RequestExport records the job and enqueues it; the CSV is produced
// asynchronously by the worker.
func (s *ExportService) RequestExport(ctx context.Context, principal domain.Principal) (*domain.ExportJob, error) {
	job, err := s.jobRepo.Create(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("creating export job: %w", err)
	}
	if err := s.queue.EnqueueExport(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("enqueueing export job %d: %w", job.ID, err)
	}
	return job, nil
}

func (s *ExportService) ListExports(ctx context.Context, principal domain.Principal) ([]domain.ExportJob, error) {
	return s.jobRepo.FindByUserID(ctx, principal.UserID)
}

// ExportFilePath returns the file path for a completed export owned by the
// caller; anything else is reported as not found.
func (s *ExportService) ExportFilePath(ctx context.Context, principal domain.Principal, jobID int) (string, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.UserID != principal.UserID || !job.FilePath.Valid {
		return "", repository.ErrNotFound
	}
	return job.FilePath.String, nil
}
