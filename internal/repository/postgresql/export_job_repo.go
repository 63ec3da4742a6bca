package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

type pgExportJobRepository struct {
	db *sql.DB
}

func NewPgExportJobRepository(db *sql.DB) repository.ExportJobRepository {
	return &pgExportJobRepository{db: db}
}

func (r *pgExportJobRepository) Create(ctx context.Context, userID int) (*domain.ExportJob, error) {
	job := &domain.ExportJob{UserID: userID, Status: domain.ExportQueued}
	query := `INSERT INTO export_jobs (user_id, status) VALUES ($1, 'queued') RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&job.ID, &job.CreatedAt); err != nil {
		return nil, fmt.Errorf("ExportJobRepository.Create: %w", err)
	}
	return job, nil
}

func (r *pgExportJobRepository) FindByID(ctx context.Context, id int) (*domain.ExportJob, error) {
	job := &domain.ExportJob{}
	query := `SELECT id, user_id, status, file_path, created_at, completed_at FROM export_jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&job.ID, &job.UserID, &job.Status, &job.FilePath, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ExportJobRepository.FindByID: %w", err)
	}
	return job, nil
}

func (r *pgExportJobRepository) FindByUserID(ctx context.Context, userID int) ([]domain.ExportJob, error) {
	query := `SELECT id, user_id, status, file_path, created_at, completed_at
	           FROM export_jobs WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ExportJobRepository.FindByUserID: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ExportJob
	for rows.Next() {
		var job domain.ExportJob
		if err := rows.Scan(&job.ID, &job.UserID, &job.Status, &job.FilePath, &job.CreatedAt, &job.CompletedAt); err != nil {
			return nil, fmt.Errorf("ExportJobRepository.FindByUserID (scanning row): %w", err)
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ExportJobRepository.FindByUserID (rows error): %w", err)
	}
	return jobs, nil
}

func (r *pgExportJobRepository) MarkProcessing(ctx context.Context, id int) error {
	return r.setStatus(ctx, `UPDATE export_jobs SET status = 'processing' WHERE id = $1`, id)
}

func (r *pgExportJobRepository) MarkCompleted(ctx context.Context, id int, filePath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE export_jobs SET status = 'completed', file_path = $1, completed_at = CURRENT_TIMESTAMP WHERE id = $2`,
		filePath, id)
	if err != nil {
		return fmt.Errorf("ExportJobRepository.MarkCompleted: %w", err)
	}
	return checkAffected(result)
}

func (r *pgExportJobRepository) setStatus(ctx context.Context, query string, id int) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ExportJobRepository status update: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
