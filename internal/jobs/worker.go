package jobs

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"parking_reservation/internal/repository"

	"github.com/google/uuid"
)

// Worker produces the per-user reservation CSV for a queued export job.
type Worker struct {
	jobRepo   repository.ExportJobRepository
	resRepo   repository.ReservationRepository
	exportDir string
}

func NewWorker(jobRepo repository.ExportJobRepository, resRepo repository.ReservationRepository, exportDir string) *Worker {
	return &Worker{jobRepo: jobRepo, resRepo: resRepo, exportDir: exportDir}
}

func (w *Worker) RunExportJob(ctx context.Context, jobID int) error {
	job, err := w.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading export job %d: %w", jobID, err)
	}

	if err := w.jobRepo.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("marking job %d processing: %w", job.ID, err)
	}

	reservations, err := w.resRepo.FindByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("loading reservations for user %d: %w", job.UserID, err)
	}

	if err := os.MkdirAll(w.exportDir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	// uuid suffix so a redelivered job never clobbers a finished file
	name := fmt.Sprintf("export_%d_%d_%s.csv", job.UserID, job.ID, uuid.NewString()[:8])
	path := filepath.Join(w.exportDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"reservation_id", "spot_id", "lot", "parked_at", "left_at", "cost"}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for _, res := range reservations {
		leftAt := ""
		if res.LeftAt.Valid {
			leftAt = res.LeftAt.Time.Format(timeLayout)
		}
		record := []string{
			strconv.Itoa(res.ID),
			strconv.Itoa(res.SpotID),
			res.LotName,
			res.ParkedAt.Format(timeLayout),
			leftAt,
			strconv.FormatFloat(res.Cost, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing export file: %w", err)
	}

	if err := w.jobRepo.MarkCompleted(ctx, job.ID, path); err != nil {
		return fmt.Errorf("marking job %d completed: %w", job.ID, err)
	}
	log.Printf("export job %d completed: %s", job.ID, path)
	return nil
}
