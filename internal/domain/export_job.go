package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ExportJobStatus string

const (
	ExportQueued     ExportJobStatus = "queued"
	ExportProcessing ExportJobStatus = "processing"
	ExportCompleted  ExportJobStatus = "completed"
)

type ExportJob struct {
	ID          int             `json:"id"`
	UserID      int             `json:"user_id"`
	Status      ExportJobStatus `json:"status"`
	FilePath    null.String     `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt null.Time       `json:"completed_at"`
	DownloadURL string          `json:"download_url,omitempty"`
}

// ExportJobMessage is the queue payload handed to the export worker.
type ExportJobMessage struct {
	JobID int `json:"job_id"`
}
