package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu     sync.Mutex
	jobIDs []int
	err    error
}

func (q *fakeQueue) EnqueueExport(ctx context.Context, jobID int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobIDs = append(q.jobIDs, jobID)
	return nil
}

func TestRequestExportEnqueuesJob(t *testing.T) {
	store := newMemStore()
	queue := &fakeQueue{}
	svc := NewExportService(memExportRepo{store}, queue)
	principal := domain.Principal{UserID: 9, Role: domain.RoleUser}

	job, err := svc.RequestExport(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportQueued, job.Status)
	assert.Equal(t, 9, job.UserID)
	assert.Equal(t, []int{job.ID}, queue.jobIDs)
}

func TestRequestExportQueueFailure(t *testing.T) {
	store := newMemStore()
	queue := &fakeQueue{err: errors.New("queue unavailable")}
	svc := NewExportService(memExportRepo{store}, queue)

	_, err := svc.RequestExport(context.Background(), domain.Principal{UserID: 9})
	assert.Error(t, err)
}

func TestListExportsOnlyOwn(t *testing.T) {
	store := newMemStore()
	svc := NewExportService(memExportRepo{store}, &fakeQueue{})
	ctx := context.Background()

	_, err := svc.RequestExport(ctx, domain.Principal{UserID: 1})
	require.NoError(t, err)
	_, err = svc.RequestExport(ctx, domain.Principal{UserID: 2})
	require.NoError(t, err)

	jobs, err := svc.ListExports(ctx, domain.Principal{UserID: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].UserID)
}

func TestExportFilePathOwnershipAndCompletion(t *testing.T) {
	store := newMemStore()
	svc := NewExportService(memExportRepo{store}, &fakeQueue{})
	ctx := context.Background()
	owner := domain.Principal{UserID: 1}

	job, err := svc.RequestExport(ctx, owner)
	require.NoError(t, err)

	// still queued: no file yet
	_, err = svc.ExportFilePath(ctx, owner, job.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.MarkCompleted(ctx, job.ID, "/tmp/export.csv"))

	path, err := svc.ExportFilePath(ctx, owner, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/export.csv", path)

	// another user's job is reported as not found
	_, err = svc.ExportFilePath(ctx, domain.Principal{UserID: 2}, job.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
