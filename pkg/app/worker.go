package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/s3client"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// ErrItemNotFound is returned when a job or row has no selected item
var ErrItemNotFound = errors.New("selected item not found")

// runWorker admits jobs from the manager one at a time until ctx is done.
// The manager's permits bound how many workers are busy at once.
func (a *App) runWorker(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, ok := a.manager.TryGetNext()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(a.config.PollInterval):
			}
			continue
		}
		a.runJob(job)
	}
}

func (a *App) runJob(job transfer.ActiveJob) {
	id := job.Job.ID
	err := a.execute(job)

	switch {
	case err == nil:
		a.complete(job)
	case job.Ctx.Err() != nil:
		// Paused, cancelled or shutting down; the manager already moved it.
		slog.Debug("Job stopped", "job", id, "cause", context.Cause(job.Ctx))
	default:
		if markErr := a.manager.MarkFailed(id, err.Error()); markErr != nil {
			slog.Debug("Failed job was no longer active", "job", id, "error", markErr)
		}
	}
}

// complete records a transfer that returned nil. A pause that landed after
// the bytes were written would otherwise leave a finished job paused.
func (a *App) complete(job transfer.ActiveJob) {
	id := job.Job.ID
	err := a.manager.MarkCompleted(id)
	if err != nil && errors.Is(context.Cause(job.Ctx), transfer.ErrPaused) {
		err = a.manager.CompletePaused(id)
	}
	if err != nil {
		slog.Debug("Completed job was no longer active", "job", id, "error", err)
	}
}

func (a *App) execute(job transfer.ActiveJob) error {
	id := job.Job.ID

	a.mu.Lock()
	var upload *s3client.UploadRequest
	var download *s3client.DownloadRequest
	switch job.Job.Direction {
	case transfer.Download:
		if item, ok := model.FindS3(a.s3Items, id); ok {
			download = &s3client.DownloadRequest{
				JobID:       id,
				Bucket:      item.Bucket,
				Key:         item.Key(),
				Destination: item.LocalPath(),
				Creds:       item.Creds,
			}
		}
	case transfer.Upload:
		if item, ok := model.FindLocal(a.localItems, id); ok {
			upload = &s3client.UploadRequest{
				JobID:     id,
				LocalPath: item.Path,
				Bucket:    item.DestinationBucket,
				Key:       item.DestinationKey(),
				Creds:     item.Creds,
			}
		}
	}
	a.bytes[id] = progressEntry{startedAt: a.now()}
	a.mu.Unlock()

	switch {
	case download != nil:
		slog.Info("Starting download", "job", id, "bucket", download.Bucket, "key", download.Key)
		return a.plane.Download(job.Ctx, *download)
	case upload != nil:
		slog.Info("Starting upload", "job", id, "bucket", upload.Bucket, "key", upload.Key)
		return a.plane.Upload(job.Ctx, *upload)
	default:
		return ErrItemNotFound
	}
}
