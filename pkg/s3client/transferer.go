package s3client

import (
	"context"
	"errors"
	"time"

	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/resumable"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// UploadRequest uploads LocalPath to Bucket/Key
type UploadRequest struct {
	JobID     transfer.JobID
	LocalPath string
	Bucket    string
	Key       string
	Creds     credentials.FileCredential
}

// DownloadRequest downloads Bucket/Key to the file Destination
type DownloadRequest struct {
	JobID       transfer.JobID
	Bucket      string
	Key         string
	Destination string
	Creds       credentials.FileCredential
}

// Transferer runs single transfers. Progress is reported on the shared
// channel; large transfers checkpoint into the resumable store when one
// is configured.
type Transferer struct {
	clients  *ClientCache
	store    *resumable.Store
	config   *transfer.TransferConfig
	progress chan<- transfer.Progress
}

func NewTransferer(clients *ClientCache, store *resumable.Store, config *transfer.TransferConfig, progress chan<- transfer.Progress) *Transferer {
	if config == nil {
		config = transfer.DefaultTransferConfig()
	}
	return &Transferer{
		clients:  clients,
		store:    store,
		config:   config,
		progress: progress,
	}
}

// stopCause returns the reason ctx was stopped, or nil
func stopCause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}

// discarded reports whether the job was cancelled by the user, as opposed
// to paused or interrupted by shutdown.
func discarded(ctx context.Context) bool {
	return ctx.Err() != nil && errors.Is(context.Cause(ctx), context.Canceled)
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return stopCause(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return stopCause(ctx)
	case <-timer.C:
		return nil
	}
}
