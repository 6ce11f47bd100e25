package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rescp17/s3tui/internal/util"
	"github.com/rescp17/s3tui/pkg/resumable"
	"github.com/rescp17/s3tui/pkg/transfer"
)

const copyBufferSize = 32 * 1024

// Download writes Bucket/Key to req.Destination. A partial file left by a
// paused or interrupted run is continued with a ranged request when its
// checkpoint still matches the object size.
func (t *Transferer) Download(ctx context.Context, req DownloadRequest) error {
	client, err := t.clients.Get(ctx, req.Creds)
	if err != nil {
		return err
	}

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	})
	if err != nil {
		if cause := stopCause(ctx); cause != nil {
			return cause
		}
		return wrap("HeadObject", req.Bucket, req.Key, err)
	}
	size := aws.ToInt64(head.ContentLength)

	if err := util.EnsureDirectory(filepath.Dir(req.Destination)); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	id, offset := t.resumePoint(req, size)
	f, err := openDestination(req.Destination, offset)
	if err != nil {
		t.forgetDownload(id)
		return err
	}
	defer f.Close()

	if id == "" && t.store != nil {
		id, err = t.store.AddDownload(resumable.DownloadParams{
			Bucket:          req.Bucket,
			Key:             req.Key,
			DestinationPath: req.Destination,
			TotalSize:       size,
			Credentials:     req.Creds.Info(),
		})
		if err != nil {
			slog.Warn("Failed to record download, it will not be resumable", "job", req.JobID, "error", err)
		}
	}

	written, err := t.fetch(ctx, client, req, f, offset, size, id)
	if err != nil {
		return t.stopDownload(ctx, req, f, id, written, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", req.Destination, err)
	}
	t.forgetDownload(id)
	slog.Info("Download completed", "job", req.JobID, "bucket", req.Bucket, "key", req.Key, "size", size, "resumed_at", offset)
	return nil
}

// resumePoint returns the checkpoint id and byte offset to continue from.
// A stale checkpoint is dropped and the download starts from zero.
func (t *Transferer) resumePoint(req DownloadRequest, size int64) (string, int64) {
	if t.store == nil {
		return "", 0
	}
	rec, ok := t.store.FindDownload(req.Bucket, req.Key, req.Destination)
	if !ok {
		return "", 0
	}

	n := rec.BytesDownloaded
	info, err := os.Stat(req.Destination)
	if rec.TotalSize == size && n > 0 && n < size && err == nil && info.Size() >= n {
		slog.Info("Resuming download", "job", req.JobID, "key", req.Key, "offset", n, "size", size)
		return rec.ID, n
	}
	t.forgetDownload(rec.ID)
	return "", 0
}

// openDestination truncates the file to offset and positions it there
func openDestination(path string, offset int64) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if offset == 0 {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if offset > 0 {
		if err := f.Truncate(offset); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek %s: %w", path, err)
		}
	}
	return f, nil
}

// fetch streams the object from offset into f and returns the total byte
// count on disk. Progress is checkpointed every DownloadPersistInterval.
func (t *Transferer) fetch(ctx context.Context, client S3API, req DownloadRequest, f *os.File, offset, size int64, id string) (int64, error) {
	if size == 0 {
		return 0, nil
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	}
	if offset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}
	out, err := client.GetObject(ctx, input)
	if err != nil {
		return offset, wrap("GetObject", req.Bucket, req.Key, err)
	}
	defer out.Body.Close()

	w := transfer.NewProgressWriter(f, size, t.progress, transfer.WithJobID(req.JobID), transfer.WithStartOffset(offset))
	buf := make([]byte, copyBufferSize)
	persisted := offset
	for {
		if cause := stopCause(ctx); cause != nil {
			return w.Bytes(), cause
		}
		n, readErr := out.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return w.Bytes(), fmt.Errorf("write %s: %w", req.Destination, err)
			}
		}
		if written := w.Bytes(); id != "" && written-persisted >= t.config.DownloadPersistInterval {
			t.checkpoint(f, id, written)
			persisted = written
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return w.Bytes(), wrap("GetObject", req.Bucket, req.Key, readErr)
		}
	}

	if written := w.Bytes(); written != size {
		return written, fmt.Errorf("%w: got %d of %d bytes for %s", io.ErrUnexpectedEOF, written, size, req.Key)
	}
	return size, nil
}

// checkpoint flushes f and records written bytes
func (t *Transferer) checkpoint(f *os.File, id string, written int64) {
	if err := f.Sync(); err != nil {
		slog.Warn("Failed to sync partial download", "path", f.Name(), "error", err)
		return
	}
	if err := t.store.UpdateDownloadProgress(id, written); err != nil {
		slog.Warn("Failed to checkpoint download", "id", id, "error", err)
	}
}

// stopDownload handles a download that did not finish. Pauses and plain
// failures keep the partial file and checkpoint for a later resume; a
// cancelled job removes both.
func (t *Transferer) stopDownload(ctx context.Context, req DownloadRequest, f *os.File, id string, written int64, err error) error {
	cause := stopCause(ctx)
	if cause != nil {
		err = cause
	}
	if discarded(ctx) {
		t.forgetDownload(id)
		f.Close()
		if rmErr := os.Remove(req.Destination); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("Failed to remove cancelled download", "path", req.Destination, "error", rmErr)
		}
		return err
	}
	if errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrObjectNotFound) {
		t.forgetDownload(id)
		return err
	}
	if id != "" && written > 0 {
		t.checkpoint(f, id, written)
	}
	if cause != nil {
		slog.Info("Download paused", "job", req.JobID, "key", req.Key, "bytes", written)
	}
	return err
}

func (t *Transferer) forgetDownload(id string) {
	if t.store == nil || id == "" {
		return
	}
	if err := t.store.RemoveDownload(id); err != nil {
		slog.Warn("Failed to remove download checkpoint", "id", id, "error", err)
	}
}
