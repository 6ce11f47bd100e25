package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rescp17/s3tui/pkg/fileInfo"
	"github.com/rescp17/s3tui/pkg/resumable"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// Upload sends a local file. Files at or above the multipart threshold go
// through a resumable multipart upload. A paused job returns
// transfer.ErrPaused and a cancelled one context.Canceled.
func (t *Transferer) Upload(ctx context.Context, req UploadRequest) error {
	client, err := t.clients.Get(ctx, req.Creds)
	if err != nil {
		return err
	}

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", req.LocalPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", req.LocalPath, err)
	}
	contentType := fileInfo.DetectContentType(req.LocalPath)

	if t.config.ShouldUseMultipart(info.Size()) {
		return t.uploadMultipart(ctx, client, req, f, info.Size(), contentType)
	}
	return t.uploadSimple(ctx, client, req, f, info.Size(), contentType)
}

func (t *Transferer) uploadSimple(ctx context.Context, client S3API, req UploadRequest, f *os.File, size int64, contentType string) error {
	body := transfer.NewProgressReader(f, size, t.progress, transfer.WithJobID(req.JobID))
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(req.Bucket),
		Key:           aws.String(req.Key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		if cause := stopCause(ctx); cause != nil {
			return cause
		}
		return wrap("PutObject", req.Bucket, req.Key, err)
	}
	slog.Info("Upload completed", "job", req.JobID, "bucket", req.Bucket, "key", req.Key, "size", size)
	return nil
}

// upload holds the state of one multipart upload while it runs
type upload struct {
	id       string
	uploadID string
	partSize int64
	parts    map[int32]string
}

func (t *Transferer) uploadMultipart(ctx context.Context, client S3API, req UploadRequest, f *os.File, size int64, contentType string) error {
	up, err := t.startMultipart(ctx, client, req, size, contentType)
	if err != nil {
		return err
	}

	totalParts := int32(transfer.TotalParts(size, up.partSize))
	confirmed := resumable.ResumableUpload{FileSize: size, PartSize: up.partSize, CompletedParts: up.parts}.ConfirmedBytes()
	if len(up.parts) > 0 {
		slog.Info("Resuming multipart upload", "job", req.JobID, "key", req.Key,
			"completed_parts", len(up.parts), "total_parts", totalParts)
	}

	for part := int32(1); part <= totalParts; part++ {
		if _, done := up.parts[part]; done {
			continue
		}
		if cause := stopCause(ctx); cause != nil {
			return t.stopMultipart(ctx, client, req, up, cause)
		}

		offset := int64(part-1) * up.partSize
		length := min(up.partSize, size-offset)
		etag, err := t.uploadPart(ctx, client, req, up, f, part, offset, length, size, confirmed)
		if err != nil {
			if cause := stopCause(ctx); cause != nil {
				return t.stopMultipart(ctx, client, req, up, cause)
			}
			if errors.Is(err, ErrUploadNotFound) {
				t.forget(up.id)
			}
			return err
		}

		up.parts[part] = etag
		confirmed += length
		if up.id != "" {
			if err := t.store.UpdateUploadPart(up.id, part, etag); err != nil {
				slog.Warn("Failed to checkpoint upload part", "job", req.JobID, "part", part, "error", err)
			}
		}
	}

	return t.completeMultipart(ctx, client, req, up)
}

// startMultipart reuses a matching checkpoint or creates a new upload
func (t *Transferer) startMultipart(ctx context.Context, client S3API, req UploadRequest, size int64, contentType string) (*upload, error) {
	if t.store != nil {
		if rec, ok := t.store.FindUpload(req.LocalPath, req.Bucket, req.Key, size); ok && rec.PartSize > 0 {
			return &upload{id: rec.ID, uploadID: rec.UploadID, partSize: rec.PartSize, parts: rec.CompletedParts}, nil
		}
	}

	out, err := client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(req.Bucket),
		Key:         aws.String(req.Key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, wrap("CreateMultipartUpload", req.Bucket, req.Key, err)
	}

	up := &upload{
		uploadID: aws.ToString(out.UploadId),
		partSize: t.config.PartSizeFor(size),
		parts:    make(map[int32]string),
	}
	if t.store != nil {
		id, err := t.store.AddUpload(resumable.UploadParams{
			UploadID:    up.uploadID,
			SourcePath:  req.LocalPath,
			Bucket:      req.Bucket,
			Key:         req.Key,
			FileSize:    size,
			PartSize:    up.partSize,
			Credentials: req.Creds.Info(),
		})
		if err != nil {
			slog.Warn("Failed to record multipart upload, it will not be resumable", "job", req.JobID, "error", err)
		}
		up.id = id
	}
	return up, nil
}

// uploadPart sends one part with a fixed number of attempts
func (t *Transferer) uploadPart(ctx context.Context, client S3API, req UploadRequest, up *upload, f *os.File, part int32, offset, length, size, confirmed int64) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= t.config.MaxPartAttempts; attempt++ {
		body := transfer.NewProgressReader(io.NewSectionReader(f, offset, length), size, t.progress,
			transfer.WithJobID(req.JobID), transfer.WithStartOffset(confirmed))
		out, err := client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(req.Bucket),
			Key:           aws.String(req.Key),
			UploadId:      aws.String(up.uploadID),
			PartNumber:    aws.Int32(part),
			Body:          body,
			ContentLength: aws.Int64(length),
		})
		if err == nil {
			return aws.ToString(out.ETag), nil
		}

		lastErr = wrap("UploadPart", req.Bucket, req.Key, err)
		if stopCause(ctx) != nil || errors.Is(lastErr, ErrUploadNotFound) {
			return "", lastErr
		}
		slog.Warn("Part upload failed", "job", req.JobID, "part", part, "attempt", attempt, "error", lastErr)
		if attempt < t.config.MaxPartAttempts {
			if err := sleep(ctx, t.config.PartRetryDelay); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("part %d failed after %d attempts: %w", part, t.config.MaxPartAttempts, lastErr)
}

func (t *Transferer) completeMultipart(ctx context.Context, client S3API, req UploadRequest, up *upload) error {
	numbers := make([]int32, 0, len(up.parts))
	for n := range up.parts {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	completed := make([]types.CompletedPart, 0, len(numbers))
	for _, n := range numbers {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(up.parts[n]),
			PartNumber: aws.Int32(n),
		})
	}

	_, err := client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(req.Bucket),
		Key:             aws.String(req.Key),
		UploadId:        aws.String(up.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		if cause := stopCause(ctx); cause != nil {
			return t.stopMultipart(ctx, client, req, up, cause)
		}
		t.abort(client, req, up)
		return wrap("CompleteMultipartUpload", req.Bucket, req.Key, err)
	}

	if up.id != "" {
		if err := t.store.CompleteUpload(up.id); err != nil {
			slog.Warn("Failed to clear upload checkpoint", "job", req.JobID, "error", err)
		}
	}
	slog.Info("Multipart upload completed", "job", req.JobID, "bucket", req.Bucket, "key", req.Key, "parts", len(completed))
	return nil
}

// stopMultipart keeps the checkpoint for a paused job and throws the
// upload away for a cancelled one.
func (t *Transferer) stopMultipart(ctx context.Context, client S3API, req UploadRequest, up *upload, cause error) error {
	if discarded(ctx) {
		t.abort(client, req, up)
	} else {
		slog.Info("Multipart upload paused", "job", req.JobID, "key", req.Key, "completed_parts", len(up.parts))
	}
	return cause
}

// abort cancels the server side upload and drops its checkpoint. It runs
// on a fresh context since the job context is usually done by now.
func (t *Transferer) abort(client S3API, req UploadRequest, up *upload) {
	_, err := client.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(req.Bucket),
		Key:      aws.String(req.Key),
		UploadId: aws.String(up.uploadID),
	})
	if err != nil {
		slog.Warn("Failed to abort multipart upload", "job", req.JobID, "upload_id", up.uploadID, "error", err)
	}
	t.forget(up.id)
}

func (t *Transferer) forget(id string) {
	if t.store == nil || id == "" {
		return
	}
	if err := t.store.RemoveUpload(id); err != nil {
		slog.Warn("Failed to remove upload checkpoint", "id", id, "error", err)
	}
}
