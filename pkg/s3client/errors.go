package s3client

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	ErrObjectNotFound = errors.New("s3: object not found")
	ErrBucketNotFound = errors.New("s3: bucket not found")
	ErrAccessDenied   = errors.New("s3: access denied")
	ErrInvalidRange   = errors.New("s3: invalid range")
	ErrUploadNotFound = errors.New("s3: multipart upload not found")
)

// Error is a failed S3 operation with the bucket and key it targeted
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("s3.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap classifies err by its API error code and attaches operation context.
// Context errors are returned untouched.
func wrap(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		var sentinel error
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			sentinel = ErrObjectNotFound
		case "NoSuchBucket":
			sentinel = ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			sentinel = ErrAccessDenied
		case "InvalidRange":
			sentinel = ErrInvalidRange
		case "NoSuchUpload":
			sentinel = ErrUploadNotFound
		}
		if sentinel != nil {
			err = fmt.Errorf("%w: %s", sentinel, apiErr.ErrorMessage())
		}
	}
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}
