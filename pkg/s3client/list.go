package s3client

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rescp17/s3tui/pkg/credentials"
)

// Object is one listed key
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListObjects returns every object under prefix, following pagination
func (t *Transferer) ListObjects(ctx context.Context, creds credentials.FileCredential, bucket, prefix string) ([]Object, error) {
	client, err := t.clients.Get(ctx, creds)
	if err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("ListObjectsV2", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// ListBuckets returns the bucket names visible to creds
func (t *Transferer) ListBuckets(ctx context.Context, creds credentials.FileCredential) ([]string, error) {
	client, err := t.clients.Get(ctx, creds)
	if err != nil {
		return nil, err
	}
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, wrap("ListBuckets", "", "", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}
