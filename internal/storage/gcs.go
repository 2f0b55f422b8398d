package storage

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
)

// NewGCSStore opens a Google Cloud Storage bucket.
func NewGCSStore(ctx context.Context, bucketName, prefix string) (*BucketStore, error) {
	bucketURL := fmt.Sprintf("gs://%s", bucketName)

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open GCS bucket %s: %w", bucketName, err)
	}

	return NewBucketStore(bucket, bucketURL, prefix), nil
}
