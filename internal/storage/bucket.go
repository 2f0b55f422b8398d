package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// BucketStore writes documents to a gocloud blob bucket. It backs the GCS
// and S3 stores and serves in-memory buckets in tests.
type BucketStore struct {
	bucket  *blob.Bucket
	baseURI string // e.g. "gs://name"
	prefix  string
}

// NewBucketStore wraps an open bucket. baseURI is used to build URIs.
func NewBucketStore(bucket *blob.Bucket, baseURI, prefix string) *BucketStore {
	return &BucketStore{
		bucket:  bucket,
		baseURI: strings.TrimSuffix(baseURI, "/"),
		prefix:  prefix,
	}
}

func (s *BucketStore) key(key string) string {
	return s.prefix + key
}

// Write uploads data under key.
func (s *BucketStore) Write(ctx context.Context, key string, data []byte) error {
	return s.write(ctx, s.key(key), data)
}

func (s *BucketStore) write(ctx context.Context, path string, data []byte) error {
	w, err := s.bucket.NewWriter(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", path, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", path, err)
	}

	return nil
}

// Read downloads the object stored under key.
func (s *BucketStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, s.key(key))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Exists checks if an object is stored under key.
func (s *BucketStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, s.key(key))
}

// URI returns the canonical URI for the given key.
func (s *BucketStore) URI(key string) string {
	return s.baseURI + "/" + s.key(key)
}

// Close releases the bucket connection.
func (s *BucketStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

// --- AtomicStore implementation ---

// WriteTemp writes data to a temporary key next to key.
func (s *BucketStore) WriteTemp(ctx context.Context, key string, data []byte) (string, error) {
	tempKey := s.key(key) + ".tmp." + uuid.New().String()
	if err := s.write(ctx, tempKey, data); err != nil {
		return "", err
	}
	return tempKey, nil
}

// Finalize moves the temp object to key using copy + delete.
func (s *BucketStore) Finalize(ctx context.Context, key, tempKey string) error {
	finalKey := s.key(key)
	if err := s.bucket.Copy(ctx, finalKey, tempKey, nil); err != nil {
		s.bucket.Delete(ctx, tempKey)
		return fmt.Errorf("finalize %s -> %s: %w", tempKey, finalKey, err)
	}
	s.bucket.Delete(ctx, tempKey) // ignore errors
	return nil
}

// Abort removes temporary objects without publishing.
func (s *BucketStore) Abort(ctx context.Context, tempKeys []string) error {
	var lastErr error
	for _, key := range tempKeys {
		if err := s.bucket.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Head returns metadata about a stored object.
func (s *BucketStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.bucket.Attributes(ctx, s.key(key))
	if err != nil {
		return nil, fmt.Errorf("get attributes for %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:     key,
		Size:    attrs.Size,
		ETag:    attrs.ETag,
		ModTime: attrs.ModTime,
	}, nil
}

// List returns all keys with the given prefix. Temp objects are skipped.
func (s *BucketStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := s.bucket.List(&blob.ListOptions{
		Prefix: s.key(prefix),
	})

	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir || strings.Contains(obj.Key, ".tmp.") {
			continue
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, s.prefix))
	}

	return keys, nil
}

// Verify BucketStore implements AtomicStore.
var _ AtomicStore = (*BucketStore)(nil)
