package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Read when the key does not exist.
var ErrNotFound = errors.New("object not found")

// DocumentStore abstracts writing exported documents to storage. Keys are
// relative to the store prefix.
type DocumentStore interface {
	// Write stores data under key, replacing any existing object.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the object stored under key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists checks if an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// AtomicStore extends DocumentStore with staged writes. Readers never see a
// partially written object at the final key.
type AtomicStore interface {
	DocumentStore

	// WriteTemp writes data to a temporary location for key.
	// Returns the temp key that can be passed to Finalize.
	WriteTemp(ctx context.Context, key string, data []byte) (tempKey string, err error)

	// Finalize moves a temp object to key.
	// For object stores this is copy+delete; for local filesystem it's rename.
	Finalize(ctx context.Context, key, tempKey string) error

	// Abort removes temporary objects without publishing.
	Abort(ctx context.Context, tempKeys []string) error

	// Head returns metadata about a stored object.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns all keys with the given prefix, relative to the store prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ETag    string // MD5 for S3/GCS, empty for local
	ModTime time.Time
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	Backend string // "local" | "gcs" | "s3"

	// Local filesystem
	LocalDir string

	// GCS or S3 bucket name
	Bucket string

	// S3 (also works for B2, R2, MinIO)
	S3Endpoint string // custom endpoint for B2/MinIO/R2
	S3Region   string

	// Common
	Prefix string // path prefix within bucket or local dir
}

// NewStore creates a storage backend based on configuration.
// All supported backends implement AtomicStore.
func NewStore(ctx context.Context, cfg StorageConfig) (AtomicStore, error) {
	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("Bucket required for gcs backend")
		}
		return NewGCSStore(ctx, cfg.Bucket, cfg.Prefix)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("Bucket required for s3 backend")
		}
		return NewS3Store(ctx, cfg.Bucket, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// AsAtomic attempts to cast a DocumentStore to AtomicStore.
// Returns nil if the store doesn't support atomic operations.
func AsAtomic(store DocumentStore) AtomicStore {
	if atomic, ok := store.(AtomicStore); ok {
		return atomic
	}
	return nil
}

// Publish writes data under key, staging it first when store supports it.
func Publish(ctx context.Context, store DocumentStore, key string, data []byte) error {
	atomic := AsAtomic(store)
	if atomic == nil {
		return store.Write(ctx, key, data)
	}

	tempKey, err := atomic.WriteTemp(ctx, key, data)
	if err != nil {
		return err
	}
	if err := atomic.Finalize(ctx, key, tempKey); err != nil {
		atomic.Abort(ctx, []string{tempKey})
		return err
	}
	return nil
}
