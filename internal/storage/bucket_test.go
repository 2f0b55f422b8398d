package storage

import (
	"context"
	"errors"
	"testing"

	"gocloud.dev/blob/memblob"
)

func newMemStore(t *testing.T) *BucketStore {
	t.Helper()
	s := NewBucketStore(memblob.OpenBucket(nil), "mem://archive", "splatnet3/")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBucketStorePublish(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	if err := Publish(ctx, store, testKey, []byte("doc")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	ok, err := store.Exists(ctx, testKey)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	got, err := store.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "doc" {
		t.Errorf("Read = %q", got)
	}

	keys, err := store.List(ctx, "battles/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != testKey {
		t.Errorf("List = %v, want only %s (no temp objects)", keys, testKey)
	}

	if uri := store.URI(testKey); uri != "mem://archive/splatnet3/"+testKey {
		t.Errorf("URI = %s", uri)
	}
}

func TestBucketStoreReadMissing(t *testing.T) {
	store := newMemStore(t)
	if _, err := store.Read(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing = %v, want ErrNotFound", err)
	}
}

func TestBucketStoreHead(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()
	if err := store.Write(ctx, testKey, []byte("12345")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	info, err := store.Head(ctx, testKey)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if info.Size != 5 {
		t.Errorf("Head size = %d, want 5", info.Size)
	}
}
