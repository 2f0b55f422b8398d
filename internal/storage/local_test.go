package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKey = "battles/20230215T032110_4f87f8e5.json.zst"

func TestLocalStoreAtomicOperations(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "splatnet3/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	data := []byte("fake document data for testing")

	// Test WriteTemp
	tempPath, err := store.WriteTemp(ctx, testKey, data)
	if err != nil {
		t.Fatalf("WriteTemp failed: %v", err)
	}

	// Verify temp file exists
	if _, err := os.Stat(tempPath); os.IsNotExist(err) {
		t.Error("temp file should exist")
	}

	// Final path shouldn't exist yet
	finalPath := filepath.Join(tmpDir, "splatnet3", filepath.FromSlash(testKey))
	if _, err := os.Stat(finalPath); !os.IsNotExist(err) {
		t.Error("final file should not exist before Finalize")
	}
	if ok, _ := store.Exists(ctx, testKey); ok {
		t.Error("Exists should be false before Finalize")
	}

	// Test Finalize
	if err := store.Finalize(ctx, testKey, tempPath); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if ok, _ := store.Exists(ctx, testKey); !ok {
		t.Error("Exists should be true after Finalize")
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Error("temp file should be removed after Finalize")
	}

	// Verify data integrity
	got, err := store.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(data) {
		t.Error("document data mismatch")
	}
}

func TestLocalStoreAbort(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "splatnet3/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	tempPath, err := store.WriteTemp(ctx, testKey, []byte("test data"))
	if err != nil {
		t.Fatalf("WriteTemp failed: %v", err)
	}

	if err := store.Abort(ctx, []string{tempPath}); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Error("temp file should be removed after Abort")
	}
}

func TestLocalStoreHeadAndList(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "splatnet3/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	testData := []byte("test document data for head test")
	if err := Publish(ctx, store, testKey, testData); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := store.Write(ctx, "summaries/u-abc.json.zst", []byte("{}")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := store.Head(ctx, testKey)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if info.Size != int64(len(testData)) {
		t.Errorf("Head size = %d, want %d", info.Size, len(testData))
	}

	keys, err := store.List(ctx, "battles/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != testKey {
		t.Errorf("List = %v, want [%s]", keys, testKey)
	}
}

func TestLocalStoreReadMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing = %v, want ErrNotFound", err)
	}
}

func TestLocalStoreURI(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "splatnet3/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	uri := store.URI(testKey)
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "splatnet3/"+testKey) {
		t.Errorf("URI = %s", uri)
	}
}

func TestLocalStoreImplementsAtomicStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "splatnet3/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	// Verify AsAtomic works
	if AsAtomic(store) == nil {
		t.Error("AsAtomic should return non-nil for LocalStore")
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	if _, err := NewStore(context.Background(), StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := NewStore(context.Background(), StorageConfig{Backend: "gcs"}); err == nil {
		t.Error("expected error for gcs without bucket")
	}
}
