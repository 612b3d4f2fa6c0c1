package testsupport

import (
	"context"
	"testing"

	"convertify/internal/formats"
	"convertify/internal/queue"
)

// MustOpenStore opens an in-memory queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open(context.Background())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// AddJob enqueues a file with the given declared media type and optional target.
func AddJob(t testing.TB, store *queue.Store, name, mediaType string, target formats.Format) *queue.Job {
	t.Helper()

	ctx := context.Background()
	job, err := store.Add(ctx, queue.File{Name: name, MediaType: mediaType, Data: []byte("source:" + name)})
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	if target == "" {
		return job
	}
	if err := store.SetTargetFormat(ctx, job.ID, target); err != nil {
		t.Fatalf("store.SetTargetFormat: %v", err)
	}
	job, err = store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return job
}
