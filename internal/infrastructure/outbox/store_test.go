package outbox

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "outbox.db"), "test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueAndBatch(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: "low", EventType: "collaboration.note_added", Priority: 3, Timestamp: base},
		{ID: "high", EventType: "collaboration.activated", Priority: 1, Timestamp: base.Add(time.Minute)},
		{ID: "mid", EventType: "collaboration.signed", Priority: 2, Timestamp: base},
	}
	for _, e := range entries {
		e.Payload = json.RawMessage(`{"id":"` + e.ID + `"}`)
		if err := store.Enqueue(e); err != nil {
			t.Fatalf("enqueue %s: %v", e.ID, err)
		}
	}

	if n, err := store.Size(); err != nil || n != 3 {
		t.Fatalf("size = %d err = %v, want 3", n, err)
	}

	batch, err := store.GetBatch(10)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("batch len = %d", len(batch))
	}
	// Priority wins over age: the newer high-priority entry drains first.
	if batch[0].ID != "high" || batch[1].ID != "mid" || batch[2].ID != "low" {
		t.Errorf("drain order = %s, %s, %s", batch[0].ID, batch[1].ID, batch[2].ID)
	}
}

func TestBatchLimit(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := store.Enqueue(Entry{Priority: 3}); err != nil {
			t.Fatal(err)
		}
	}
	batch, err := store.GetBatch(2)
	if err != nil || len(batch) != 2 {
		t.Fatalf("batch = %d err = %v, want 2", len(batch), err)
	}
	// GetBatch must not consume entries.
	if n, _ := store.Size(); n != 5 {
		t.Errorf("size after peek = %d, want 5", n)
	}
}

func TestRemove(t *testing.T) {
	store := openTestStore(t)
	if err := store.Enqueue(Entry{ID: "e-1", Priority: 2}); err != nil {
		t.Fatal(err)
	}

	batch, err := store.GetBatch(1)
	if err != nil || len(batch) != 1 {
		t.Fatalf("batch: %v (%d)", err, len(batch))
	}
	if err := store.Remove(batch[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n, _ := store.Size(); n != 0 {
		t.Errorf("size after remove = %d", n)
	}

	// Removing by id alone, without the cursor key, also works.
	if err := store.Enqueue(Entry{ID: "e-2", Priority: 2}); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(Entry{ID: "e-2"}); err != nil {
		t.Fatalf("remove by id: %v", err)
	}
	if n, _ := store.Size(); n != 0 {
		t.Errorf("size after remove by id = %d", n)
	}
}

func TestRequeueKeepsSingleCopy(t *testing.T) {
	store := openTestStore(t)
	old := time.Now().Add(-time.Hour)
	if err := store.Enqueue(Entry{ID: "r-1", Priority: 1, Timestamp: old}); err != nil {
		t.Fatal(err)
	}

	batch, err := store.GetBatch(1)
	if err != nil || len(batch) != 1 {
		t.Fatalf("batch: %v (%d)", err, len(batch))
	}
	entry := batch[0]
	entry.Retries++
	if err := store.Remove(batch[0]); err != nil {
		t.Fatal(err)
	}
	if err := store.Requeue(entry); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	batch, err = store.GetBatch(10)
	if err != nil || len(batch) != 1 {
		t.Fatalf("after requeue: %v (%d)", err, len(batch))
	}
	if batch[0].Retries != 1 {
		t.Errorf("retries = %d, want 1", batch[0].Retries)
	}
	if !batch[0].Timestamp.After(old) {
		t.Error("requeue must bump the timestamp")
	}
}

func TestCleanup(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()
	if err := store.Enqueue(Entry{ID: "stale", Priority: 2, Timestamp: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Enqueue(Entry{ID: "fresh", Priority: 2, Timestamp: now}); err != nil {
		t.Fatal(err)
	}

	if err := store.Cleanup(now.Add(-24 * time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	batch, err := store.GetBatch(10)
	if err != nil || len(batch) != 1 || batch[0].ID != "fresh" {
		t.Fatalf("after cleanup: err=%v batch=%+v", err, batch)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	store := openTestStore(t)
	if err := store.Enqueue(Entry{}); err != nil {
		t.Fatal(err)
	}
	batch, err := store.GetBatch(1)
	if err != nil || len(batch) != 1 {
		t.Fatalf("batch: %v (%d)", err, len(batch))
	}
	e := batch[0]
	if e.ID == "" || e.Priority != 3 || e.Timestamp.IsZero() {
		t.Errorf("defaults not applied: %+v", e)
	}
}
