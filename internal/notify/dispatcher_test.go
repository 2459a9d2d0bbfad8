package notify

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/internal/infrastructure/outbox"
)

type stubPublisher struct {
	mu        sync.Mutex
	err       error
	published []domain.Notification
}

func (p *stubPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, n)
	return nil
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func openOutbox(t *testing.T) *outbox.Store {
	t.Helper()
	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testNotification(event string) domain.Notification {
	return domain.Notification{
		RecipientID:     "owner-1",
		ActorID:         "partner-1",
		EventType:       event,
		CollaborationID: "collab-1",
		Title:           "Titre",
		Message:         "Message",
		CreatedAt:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatcherPublishesWhenOnline(t *testing.T) {
	pub := &stubPublisher{}
	store := openOutbox(t)
	d := NewDispatcher(pub, store, HealthFunc(func() bool { return true }), nil)

	if err := d.Notify(context.Background(), testNotification(domain.EventSigned)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pub.count() != 1 {
		t.Errorf("published = %d, want 1", pub.count())
	}
	if n, _ := store.Size(); n != 0 {
		t.Errorf("outbox size = %d, want 0", n)
	}
	if pub.published[0].ID == "" {
		t.Error("dispatcher must assign a notification id")
	}
}

func TestDispatcherParksWhenOffline(t *testing.T) {
	pub := &stubPublisher{}
	store := openOutbox(t)
	d := NewDispatcher(pub, store, HealthFunc(func() bool { return false }), nil)

	if err := d.Notify(context.Background(), testNotification(domain.EventActivated)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pub.count() != 0 {
		t.Errorf("published = %d while offline", pub.count())
	}

	batch, err := store.GetBatch(10)
	if err != nil || len(batch) != 1 {
		t.Fatalf("outbox batch: %v (%d)", err, len(batch))
	}
	if batch[0].EventType != domain.EventActivated || batch[0].Priority != 1 {
		t.Errorf("parked entry = %+v", batch[0])
	}
}

func TestDispatcherParksOnPublishFailure(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	store := openOutbox(t)
	d := NewDispatcher(pub, store, HealthFunc(func() bool { return true }), nil)

	if err := d.Notify(context.Background(), testNotification(domain.EventNoteAdded)); err != nil {
		t.Fatalf("notify must absorb publish failures: %v", err)
	}
	batch, err := store.GetBatch(10)
	if err != nil || len(batch) != 1 {
		t.Fatalf("outbox batch: %v (%d)", err, len(batch))
	}
	if batch[0].Priority != 3 {
		t.Errorf("note priority = %d, want 3", batch[0].Priority)
	}
}

func TestProcessorDrainsOutbox(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	store := openOutbox(t)
	d := NewDispatcher(pub, store, nil, nil)

	for _, event := range []string{domain.EventSigned, domain.EventActivated} {
		if err := d.Notify(context.Background(), testNotification(event)); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := store.Size(); n != 2 {
		t.Fatalf("outbox size = %d, want 2", n)
	}

	// Broker back up: the drain replays everything and empties the outbox.
	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	p := NewProcessor(store, pub, nil, nil, ProcessorConfig{})
	if err := p.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if pub.count() != 2 {
		t.Errorf("replayed = %d, want 2", pub.count())
	}
	if p.Size() != 0 {
		t.Errorf("outbox size after drain = %d", p.Size())
	}
	// Activation has higher replay priority than a plain signature.
	if pub.published[0].EventType != domain.EventActivated {
		t.Errorf("first replayed event = %s, want %s", pub.published[0].EventType, domain.EventActivated)
	}
}

func TestProcessorDropsAfterMaxRetries(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	store := openOutbox(t)

	if err := store.Enqueue(outbox.Entry{ID: "stuck", EventType: domain.EventSigned, Payload: []byte(`{}`), Priority: 2}); err != nil {
		t.Fatal(err)
	}

	p := NewProcessor(store, pub, nil, nil, ProcessorConfig{MaxRetries: 2})
	for i := 0; i < 3; i++ {
		if err := p.Drain(context.Background()); err != nil {
			t.Fatalf("drain %d: %v", i, err)
		}
	}
	if p.Size() != 0 {
		t.Errorf("entry not dropped after max retries, size = %d", p.Size())
	}
}

func TestProcessorSkipsDrainWhileOffline(t *testing.T) {
	pub := &stubPublisher{}
	store := openOutbox(t)
	if err := store.Enqueue(outbox.Entry{ID: "wait", EventType: domain.EventSigned, Payload: []byte(`{}`), Priority: 2}); err != nil {
		t.Fatal(err)
	}

	p := NewProcessor(store, pub, HealthFunc(func() bool { return false }), nil, ProcessorConfig{})
	if err := p.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if pub.count() != 0 || p.Size() != 1 {
		t.Errorf("offline drain touched the outbox: published=%d size=%d", pub.count(), p.Size())
	}
}
