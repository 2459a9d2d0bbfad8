package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/internal/infrastructure/outbox"
	"github.com/immolink/backend/usecase"
)

// ConnectionHealth abstracts the connection monitor.
type ConnectionHealth interface {
	IsOnline() bool
}

// HealthFunc adapts a plain probe function to ConnectionHealth.
type HealthFunc func() bool

func (f HealthFunc) IsOnline() bool { return f() }

// Dispatcher implements the fire-and-forget notification contract: publish
// when the channel is up, park the event in the outbox when it is not.
// Delivery failures never reach the caller's transaction.
type Dispatcher struct {
	publisher Publisher
	store     *outbox.Store
	monitor   ConnectionHealth
	logger    *zap.Logger
}

func NewDispatcher(publisher Publisher, store *outbox.Store, monitor ConnectionHealth, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		publisher: publisher,
		store:     store,
		monitor:   monitor,
		logger:    logger,
	}
}

// Notify attempts immediate delivery and falls back to the durable outbox.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	if d.monitor == nil || d.monitor.IsOnline() {
		if err := d.publisher.Publish(ctx, n); err == nil {
			return nil
		} else {
			d.logger.Warn("notification publish failed, parking in outbox",
				zap.String("event", n.EventType), zap.Error(err))
		}
	}

	if d.store == nil {
		return domain.NewError(domain.ErrCodeInternal, "notification channel unavailable")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return d.store.Enqueue(outbox.Entry{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		EventType:   n.EventType,
		Payload:     payload,
		Priority:    priorityFor(n.EventType),
	})
}

// Activation and completion matter more to the recipient than a note; the
// outbox drains them first.
func priorityFor(eventType string) int {
	switch eventType {
	case domain.EventActivated, domain.EventCompleted, domain.EventProposed:
		return 1
	case domain.EventSigned, domain.EventAccepted, domain.EventRejected, domain.EventCancelled:
		return 2
	default:
		return 3
	}
}

var _ usecase.Notifier = (*Dispatcher)(nil)
