package usecase

import (
	"context"

	"github.com/immolink/backend/domain"
)

// Notifier abstracts the push-notification facility so use cases stay
// transport-agnostic. Implementations are best-effort; the caller never
// awaits an acknowledgement and never propagates a delivery failure.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
