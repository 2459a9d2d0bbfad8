package domain

import "time"

// Notification event types emitted after collaboration mutations.
const (
	EventProposed        = "collaboration.proposed"
	EventAccepted        = "collaboration.accepted"
	EventRejected        = "collaboration.rejected"
	EventCancelled       = "collaboration.cancelled"
	EventCompleted       = "collaboration.completed"
	EventSigned          = "collaboration.signed"
	EventActivated       = "collaboration.activated"
	EventContractUpdated = "collaboration.contract_updated"
	EventProgressUpdated = "collaboration.progress_updated"
	EventNoteAdded       = "collaboration.note_added"
)

// Notification is the fire-and-forget payload pushed to the other party
// after a mutation. Delivery is best-effort and never part of the
// transactional outcome.
type Notification struct {
	ID              string            `json:"id"`
	RecipientID     string            `json:"recipient_id"`
	ActorID         string            `json:"actor_id"`
	EventType       string            `json:"event_type"`
	CollaborationID string            `json:"collaboration_id"`
	Title           string            `json:"title"`
	Message         string            `json:"message"`
	Data            map[string]string `json:"data,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
