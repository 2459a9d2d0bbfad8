package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one undelivered notification held until the push channel is
// reachable again.
type Entry struct {
	ID          string          `json:"id"`
	RecipientID string          `json:"recipient_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority"`
	Retries     int             `json:"retries"`
	Timestamp   time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Priority <= 0 || e.Priority > 5 {
		e.Priority = 3
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
