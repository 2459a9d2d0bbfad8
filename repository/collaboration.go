package repository

import (
	"context"

	"github.com/immolink/backend/domain"
)

type CollaborationFilter struct {
	ActorID string
	Role    string
	Status  string
	Limit   int
	Offset  int
}

// CollaborationRepository persists collaboration aggregates. Update must
// apply optimistic concurrency on the aggregate's revision and return
// domain.ErrRevisionConflict on a mismatch.
type CollaborationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Collaboration, error)
	List(ctx context.Context, filter CollaborationFilter) ([]domain.Collaboration, error)
	FindLiveBySubject(ctx context.Context, subject domain.SubjectRef) (*domain.Collaboration, error)
	Create(ctx context.Context, c *domain.Collaboration) error
	Update(ctx context.Context, c *domain.Collaboration) error
}
