package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/repository"
)

// CollaborationRepository is an in-memory store with the same optimistic
// concurrency contract as the Postgres implementation. It backs tests and
// local development without a database.
type CollaborationRepository struct {
	mu      sync.RWMutex
	collabs map[string]*domain.Collaboration
}

func NewCollaborationRepository() *CollaborationRepository {
	return &CollaborationRepository{
		collabs: make(map[string]*domain.Collaboration),
	}
}

func (r *CollaborationRepository) GetByID(ctx context.Context, id string) (*domain.Collaboration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	collab, ok := r.collabs[id]
	if !ok {
		return nil, domain.ErrCollaborationNotFound
	}
	return collab.Clone(), nil
}

func (r *CollaborationRepository) List(ctx context.Context, filter repository.CollaborationFilter) ([]domain.Collaboration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Collaboration
	for _, collab := range r.collabs {
		if filter.ActorID != "" && collab.OwnerID != filter.ActorID && collab.PartnerID != filter.ActorID {
			continue
		}
		if filter.Role == string(domain.RoleOwner) && collab.OwnerID != filter.ActorID {
			continue
		}
		if filter.Role == string(domain.RolePartner) && collab.PartnerID != filter.ActorID {
			continue
		}
		if filter.Status != "" && string(collab.Status) != filter.Status {
			continue
		}
		out = append(out, *collab.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *CollaborationRepository) FindLiveBySubject(ctx context.Context, subject domain.SubjectRef) (*domain.Collaboration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, collab := range r.collabs {
		if collab.Subject == subject && collab.Status.Live() {
			return collab.Clone(), nil
		}
	}
	return nil, nil
}

func (r *CollaborationRepository) Create(ctx context.Context, c *domain.Collaboration) error {
	if c == nil || c.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collabs[c.ID]; ok {
		return domain.ErrRevisionConflict
	}
	// Same rule the Postgres partial unique index enforces: a subject
	// carries at most one live collaboration.
	for _, existing := range r.collabs {
		if existing.Subject == c.Subject && existing.Status.Live() {
			return domain.NewError(domain.ErrCodeConflict, "subject already has a live collaboration")
		}
	}
	c.Revision = 1
	r.collabs[c.ID] = c.Clone()
	return nil
}

func (r *CollaborationRepository) Update(ctx context.Context, c *domain.Collaboration) error {
	if c == nil || c.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.collabs[c.ID]
	if !ok {
		return domain.ErrCollaborationNotFound
	}
	if current.Revision != c.Revision {
		return domain.ErrRevisionConflict
	}
	c.Revision++
	r.collabs[c.ID] = c.Clone()
	return nil
}

var _ repository.CollaborationRepository = (*CollaborationRepository)(nil)
