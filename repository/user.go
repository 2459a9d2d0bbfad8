package repository

import (
	"context"

	"github.com/immolink/backend/domain"
)

// UserRepository is a read-only identity lookup used to enrich activity and
// notification text. Lookup failures degrade to a generic label and never
// fail an operation.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
