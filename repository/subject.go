package repository

import (
	"context"

	"github.com/immolink/backend/domain"
)

// SubjectRegistry resolves listings and search ads. It is consulted only at
// proposal time; listing storage itself lives outside this service.
type SubjectRegistry interface {
	Exists(ctx context.Context, ref domain.SubjectRef) (bool, error)
	Owner(ctx context.Context, ref domain.SubjectRef) (string, error)
}
