package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/repository"
)

type subjectRegistry struct {
	pool *pgxpool.Pool
}

// NewSubjectRegistry resolves listings and search ads against their tables.
func NewSubjectRegistry(pool *pgxpool.Pool) repository.SubjectRegistry {
	return &subjectRegistry{pool: pool}
}

func (r *subjectRegistry) Exists(ctx context.Context, ref domain.SubjectRef) (bool, error) {
	table, err := subjectTable(ref)
	if err != nil {
		return false, err
	}
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.pool.QueryRow(ctx, query, ref.ID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *subjectRegistry) Owner(ctx context.Context, ref domain.SubjectRef) (string, error) {
	table, err := subjectTable(ref)
	if err != nil {
		return "", err
	}
	var ownerID string
	query := fmt.Sprintf(`SELECT owner_id FROM %s WHERE id = $1`, table)
	if err := r.pool.QueryRow(ctx, query, ref.ID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrSubjectNotFound
		}
		return "", err
	}
	return ownerID, nil
}

// subjectTable maps the subject kind onto its fixed table name. User input
// never reaches the query text.
func subjectTable(ref domain.SubjectRef) (string, error) {
	switch ref.Kind {
	case domain.SubjectListing:
		return "listings", nil
	case domain.SubjectSearchAd:
		return "search_ads", nil
	default:
		return "", domain.NewError(domain.ErrCodeInvalid, "unknown subject kind")
	}
}
