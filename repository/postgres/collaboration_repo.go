package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/repository"
)

type collaborationRepository struct {
	pool *pgxpool.Pool
}

// NewCollaborationRepository returns a Postgres-backed implementation of
// CollaborationRepository.
func NewCollaborationRepository(pool *pgxpool.Pool) repository.CollaborationRepository {
	return &collaborationRepository{pool: pool}
}

const collaborationColumns = `
	id, subject_kind, subject_id, owner_id, partner_id, status, current_step,
	compensation, progress_steps, contract_text, additional_terms,
	contract_modified, contract_updated_by, contract_updated_at,
	signatures, completed_at, cancelled_at, created_at, updated_at, revision
`

func (r *collaborationRepository) GetByID(ctx context.Context, id string) (*domain.Collaboration, error) {
	const query = `
	SELECT ` + collaborationColumns + `
	FROM collaborations
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	collab, err := scanCollaboration(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadActivities(ctx, collab); err != nil {
		return nil, err
	}
	return collab, nil
}

func (r *collaborationRepository) List(ctx context.Context, filter repository.CollaborationFilter) ([]domain.Collaboration, error) {
	const query = `
	SELECT ` + collaborationColumns + `
	FROM collaborations
	WHERE ($1 = '' OR owner_id = $1 OR partner_id = $1)
	  AND ($2 = '' OR ($2 = 'owner' AND owner_id = $1) OR ($2 = 'partner' AND partner_id = $1))
	  AND ($3 = '' OR status = $3)
	ORDER BY updated_at DESC
	LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, filter.ActorID, filter.Role, filter.Status, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collabs []domain.Collaboration
	for rows.Next() {
		collab, err := scanCollaboration(rows)
		if err != nil {
			return nil, err
		}
		collabs = append(collabs, *collab)
	}
	return collabs, rows.Err()
}

func (r *collaborationRepository) FindLiveBySubject(ctx context.Context, subject domain.SubjectRef) (*domain.Collaboration, error) {
	const query = `
	SELECT ` + collaborationColumns + `
	FROM collaborations
	WHERE subject_kind = $1 AND subject_id = $2
	  AND status IN ('pending', 'accepted', 'active')
	LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, subject.Kind, subject.ID)
	collab, err := scanCollaboration(row)
	if err != nil {
		if errors.Is(err, domain.ErrCollaborationNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return collab, nil
}

func (r *collaborationRepository) Create(ctx context.Context, c *domain.Collaboration) error {
	if c == nil || c.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO collaborations (
		id, subject_kind, subject_id, owner_id, partner_id, status, current_step,
		compensation, progress_steps, contract_text, additional_terms,
		contract_modified, contract_updated_by, contract_updated_at,
		signatures, completed_at, cancelled_at, created_at, updated_at, revision
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1)
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query,
		c.ID,
		c.Subject.Kind,
		c.Subject.ID,
		c.OwnerID,
		c.PartnerID,
		c.Status,
		c.CurrentStep,
		marshalJSON(c.Compensation),
		marshalJSON(c.ProgressSteps),
		c.ContractText,
		c.AdditionalTerms,
		c.ContractModified,
		c.ContractUpdatedBy,
		nullTime(c.ContractUpdatedAt),
		marshalJSON(c.Signatures),
		nullTime(c.CompletedAt),
		nullTime(c.CancelledAt),
		c.CreatedAt,
		c.UpdatedAt,
	); err != nil {
		// The collaborations_live_subject partial unique index is the
		// cross-instance backstop for the one-live-collaboration rule.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "collaborations_live_subject" {
				return domain.WrapError(domain.ErrCodeConflict, "subject already has a live collaboration", err)
			}
			return domain.WrapError(domain.ErrCodeConflict, "collaboration already exists", err)
		}
		return err
	}

	if err := insertActivities(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	c.Revision = 1
	return nil
}

// Update persists the aggregate and its new activities in one transaction.
// The revision predicate implements single-writer-at-a-time across
// instances: a concurrent writer loses with ErrRevisionConflict.
func (r *collaborationRepository) Update(ctx context.Context, c *domain.Collaboration) error {
	if c == nil || c.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE collaborations
	SET status = $3,
		current_step = $4,
		progress_steps = $5,
		contract_text = $6,
		additional_terms = $7,
		contract_modified = $8,
		contract_updated_by = $9,
		contract_updated_at = $10,
		signatures = $11,
		completed_at = $12,
		cancelled_at = $13,
		updated_at = $14,
		revision = revision + 1
	WHERE id = $1 AND revision = $2
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, query,
		c.ID,
		c.Revision,
		c.Status,
		c.CurrentStep,
		marshalJSON(c.ProgressSteps),
		c.ContractText,
		c.AdditionalTerms,
		c.ContractModified,
		c.ContractUpdatedBy,
		nullTime(c.ContractUpdatedAt),
		marshalJSON(c.Signatures),
		nullTime(c.CompletedAt),
		nullTime(c.CancelledAt),
		c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM collaborations WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrCollaborationNotFound
		}
		return domain.ErrRevisionConflict
	}

	if err := insertActivities(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	c.Revision++
	return nil
}

func insertActivities(ctx context.Context, tx pgx.Tx, c *domain.Collaboration) error {
	const query = `
	INSERT INTO collaboration_activities (id, collaboration_id, kind, message, actor_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
	`
	for _, activity := range c.Activities {
		if _, err := tx.Exec(ctx, query,
			activity.ID,
			c.ID,
			activity.Kind,
			activity.Message,
			activity.ActorID,
			activity.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *collaborationRepository) loadActivities(ctx context.Context, c *domain.Collaboration) error {
	const query = `
	SELECT id, kind, message, actor_id, created_at
	FROM collaboration_activities
	WHERE collaboration_id = $1
	ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.Message, &a.ActorID, &a.CreatedAt); err != nil {
			return err
		}
		activities = append(activities, a)
	}
	c.Activities = activities
	return rows.Err()
}

func scanCollaboration(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Collaboration, error) {
	var c domain.Collaboration
	var (
		compensation      []byte
		progressSteps     []byte
		signatures        []byte
		contractUpdatedAt *time.Time
		completedAt       *time.Time
		cancelledAt       *time.Time
	)

	if err := row.Scan(
		&c.ID,
		&c.Subject.Kind,
		&c.Subject.ID,
		&c.OwnerID,
		&c.PartnerID,
		&c.Status,
		&c.CurrentStep,
		&compensation,
		&progressSteps,
		&c.ContractText,
		&c.AdditionalTerms,
		&c.ContractModified,
		&c.ContractUpdatedBy,
		&contractUpdatedAt,
		&signatures,
		&completedAt,
		&cancelledAt,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Revision,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollaborationNotFound
		}
		return nil, err
	}

	c.ContractUpdatedAt = contractUpdatedAt
	c.CompletedAt = completedAt
	c.CancelledAt = cancelledAt
	if len(compensation) > 0 {
		if err := json.Unmarshal(compensation, &c.Compensation); err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "decode compensation column", err)
		}
	}
	if len(progressSteps) > 0 {
		if err := json.Unmarshal(progressSteps, &c.ProgressSteps); err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "decode progress_steps column", err)
		}
	}
	if len(signatures) > 0 {
		if err := json.Unmarshal(signatures, &c.Signatures); err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "decode signatures column", err)
		}
	}

	return &c, nil
}
