package collaboration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/repository"
	"github.com/immolink/backend/usecase"
)

// genericActorLabel replaces a party's display name when the identity
// lookup fails. Enrichment never fails an operation.
const genericActorLabel = "Un professionnel de l'immobilier"

const notifyTimeout = 5 * time.Second

// UseCase is the collaboration lifecycle engine. Every mutation of one
// collaboration id runs under a per-id lock; the repository additionally
// enforces a revision check so concurrent writers from other instances
// lose with a conflict instead of clobbering state.
type UseCase struct {
	collabs  repository.CollaborationRepository
	subjects repository.SubjectRegistry
	users    repository.UserRepository
	notifier usecase.Notifier
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

func New(
	collabs repository.CollaborationRepository,
	subjects repository.SubjectRegistry,
	users repository.UserRepository,
	notifier usecase.Notifier,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		collabs:  collabs,
		subjects: subjects,
		users:    users,
		notifier: notifier,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// ProposeInput carries the typed parameters of a proposal. There is no
// generic patch entry point; the operation set is closed.
type ProposeInput struct {
	Subject      domain.SubjectRef
	Compensation domain.Compensation
	Message      string
}

// Propose opens a pending collaboration on a subject the actor does not own.
func (uc *UseCase) Propose(ctx context.Context, actorID string, input ProposeInput) (*domain.Collaboration, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := input.Subject.Validate(); err != nil {
		return nil, err
	}
	if err := input.Compensation.Validate(); err != nil {
		return nil, err
	}

	exists, err := uc.subjects.Exists(ctx, input.Subject)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrSubjectNotFound
	}

	ownerID, err := uc.subjects.Owner(ctx, input.Subject)
	if err != nil {
		return nil, err
	}
	if ownerID == actorID {
		return nil, domain.NewError(domain.ErrCodeForbidden, "cannot open a collaboration on your own subject")
	}

	partnerLabel := uc.displayName(ctx, actorID)

	// The duplicate check and the insert must be one atomic unit, and the
	// per-id lock cannot cover an aggregate that does not exist yet, so
	// concurrent proposals serialize on the subject instead. The repository
	// enforces the same rule as a backstop for other instances.
	unlock := uc.locks.Lock("subject:" + input.Subject.String())
	defer unlock()

	live, err := uc.collabs.FindLiveBySubject(ctx, input.Subject)
	if err != nil {
		return nil, err
	}
	if live != nil {
		return nil, domain.NewError(domain.ErrCodeConflict, "subject already has a live collaboration")
	}

	collab, err := domain.NewCollaboration(
		input.Subject,
		ownerID,
		actorID,
		input.Compensation,
		input.Message,
		partnerLabel,
		uc.now(),
	)
	if err != nil {
		return nil, err
	}

	if err := uc.collabs.Create(ctx, collab); err != nil {
		return nil, err
	}

	uc.dispatch(collab, actorID, domain.EventProposed,
		"Nouvelle proposition de collaboration",
		"Vous avez reçu une proposition de collaboration")
	return collab, nil
}

// Get returns the aggregate to one of its participants. Reads take no lock
// and may observe a slightly stale snapshot.
func (uc *UseCase) Get(ctx context.Context, actorID, id string) (*domain.Collaboration, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	collab, err := uc.collabs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if collab.ResolveRole(actorID) == domain.RoleNone {
		return nil, domain.ErrNotParticipant
	}
	return collab, nil
}

// List returns the actor's collaborations, optionally filtered by role and
// status.
func (uc *UseCase) List(ctx context.Context, actorID, role, status string, limit, offset int) ([]domain.Collaboration, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	switch role {
	case "", string(domain.RoleOwner), string(domain.RolePartner):
	default:
		return nil, domain.NewError(domain.ErrCodeInvalid, "role must be owner or partner")
	}
	return uc.collabs.List(ctx, repository.CollaborationFilter{
		ActorID: actorID,
		Role:    role,
		Status:  status,
		Limit:   limit,
		Offset:  offset,
	})
}

// Respond records the owner's decision on a pending proposal. decision is
// "accept" or "reject".
func (uc *UseCase) Respond(ctx context.Context, actorID, id, decision string) (*domain.Collaboration, error) {
	var accept bool
	switch decision {
	case "accept":
		accept = true
	case "reject":
		accept = false
	default:
		return nil, domain.NewError(domain.ErrCodeInvalid, "decision must be accept or reject")
	}

	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		return c.Respond(actorID, accept, uc.now())
	})
	if err != nil {
		return nil, err
	}

	event, title := domain.EventRejected, "Proposition refusée"
	if accept {
		event, title = domain.EventAccepted, "Proposition acceptée"
	}
	uc.dispatch(collab, actorID, event, title, "Le propriétaire a répondu à votre proposition")
	return collab, nil
}

// AddNote appends a note to an active collaboration.
func (uc *UseCase) AddNote(ctx context.Context, actorID, id, text string) (*domain.Collaboration, error) {
	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		return c.AddNote(actorID, text, uc.now())
	})
	if err != nil {
		return nil, err
	}
	uc.dispatch(collab, actorID, domain.EventNoteAdded,
		"Nouvelle note", "Une note a été ajoutée à votre collaboration")
	return collab, nil
}

// Cancel terminates a live collaboration.
func (uc *UseCase) Cancel(ctx context.Context, actorID, id string) (*domain.Collaboration, error) {
	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		return c.Cancel(actorID, uc.now())
	})
	if err != nil {
		return nil, err
	}
	uc.dispatch(collab, actorID, domain.EventCancelled,
		"Collaboration annulée", "Votre collaboration a été annulée")
	return collab, nil
}

// Complete closes an active deal, forcing every milestone to validated.
func (uc *UseCase) Complete(ctx context.Context, actorID, id string) (*domain.Collaboration, error) {
	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		return c.Complete(actorID, uc.now())
	})
	if err != nil {
		return nil, err
	}
	uc.dispatch(collab, actorID, domain.EventCompleted,
		"Affaire conclue", "Votre collaboration est menée à terme")
	return collab, nil
}

// Contract returns the contract read model, lazily materializing the
// default text on first access.
func (uc *UseCase) Contract(ctx context.Context, actorID, id string) (domain.ContractView, error) {
	if actorID == "" {
		return domain.ContractView{}, domain.ErrUnauthorized
	}

	collab, err := uc.collabs.GetByID(ctx, id)
	if err != nil {
		return domain.ContractView{}, err
	}
	role := collab.ResolveRole(actorID)
	if role == domain.RoleNone {
		return domain.ContractView{}, domain.ErrNotParticipant
	}
	if collab.ContractText != "" {
		return collab.View(role), nil
	}

	// Party ids are immutable, so the names can be resolved from the
	// unlocked snapshot; only the materialize-and-persist cycle runs under
	// the per-id lock.
	ownerName := uc.displayName(ctx, collab.OwnerID)
	partnerName := uc.displayName(ctx, collab.PartnerID)

	unlock := uc.locks.Lock(id)
	defer unlock()

	collab, err = uc.collabs.GetByID(ctx, id)
	if err != nil {
		return domain.ContractView{}, err
	}
	if collab.EnsureContract(ownerName, partnerName, uc.now()) {
		if err := uc.collabs.Update(ctx, collab); err != nil {
			return domain.ContractView{}, err
		}
	}
	return collab.View(role), nil
}

// EditContract replaces the contract text while the collaboration is in the
// accepted window. A substantive change resets both signatures.
func (uc *UseCase) EditContract(ctx context.Context, actorID, id, text, terms string) (domain.ContractView, error) {
	var changed bool
	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		var err error
		changed, err = c.EditContract(actorID, text, terms, uc.now())
		return err
	})
	if err != nil {
		return domain.ContractView{}, err
	}
	if changed {
		uc.dispatch(collab, actorID, domain.EventContractUpdated,
			"Contrat modifié", "Le contrat a été modifié, une nouvelle signature est requise")
	}
	return collab.View(collab.ResolveRole(actorID)), nil
}

// Sign records the acting party's signature. When the second signature
// lands, the collaboration becomes active in the same update.
func (uc *UseCase) Sign(ctx context.Context, actorID, id string) (*domain.Collaboration, error) {
	// Resolve the label before taking the lock; the identity service must
	// not be able to stall other writers on this collaboration.
	actorLabel := uc.displayName(ctx, actorID)

	var activated bool
	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		var err error
		activated, err = c.Sign(actorID, actorLabel, uc.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if activated {
		uc.dispatch(collab, actorID, domain.EventActivated,
			"Collaboration activée", "Les deux parties ont signé, la collaboration est active")
	} else {
		uc.dispatch(collab, actorID, domain.EventSigned,
			"Contrat signé", "L'autre partie a signé le contrat")
	}
	return collab, nil
}

// Advance records one party's validation of a milestone.
func (uc *UseCase) Advance(ctx context.Context, actorID, id, step, notes, validatedBy string) (*domain.Collaboration, error) {
	collab, err := uc.mutate(ctx, actorID, id, func(c *domain.Collaboration) error {
		return c.AdvanceStep(actorID, domain.StepName(step), notes, domain.Role(validatedBy), uc.now())
	})
	if err != nil {
		return nil, err
	}
	uc.dispatch(collab, actorID, domain.EventProgressUpdated,
		"Avancement du dossier", "Une étape de votre collaboration a été validée")
	return collab, nil
}

// mutate runs one read-modify-write cycle under the per-id lock. The
// repository write is the only I/O performed while holding the lock.
func (uc *UseCase) mutate(ctx context.Context, actorID, id string, fn func(*domain.Collaboration) error) (*domain.Collaboration, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	if id == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "missing collaboration id")
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	collab, err := uc.collabs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(collab); err != nil {
		return nil, err
	}
	if err := uc.collabs.Update(ctx, collab); err != nil {
		return nil, err
	}
	return collab, nil
}

// dispatch pushes a notification to the other party outside the lock and
// outside the critical path. Failures are logged and swallowed; they can
// never roll back or delay the committed mutation.
func (uc *UseCase) dispatch(collab *domain.Collaboration, actorID, eventType, title, message string) {
	if uc.notifier == nil {
		return
	}
	notification := domain.Notification{
		RecipientID:     collab.OtherParty(actorID),
		ActorID:         actorID,
		EventType:       eventType,
		CollaborationID: collab.ID,
		Title:           title,
		Message:         message,
		Data: map[string]string{
			"subject_kind": string(collab.Subject.Kind),
			"subject_id":   collab.Subject.ID,
			"status":       string(collab.Status),
		},
		CreatedAt: uc.now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := uc.notifier.Notify(ctx, notification); err != nil {
			uc.logger.Warn("notification dispatch failed",
				zap.String("event", eventType),
				zap.String("collaboration_id", collab.ID),
				zap.Error(err))
		}
	}()
}

func (uc *UseCase) displayName(ctx context.Context, userID string) string {
	if uc.users == nil {
		return genericActorLabel
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil || user.DisplayName() == "" {
		return genericActorLabel
	}
	return user.DisplayName()
}
