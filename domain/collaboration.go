package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CollaborationStatus is the lifecycle state of a collaboration.
type CollaborationStatus string

const (
	StatusPending   CollaborationStatus = "pending"
	StatusAccepted  CollaborationStatus = "accepted"
	StatusRejected  CollaborationStatus = "rejected"
	StatusActive    CollaborationStatus = "active"
	StatusCompleted CollaborationStatus = "completed"
	StatusCancelled CollaborationStatus = "cancelled"
)

// Terminal reports whether no further mutation is permitted.
func (s CollaborationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// Live reports whether the collaboration still occupies its subject.
// A subject accepts at most one live collaboration at a time.
func (s CollaborationStatus) Live() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusActive
}

// Role is the capacity in which an actor touches a collaboration.
type Role string

const (
	RoleOwner   Role = "owner"
	RolePartner Role = "partner"
	RoleNone    Role = "none"
)

// ActivityKind classifies entries of the activity trail.
type ActivityKind string

const (
	ActivityProposal     ActivityKind = "proposal"
	ActivityNote         ActivityKind = "note"
	ActivitySigning      ActivityKind = "signing"
	ActivityStatusUpdate ActivityKind = "status_update"
)

// Activity is one immutable entry of the per-collaboration trail.
type Activity struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Message   string       `json:"message"`
	ActorID   string       `json:"actor_id"`
	CreatedAt time.Time    `json:"created_at"`
}

// CompensationKind selects how the partner is remunerated.
type CompensationKind string

const (
	CompensationPercentage CompensationKind = "percentage"
	CompensationFixed      CompensationKind = "fixed_amount"
	CompensationVoucher    CompensationKind = "voucher"
)

// Compensation is agreed at proposal time and never renegotiated in place;
// renegotiation requires a new proposal.
type Compensation struct {
	Kind       CompensationKind `json:"kind"`
	Percentage float64          `json:"percentage,omitempty"`
	Amount     float64          `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
}

func (c Compensation) Validate() error {
	switch c.Kind {
	case CompensationPercentage:
		if c.Percentage <= 0 || c.Percentage > 100 {
			return NewError(ErrCodeInvalid, "percentage must be in (0, 100]")
		}
	case CompensationFixed, CompensationVoucher:
		if c.Amount <= 0 {
			return NewError(ErrCodeInvalid, "amount must be positive")
		}
	default:
		return NewError(ErrCodeInvalid, "unknown compensation kind")
	}
	return nil
}

// Describe renders the compensation for contract and activity text.
func (c Compensation) Describe() string {
	switch c.Kind {
	case CompensationPercentage:
		return fmt.Sprintf("%.1f%% de la commission / %.1f%% of the commission", c.Percentage, c.Percentage)
	case CompensationFixed:
		return fmt.Sprintf("montant fixe de %.2f %s / fixed amount of %.2f %s", c.Amount, c.currency(), c.Amount, c.currency())
	case CompensationVoucher:
		return fmt.Sprintf("bon d'achat de %.2f %s / voucher of %.2f %s", c.Amount, c.currency(), c.Amount, c.currency())
	default:
		return ""
	}
}

func (c Compensation) currency() string {
	if c.Currency == "" {
		return "EUR"
	}
	return c.Currency
}

// Signature is one party's entry in the signature ledger.
type Signature struct {
	Signed   bool       `json:"signed"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
}

// Signatures is the two-party ledger guarding activation.
type Signatures struct {
	Owner   Signature `json:"owner"`
	Partner Signature `json:"partner"`
}

// Complete reports whether both parties have signed the current contract text.
func (s Signatures) Complete() bool {
	return s.Owner.Signed && s.Partner.Signed
}

func (s *Signatures) entry(role Role) *Signature {
	if role == RoleOwner {
		return &s.Owner
	}
	return &s.Partner
}

// Collaboration is the aggregate root of the brokerage engine. All mutation
// goes through its methods so the state machine, the signature ledger and the
// progress checklist stay consistent.
type Collaboration struct {
	ID                string              `json:"id"`
	Subject           SubjectRef          `json:"subject"`
	OwnerID           string              `json:"owner_id"`
	PartnerID         string              `json:"partner_id"`
	Status            CollaborationStatus `json:"status"`
	CurrentStep       string              `json:"current_step"`
	Compensation      Compensation        `json:"compensation"`
	Activities        []Activity          `json:"activities"`
	ProgressSteps     []ProgressStep      `json:"progress_steps"`
	ContractText      string              `json:"contract_text"`
	AdditionalTerms   string              `json:"additional_terms"`
	ContractModified  bool                `json:"contract_modified"`
	ContractUpdatedBy string              `json:"contract_updated_by,omitempty"`
	ContractUpdatedAt *time.Time          `json:"contract_updated_at,omitempty"`
	Signatures        Signatures          `json:"signatures"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	// Revision backs optimistic concurrency in the store. Not part of the API surface.
	Revision int `json:"-"`
}

// NewCollaboration builds a pending collaboration proposed by partnerID on a
// subject owned by ownerID. The caller is responsible for ownership and
// double-booking checks, which need external lookups.
func NewCollaboration(subject SubjectRef, ownerID, partnerID string, comp Compensation, message, partnerLabel string, now time.Time) (*Collaboration, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	if ownerID == "" || partnerID == "" {
		return nil, NewError(ErrCodeInvalid, "owner and partner are required")
	}
	if ownerID == partnerID {
		return nil, NewError(ErrCodeForbidden, "cannot open a collaboration with yourself")
	}
	if err := comp.Validate(); err != nil {
		return nil, err
	}

	c := &Collaboration{
		ID:            uuid.NewString(),
		Subject:       subject,
		OwnerID:       ownerID,
		PartnerID:     partnerID,
		Status:        StatusPending,
		CurrentStep:   "proposition envoyée",
		Compensation:  comp,
		ProgressSteps: NewProgressSteps(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	text := fmt.Sprintf("%s propose une collaboration (%s)", partnerLabel, comp.Describe())
	if message != "" {
		text += " — " + message
	}
	c.appendActivity(ActivityProposal, partnerID, text, now)
	return c, nil
}

// ResolveRole centralizes the owner/partner identity comparison every
// operation relies on.
func (c *Collaboration) ResolveRole(actorID string) Role {
	switch actorID {
	case "":
		return RoleNone
	case c.OwnerID:
		return RoleOwner
	case c.PartnerID:
		return RolePartner
	default:
		return RoleNone
	}
}

// Respond records the owner's decision on a pending proposal.
func (c *Collaboration) Respond(actorID string, accept bool, now time.Time) error {
	role, err := c.requireParticipant(actorID)
	if err != nil {
		return err
	}
	if role != RoleOwner {
		return NewError(ErrCodeForbidden, "only the owner may respond to a proposal")
	}
	if c.Status != StatusPending {
		return NewError(ErrCodeInvalidState, "proposal already answered")
	}

	if accept {
		c.Status = StatusAccepted
		c.CurrentStep = "proposition acceptée"
		c.appendActivity(ActivityStatusUpdate, actorID, "Proposition acceptée par le propriétaire de l'annonce", now)
	} else {
		c.Status = StatusRejected
		c.CurrentStep = "proposition refusée"
		c.appendActivity(ActivityStatusUpdate, actorID, "Proposition refusée par le propriétaire de l'annonce", now)
	}
	c.touch(now)
	return nil
}

// AddNote appends a free-form note. Notes are only allowed once the
// collaboration is active so the pre-activation trail stays focused on the
// proposal and the contract.
func (c *Collaboration) AddNote(actorID, text string, now time.Time) error {
	if _, err := c.requireParticipant(actorID); err != nil {
		return err
	}
	if c.Status != StatusActive {
		return NewError(ErrCodeInvalidState, "notes require an active collaboration")
	}
	if text == "" {
		return NewError(ErrCodeInvalid, "note text is required")
	}
	c.appendActivity(ActivityNote, actorID, text, now)
	c.touch(now)
	return nil
}

// Cancel terminates a live collaboration. Either party may cancel; a
// completed deal cannot be cancelled.
func (c *Collaboration) Cancel(actorID string, now time.Time) error {
	if _, err := c.requireParticipant(actorID); err != nil {
		return err
	}
	if !c.Status.Live() {
		if c.Status == StatusCompleted {
			return NewError(ErrCodeInvalidState, "a completed collaboration cannot be cancelled")
		}
		return NewError(ErrCodeInvalidState, "collaboration already closed")
	}

	c.Status = StatusCancelled
	c.CurrentStep = "collaboration annulée"
	at := now
	c.CancelledAt = &at
	c.appendActivity(ActivityStatusUpdate, actorID, "Collaboration annulée", now)
	c.touch(now)
	return nil
}

// Complete closes an active deal. It is an authoritative override for deals
// closed outside the step-by-step flow: every milestone is forced to
// completed and validated by both parties.
func (c *Collaboration) Complete(actorID string, now time.Time) error {
	if _, err := c.requireParticipant(actorID); err != nil {
		return err
	}
	if c.Status != StatusActive {
		return NewError(ErrCodeInvalidState, "only an active collaboration can be completed")
	}

	for i := range c.ProgressSteps {
		step := &c.ProgressSteps[i]
		step.Completed = true
		step.OwnerValidated = true
		step.PartnerValidated = true
		if step.ValidatedAt == nil {
			at := now
			step.ValidatedAt = &at
		}
	}

	c.Status = StatusCompleted
	c.CurrentStep = "affaire conclue"
	at := now
	c.CompletedAt = &at
	c.appendActivity(ActivityStatusUpdate, actorID, "Collaboration menée à terme, affaire conclue", now)
	c.touch(now)
	return nil
}

func (c *Collaboration) requireParticipant(actorID string) (Role, error) {
	if actorID == "" {
		return RoleNone, ErrUnauthorized
	}
	role := c.ResolveRole(actorID)
	if role == RoleNone {
		return RoleNone, ErrNotParticipant
	}
	return role, nil
}

func (c *Collaboration) appendActivity(kind ActivityKind, actorID, message string, now time.Time) {
	c.Activities = append(c.Activities, Activity{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		ActorID:   actorID,
		CreatedAt: now,
	})
}

func (c *Collaboration) touch(now time.Time) {
	c.UpdatedAt = now
}

// OtherParty returns the participant opposite to actorID, used to address
// notifications.
func (c *Collaboration) OtherParty(actorID string) string {
	if actorID == c.OwnerID {
		return c.PartnerID
	}
	return c.OwnerID
}

// Clone returns a deep copy so read models and in-memory stores never alias
// the aggregate's slices.
func (c *Collaboration) Clone() *Collaboration {
	if c == nil {
		return nil
	}
	dup := *c
	dup.Activities = append([]Activity(nil), c.Activities...)
	dup.ProgressSteps = append([]ProgressStep(nil), c.ProgressSteps...)
	return &dup
}
