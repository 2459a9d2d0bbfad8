package domain

import (
	"fmt"
	"time"
)

// StepName is one of the ten canonical deal milestones.
type StepName string

const (
	StepAccordCollaboration StepName = "accord_collaboration"
	StepPremierContact      StepName = "premier_contact"
	StepVisiteProgrammee    StepName = "visite_programmee"
	StepVisiteRealisee      StepName = "visite_realisee"
	StepRetourClient        StepName = "retour_client"
	StepOffreEnCours        StepName = "offre_en_cours"
	StepNegociationEnCours  StepName = "negociation_en_cours"
	StepCompromisSigne      StepName = "compromis_signe"
	StepSignatureNotaire    StepName = "signature_notaire"
	StepAffaireConclue      StepName = "affaire_conclue"
)

// CanonicalSteps is the fixed ordered checklist every collaboration carries.
// Its length and identities never change; only the flags inside a step do.
var CanonicalSteps = [10]StepName{
	StepAccordCollaboration,
	StepPremierContact,
	StepVisiteProgrammee,
	StepVisiteRealisee,
	StepRetourClient,
	StepOffreEnCours,
	StepNegociationEnCours,
	StepCompromisSigne,
	StepSignatureNotaire,
	StepAffaireConclue,
}

// ValidStepName reports whether name is one of the canonical identifiers.
func ValidStepName(name StepName) bool {
	for _, s := range CanonicalSteps {
		if s == name {
			return true
		}
	}
	return false
}

// ProgressStep tracks dual validation of one milestone. A step counts as
// completed only once both parties have independently attested to it.
type ProgressStep struct {
	Name             StepName   `json:"name"`
	Completed        bool       `json:"completed"`
	OwnerValidated   bool       `json:"owner_validated"`
	PartnerValidated bool       `json:"partner_validated"`
	Notes            string     `json:"notes,omitempty"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty"`
}

// NewProgressSteps returns the checklist in canonical order, unvalidated.
func NewProgressSteps() []ProgressStep {
	steps := make([]ProgressStep, 0, len(CanonicalSteps))
	for _, name := range CanonicalSteps {
		steps = append(steps, ProgressStep{Name: name})
	}
	return steps
}

// AdvanceStep records that validatedBy attests to the target milestone.
// The caller's role must match validatedBy: a party can only validate on its
// own behalf. Steps may be validated in any order; only dual confirmation
// per step is enforced. A completed step never loses its flags.
func (c *Collaboration) AdvanceStep(actorID string, target StepName, notes string, validatedBy Role, now time.Time) error {
	role, err := c.requireParticipant(actorID)
	if err != nil {
		return err
	}
	if validatedBy != RoleOwner && validatedBy != RolePartner {
		return NewError(ErrCodeInvalid, "validated_by must be owner or partner")
	}
	if role != validatedBy {
		return NewError(ErrCodeForbidden, "a party can only validate a step on its own behalf")
	}
	if !ValidStepName(target) {
		return NewError(ErrCodeInvalid, fmt.Sprintf("unknown progress step %q", target))
	}
	if c.Status != StatusAccepted && c.Status != StatusActive {
		return NewError(ErrCodeInvalidState, "progress requires an accepted or active collaboration")
	}

	step := c.step(target)
	if validatedBy == RoleOwner {
		step.OwnerValidated = true
	} else {
		step.PartnerValidated = true
	}
	if notes != "" {
		step.Notes = notes
	}
	at := now
	step.ValidatedAt = &at
	if step.OwnerValidated && step.PartnerValidated {
		step.Completed = true
	}

	who := "le propriétaire"
	if validatedBy == RolePartner {
		who = "le partenaire"
	}
	message := fmt.Sprintf("Étape %s validée par %s", target, who)
	if step.Completed {
		message += " — étape confirmée par les deux parties"
	}
	c.appendActivity(ActivityStatusUpdate, actorID, message, now)
	c.CurrentStep = string(target)
	c.touch(now)
	return nil
}

func (c *Collaboration) step(name StepName) *ProgressStep {
	for i := range c.ProgressSteps {
		if c.ProgressSteps[i].Name == name {
			return &c.ProgressSteps[i]
		}
	}
	return nil
}

// CompletedSteps counts milestones confirmed by both parties.
func (c *Collaboration) CompletedSteps() int {
	var n int
	for i := range c.ProgressSteps {
		if c.ProgressSteps[i].Completed {
			n++
		}
	}
	return n
}
