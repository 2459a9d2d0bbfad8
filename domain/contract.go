package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContractView is the derived read model served alongside the contract text.
// It is computed from aggregate state and never stored.
type ContractView struct {
	ContractText           string     `json:"contract_text"`
	AdditionalTerms        string     `json:"additional_terms"`
	ContractModified       bool       `json:"contract_modified"`
	OwnerSigned            bool       `json:"owner_signed"`
	OwnerSignedAt          *time.Time `json:"owner_signed_at,omitempty"`
	PartnerSigned          bool       `json:"partner_signed"`
	PartnerSignedAt        *time.Time `json:"partner_signed_at,omitempty"`
	CanSign                bool       `json:"can_sign"`
	CanEdit                bool       `json:"can_edit"`
	RequiresBothSignatures bool       `json:"requires_both_signatures"`
}

// View computes the contract read model for the given viewer role.
func (c *Collaboration) View(role Role) ContractView {
	view := ContractView{
		ContractText:           c.ContractText,
		AdditionalTerms:        c.AdditionalTerms,
		ContractModified:       c.ContractModified,
		OwnerSigned:            c.Signatures.Owner.Signed,
		OwnerSignedAt:          c.Signatures.Owner.SignedAt,
		PartnerSigned:          c.Signatures.Partner.Signed,
		PartnerSignedAt:        c.Signatures.Partner.SignedAt,
		CanEdit:                c.Status == StatusAccepted,
		RequiresBothSignatures: !c.Signatures.Complete(),
	}
	if c.Status == StatusAccepted && (role == RoleOwner || role == RolePartner) {
		view.CanSign = !c.Signatures.entry(role).Signed
	}
	return view
}

// EnsureContract lazily materializes the default contract text. It reports
// whether the aggregate changed so callers know a persist is needed. Calling
// it twice without edits yields the same stored text.
func (c *Collaboration) EnsureContract(ownerName, partnerName string, now time.Time) bool {
	if c.ContractText != "" {
		return false
	}
	c.ContractText = DefaultContractText(ownerName, partnerName, c.Subject, c.Compensation)
	c.ContractModified = false
	c.touch(now)
	return true
}

// EditContract replaces the contract text and the additional terms. The
// contract is only editable in the window between acceptance and full
// signature; once active it is binding. A substantive change invalidates
// both signatures in the same atomic update.
func (c *Collaboration) EditContract(actorID, text, terms string, now time.Time) (bool, error) {
	if _, err := c.requireParticipant(actorID); err != nil {
		return false, err
	}
	if c.Status != StatusAccepted {
		return false, NewError(ErrCodeInvalidState, "contract is only editable while the collaboration is accepted")
	}

	if text == c.ContractText && terms == c.AdditionalTerms {
		return false, nil
	}

	c.ContractText = text
	c.AdditionalTerms = terms
	c.ContractModified = true
	c.ContractUpdatedBy = actorID
	at := now
	c.ContractUpdatedAt = &at
	c.Signatures.Owner = Signature{}
	c.Signatures.Partner = Signature{}
	c.appendActivity(ActivityNote, actorID, "Contrat modifié, les signatures précédentes sont réinitialisées", now)
	c.touch(now)
	return true, nil
}

// Sign records the acting party's signature on the current contract text.
// Signing twice is idempotent: no duplicate activity, same timestamp. When
// the second signature lands the collaboration atomically becomes active;
// the returned flag reports that transition.
func (c *Collaboration) Sign(actorID, actorLabel string, now time.Time) (bool, error) {
	role, err := c.requireParticipant(actorID)
	if err != nil {
		return false, err
	}
	if c.Status != StatusAccepted {
		return false, NewError(ErrCodeInvalidState, "signing requires an accepted collaboration")
	}

	entry := c.Signatures.entry(role)
	if entry.Signed {
		return false, nil
	}
	entry.Signed = true
	at := now
	entry.SignedAt = &at
	c.appendActivity(ActivitySigning, actorID, fmt.Sprintf("Contrat signé par %s", actorLabel), now)

	activated := c.Signatures.Complete()
	if activated {
		c.Status = StatusActive
		c.CurrentStep = "collaboration active"
		c.appendActivity(ActivityStatusUpdate, actorID, "Contrat signé par les deux parties, collaboration activée", now)
	}
	c.touch(now)
	return activated, nil
}

// DefaultContractText renders the bilingual default agreement from the party
// names, the subject and the agreed compensation. The rendering is
// deterministic: same inputs, same text.
func DefaultContractText(ownerName, partnerName string, subject SubjectRef, comp Compensation) string {
	subjectFR := "l'annonce immobilière"
	subjectEN := "the property listing"
	if subject.Kind == SubjectSearchAd {
		subjectFR = "la recherche client"
		subjectEN = "the client search"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONVENTION DE COLLABORATION / COLLABORATION AGREEMENT\n\n")
	fmt.Fprintf(&b, "Entre %s (le « Propriétaire ») et %s (le « Partenaire »),\n", ownerName, partnerName)
	fmt.Fprintf(&b, "Between %s (the \"Owner\") and %s (the \"Partner\"),\n\n", ownerName, partnerName)
	fmt.Fprintf(&b, "Objet : collaboration portant sur %s (réf. %s).\n", subjectFR, subject.ID)
	fmt.Fprintf(&b, "Purpose: collaboration regarding %s (ref. %s).\n\n", subjectEN, subject.ID)
	fmt.Fprintf(&b, "Article 1 — Rémunération / Compensation\n")
	fmt.Fprintf(&b, "Le Partenaire percevra : %s.\n", comp.Describe())
	fmt.Fprintf(&b, "The Partner shall receive: %s.\n\n", comp.Describe())
	fmt.Fprintf(&b, "Article 2 — Engagements / Undertakings\n")
	fmt.Fprintf(&b, "Chaque partie valide les étapes de l'affaire de bonne foi ; une étape n'est acquise qu'après confirmation des deux parties.\n")
	fmt.Fprintf(&b, "Each party validates deal milestones in good faith; a milestone counts only once both parties have confirmed it.\n\n")
	fmt.Fprintf(&b, "Article 3 — Signature\n")
	fmt.Fprintf(&b, "La présente convention prend effet à la signature des deux parties. Toute modification du texte invalide les signatures déjà apposées.\n")
	fmt.Fprintf(&b, "This agreement takes effect upon signature by both parties. Any change to the text invalidates signatures already given.\n")
	return b.String()
}
