package domain

import (
	"strings"
	"testing"
	"time"
)

func TestAdvanceStepDualValidation(t *testing.T) {
	c := activeCollab(t)

	if err := c.AdvanceStep("owner-1", StepVisiteProgrammee, "RDV samedi 14h", RoleOwner, testNow); err != nil {
		t.Fatalf("owner validation: %v", err)
	}
	step := findStep(t, c, StepVisiteProgrammee)
	if step.Completed {
		t.Fatal("step completed after a single validation")
	}
	if !step.OwnerValidated || step.PartnerValidated {
		t.Fatalf("flags after owner validation: %+v", step)
	}
	if step.Notes != "RDV samedi 14h" {
		t.Errorf("notes = %q", step.Notes)
	}
	if c.CompletedSteps() != 0 {
		t.Errorf("completed count = %d, want 0", c.CompletedSteps())
	}

	if err := c.AdvanceStep("partner-1", StepVisiteProgrammee, "", RolePartner, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("partner validation: %v", err)
	}
	step = findStep(t, c, StepVisiteProgrammee)
	if !step.Completed {
		t.Fatal("step not completed after both validations")
	}
	if step.Notes != "RDV samedi 14h" {
		t.Errorf("empty notes overwrote earlier ones: %q", step.Notes)
	}
	if c.CompletedSteps() != 1 {
		t.Errorf("completed count = %d, want 1", c.CompletedSteps())
	}
	if c.CurrentStep != string(StepVisiteProgrammee) {
		t.Errorf("current step = %q", c.CurrentStep)
	}

	last := c.Activities[len(c.Activities)-1]
	if !strings.Contains(last.Message, "les deux parties") {
		t.Errorf("dual confirmation not reflected in activity: %q", last.Message)
	}
}

func TestAdvanceStepIdempotent(t *testing.T) {
	c := activeCollab(t)
	if err := c.AdvanceStep("owner-1", StepPremierContact, "", RoleOwner, testNow); err != nil {
		t.Fatal(err)
	}
	if err := c.AdvanceStep("owner-1", StepPremierContact, "", RoleOwner, testNow); err != nil {
		t.Fatalf("repeat validation must succeed: %v", err)
	}
	step := findStep(t, c, StepPremierContact)
	if !step.OwnerValidated || step.Completed {
		t.Fatalf("flags after repeat: %+v", step)
	}
}

func TestAdvanceStepRoleForgery(t *testing.T) {
	c := activeCollab(t)
	if err := c.AdvanceStep("partner-1", StepPremierContact, "", RoleOwner, testNow); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("partner claiming owner validation: got %v, want FORBIDDEN", err)
	}
	if err := c.AdvanceStep("owner-1", StepPremierContact, "", RoleNone, testNow); !IsDomainError(err, ErrCodeInvalid) {
		t.Errorf("validated_by none: got %v, want INVALID", err)
	}
}

func TestAdvanceStepUnknownName(t *testing.T) {
	c := activeCollab(t)
	if err := c.AdvanceStep("owner-1", StepName("etape_inconnue"), "", RoleOwner, testNow); !IsDomainError(err, ErrCodeInvalid) {
		t.Errorf("unknown step: got %v, want INVALID", err)
	}
}

func TestAdvanceStepAllowedWhileAccepted(t *testing.T) {
	c := acceptedCollab(t)
	if err := c.AdvanceStep("owner-1", StepAccordCollaboration, "", RoleOwner, testNow); err != nil {
		t.Fatalf("advance while accepted: %v", err)
	}

	pending := newTestCollab(t)
	if err := pending.AdvanceStep("owner-1", StepAccordCollaboration, "", RoleOwner, testNow); !IsDomainError(err, ErrCodeInvalidState) {
		t.Errorf("advance while pending: got %v, want INVALID_STATE", err)
	}
}

func TestAdvanceStepAnyOrder(t *testing.T) {
	c := activeCollab(t)
	// Milestones carry no ordering constraint: the notary signature can be
	// attested before the first contact.
	if err := c.AdvanceStep("owner-1", StepSignatureNotaire, "", RoleOwner, testNow); err != nil {
		t.Fatalf("out-of-order validation: %v", err)
	}
}

func findStep(t *testing.T, c *Collaboration, name StepName) ProgressStep {
	t.Helper()
	for _, s := range c.ProgressSteps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("step %s not found", name)
	return ProgressStep{}
}
