package domain

import (
	"strings"
	"testing"
	"time"
)

func TestEnsureContract(t *testing.T) {
	c := acceptedCollab(t)

	if !c.EnsureContract("Bob Durand", "Alice Martin", testNow) {
		t.Fatal("first EnsureContract should report a change")
	}
	text := c.ContractText
	if text == "" {
		t.Fatal("contract text not materialized")
	}
	if c.ContractModified {
		t.Error("default contract should not be flagged as modified")
	}

	if c.EnsureContract("Bob Durand", "Alice Martin", testNow) {
		t.Error("second EnsureContract should be a no-op")
	}
	if c.ContractText != text {
		t.Error("EnsureContract changed an already materialized text")
	}
}

func TestDefaultContractTextDeterministic(t *testing.T) {
	subject := SubjectRef{Kind: SubjectListing, ID: "listing-9"}
	comp := Compensation{Kind: CompensationPercentage, Percentage: 50}

	a := DefaultContractText("Bob", "Alice", subject, comp)
	b := DefaultContractText("Bob", "Alice", subject, comp)
	if a != b {
		t.Fatal("same inputs must render the same contract")
	}
	for _, want := range []string{"Bob", "Alice", "listing-9", comp.Describe()} {
		if !strings.Contains(a, want) {
			t.Errorf("contract missing %q", want)
		}
	}
	if !strings.Contains(DefaultContractText("Bob", "Alice", SubjectRef{Kind: SubjectSearchAd, ID: "s-1"}, comp), "la recherche client") {
		t.Error("search ad contract should describe the search subject")
	}
}

func TestSignActivates(t *testing.T) {
	c := acceptedCollab(t)

	activated, err := c.Sign("owner-1", "Bob", testNow)
	if err != nil || activated {
		t.Fatalf("first signature: activated=%v err=%v", activated, err)
	}
	if !c.Signatures.Owner.Signed || c.Signatures.Partner.Signed {
		t.Fatalf("unexpected ledger after owner signature: %+v", c.Signatures)
	}

	activated, err = c.Sign("partner-1", "Alice", testNow.Add(time.Hour))
	if err != nil || !activated {
		t.Fatalf("second signature: activated=%v err=%v", activated, err)
	}
	if c.Status != StatusActive {
		t.Fatalf("status = %s, want active", c.Status)
	}

	var signing, activation int
	for _, a := range c.Activities {
		switch a.Kind {
		case ActivitySigning:
			signing++
		case ActivityStatusUpdate:
			if strings.Contains(a.Message, "activée") {
				activation++
			}
		}
	}
	if signing != 2 || activation != 1 {
		t.Errorf("activities: signing=%d activation=%d, want 2 and 1", signing, activation)
	}
}

func TestSignIdempotent(t *testing.T) {
	c := acceptedCollab(t)
	if _, err := c.Sign("owner-1", "Bob", testNow); err != nil {
		t.Fatal(err)
	}
	firstAt := *c.Signatures.Owner.SignedAt
	before := len(c.Activities)

	activated, err := c.Sign("owner-1", "Bob", testNow.Add(time.Hour))
	if err != nil || activated {
		t.Fatalf("repeat signature: activated=%v err=%v", activated, err)
	}
	if len(c.Activities) != before {
		t.Error("repeat signature appended an activity")
	}
	if !c.Signatures.Owner.SignedAt.Equal(firstAt) {
		t.Error("repeat signature moved the original timestamp")
	}
}

func TestSignRequiresAccepted(t *testing.T) {
	c := newTestCollab(t)
	if _, err := c.Sign("owner-1", "Bob", testNow); !IsDomainError(err, ErrCodeInvalidState) {
		t.Errorf("sign while pending: got %v, want INVALID_STATE", err)
	}
	if _, err := c.Sign("stranger", "X", testNow); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("stranger sign: got %v, want FORBIDDEN", err)
	}
}

func TestEditContractResetsSignatures(t *testing.T) {
	c := acceptedCollab(t)
	c.EnsureContract("Bob", "Alice", testNow)
	if _, err := c.Sign("owner-1", "Bob", testNow); err != nil {
		t.Fatal(err)
	}

	changed, err := c.EditContract("partner-1", "Texte révisé", "Commission partagée 50/50", testNow)
	if err != nil || !changed {
		t.Fatalf("edit: changed=%v err=%v", changed, err)
	}
	if c.Signatures.Owner.Signed || c.Signatures.Partner.Signed {
		t.Error("edit must reset both signatures")
	}
	if c.Signatures.Owner.SignedAt != nil {
		t.Error("edit must clear signature timestamps")
	}
	if !c.ContractModified || c.ContractUpdatedBy != "partner-1" {
		t.Errorf("edit metadata not recorded: modified=%v by=%s", c.ContractModified, c.ContractUpdatedBy)
	}
	if c.Status != StatusAccepted {
		t.Errorf("status = %s, edit must not change it", c.Status)
	}

	last := c.Activities[len(c.Activities)-1]
	if !strings.Contains(last.Message, "signatures") {
		t.Errorf("reset activity message = %q", last.Message)
	}
}

func TestEditContractNoopOnIdenticalText(t *testing.T) {
	c := acceptedCollab(t)
	c.EnsureContract("Bob", "Alice", testNow)
	if _, err := c.Sign("owner-1", "Bob", testNow); err != nil {
		t.Fatal(err)
	}
	before := len(c.Activities)

	changed, err := c.EditContract("owner-1", c.ContractText, c.AdditionalTerms, testNow)
	if err != nil || changed {
		t.Fatalf("identical edit: changed=%v err=%v", changed, err)
	}
	if !c.Signatures.Owner.Signed {
		t.Error("identical edit must keep existing signatures")
	}
	if len(c.Activities) != before {
		t.Error("identical edit appended an activity")
	}
}

func TestEditContractRequiresAccepted(t *testing.T) {
	c := activeCollab(t)
	if _, err := c.EditContract("owner-1", "new", "", testNow); !IsDomainError(err, ErrCodeInvalidState) {
		t.Errorf("edit while active: got %v, want INVALID_STATE", err)
	}
}

func TestContractView(t *testing.T) {
	c := acceptedCollab(t)
	c.EnsureContract("Bob", "Alice", testNow)

	v := c.View(RoleOwner)
	if !v.CanSign || !v.CanEdit || !v.RequiresBothSignatures {
		t.Errorf("accepted owner view: %+v", v)
	}

	if _, err := c.Sign("owner-1", "Bob", testNow); err != nil {
		t.Fatal(err)
	}
	v = c.View(RoleOwner)
	if v.CanSign {
		t.Error("owner already signed, CanSign must be false")
	}
	if !c.View(RolePartner).CanSign {
		t.Error("partner has not signed, CanSign must be true")
	}
	if c.View(RoleNone).CanSign {
		t.Error("non-participant can never sign")
	}

	if _, err := c.Sign("partner-1", "Alice", testNow); err != nil {
		t.Fatal(err)
	}
	v = c.View(RolePartner)
	if v.CanSign || v.CanEdit || v.RequiresBothSignatures {
		t.Errorf("active view: %+v", v)
	}
	if !v.OwnerSigned || !v.PartnerSigned {
		t.Errorf("signature flags lost in view: %+v", v)
	}
}
