package postgres

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/immolink/backend/domain"
)

type stubRow struct {
	values []interface{}
}

func (r stubRow) Scan(dest ...interface{}) error {
	for i := range dest {
		if i >= len(r.values) || r.values[i] == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func collaborationRow(t *testing.T, progressSteps []byte) stubRow {
	t.Helper()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	comp, err := json.Marshal(domain.Compensation{Kind: domain.CompensationPercentage, Percentage: 30})
	if err != nil {
		t.Fatal(err)
	}
	sigs, err := json.Marshal(domain.Signatures{})
	if err != nil {
		t.Fatal(err)
	}
	return stubRow{values: []interface{}{
		"collab-1",
		domain.SubjectListing,
		"listing-1",
		"owner-1",
		"partner-1",
		domain.StatusPending,
		"proposition envoyée",
		comp,
		progressSteps,
		"",
		"",
		false,
		"",
		nil,
		sigs,
		nil,
		nil,
		now,
		now,
		1,
	}}
}

func TestScanCollaboration(t *testing.T) {
	steps, err := json.Marshal(domain.NewProgressSteps())
	if err != nil {
		t.Fatal(err)
	}
	c, err := scanCollaboration(collaborationRow(t, steps))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(c.ProgressSteps) != 10 {
		t.Errorf("progress steps = %d, want 10", len(c.ProgressSteps))
	}
	if c.Compensation.Percentage != 30 || c.Revision != 1 {
		t.Errorf("scanned aggregate = %+v", c)
	}
}

func TestScanCollaborationCorruptColumn(t *testing.T) {
	// A corrupt JSONB payload must fail the read, not hand back an
	// aggregate with an empty checklist.
	if _, err := scanCollaboration(collaborationRow(t, []byte("{not json"))); !domain.IsDomainError(err, domain.ErrCodeInternal) {
		t.Fatalf("corrupt progress_steps: got %v, want INTERNAL", err)
	}
}
