package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("ParseRunID(%q) returned error: %v", id, err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	if _, err := ParseRunID(""); err == nil {
		t.Error("Expected error for empty run ID")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("Expected error for malformed run ID")
	}
}

func TestErrorHelpers(t *testing.T) {
	err := NewMissingColumnError("metadata", "structure_color", "survival_days")
	if !IsSchemaError(err) {
		t.Errorf("Expected missing column error to be a schema error: %v", err)
	}
	if got := err.Error(); got != "schema error: missing column: metadata table lacks structure_color, survival_days" {
		t.Errorf("Unexpected message: %s", got)
	}

	if !IsAnalysisError(NewInsufficientGroupsError("structure_color", 1)) {
		t.Error("Expected insufficient groups error to be an analysis error")
	}
	if !IsAnalysisError(NewDegenerateStratificationError("Gene", 5)) {
		t.Error("Expected degenerate stratification error to be an analysis error")
	}
	if IsAnalysisError(NewRowCountMismatchError(3, 4)) {
		t.Error("Row count mismatch is a schema error, not an analysis error")
	}
}
