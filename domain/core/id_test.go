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

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	id := NewID()
	runID, err := ParseRunID(" " + id.String() + " ")
	if err != nil {
		t.Fatalf("Expected valid run ID, got error: %v", err)
	}
	if runID.String() != id.String() {
		t.Errorf("Expected %s, got %s", id, runID)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid"} {
		if _, err := ParseRunID(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

// TestComputeMatrixFingerprint tests that variable order does not change the hash
func TestComputeMatrixFingerprint(t *testing.T) {
	values := map[string][]int{"A": {1, 0}, "B": {0, 1}}
	value := func(row int, v string) int { return values[v][row] }

	h1 := ComputeMatrixFingerprint([]string{"c1", "c2"}, []string{"A", "B"}, value)
	h2 := ComputeMatrixFingerprint([]string{"c1", "c2"}, []string{"B", "A"}, value)
	if h1 != h2 {
		t.Errorf("Expected identical fingerprints, got %s and %s", h1, h2)
	}

	values["A"][0] = 0
	h3 := ComputeMatrixFingerprint([]string{"c1", "c2"}, []string{"A", "B"}, value)
	if h3 == h1 {
		t.Error("Expected fingerprint to change with a cell value")
	}
	if len(h1.Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", h1.Short())
	}
}
