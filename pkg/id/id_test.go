package id

import (
	"sort"
	"testing"
)

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := New()
		if len(s) != 26 {
			t.Fatalf("ULID length = %d, want 26", len(s))
		}
		if seen[s] {
			t.Fatalf("duplicate ULID %s", s)
		}
		seen[s] = true
	}
}

func TestNewSorted(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("ULIDs generated in sequence are not lexicographically sorted")
	}
}

func TestValid(t *testing.T) {
	if !Valid(New()) {
		t.Error("freshly generated ULID failed validation")
	}
	if Valid("not-a-ulid") {
		t.Error("garbage string passed validation")
	}
	if Valid("") {
		t.Error("empty string passed validation")
	}
}
