package models

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeTag(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"fomo", "FOMO"},
		{"  revenge trade ", "REVENGE_TRADE"},
		{"a-grade setup", "A_GRADE_SETUP"},
		{"NY--open", "NY_OPEN"},
		{"already_GOOD", "ALREADY_GOOD"},
		{"___", ""},
		{"", ""},
		{"5m scalp!!", "5M_SCALP"},
		{"news/cpi", "NEWS_CPI"},
	}

	for _, tc := range testCases {
		if got := NormalizeTag(tc.in); got != tc.expected {
			t.Errorf("NormalizeTag(%q) = %q, want %q", tc.in, got, tc.expected)
		}
	}
}

func TestNormalizeTagsDedupes(t *testing.T) {
	got := NormalizeTags([]string{"fomo", "FOMO", " fomo ", "chased", "fomo"})
	want := []string{"FOMO", "CHASED"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeTags[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseFormatTags(t *testing.T) {
	if got := ParseTags(""); got != nil {
		t.Errorf("ParseTags(empty) = %v, want nil", got)
	}
	if got := ParseTags("  ,  ,"); len(got) != 0 {
		t.Errorf("ParseTags(commas only) = %v, want empty", got)
	}

	got := ParseTags("fomo, revenge trade,FOMO")
	if len(got) != 2 || got[0] != "FOMO" || got[1] != "REVENGE_TRADE" {
		t.Errorf("ParseTags = %v, want [FOMO REVENGE_TRADE]", got)
	}

	if s := FormatTags([]string{"late entry", "late entry", "b setup"}); s != "LATE_ENTRY,B_SETUP" {
		t.Errorf("FormatTags = %q, want LATE_ENTRY,B_SETUP", s)
	}
}

func TestTagNormalizationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Normalizing twice is the same as normalizing once.
	properties.Property("NormalizeTag is idempotent", prop.ForAll(
		func(s string) bool {
			once := NormalizeTag(s)
			return NormalizeTag(once) == once
		},
		gen.AnyString(),
	))

	// Output only ever contains A-Z, 0-9 and single underscores.
	properties.Property("NormalizeTag output alphabet is closed", prop.ForAll(
		func(s string) bool {
			n := NormalizeTag(s)
			if strings.Contains(n, "__") {
				return false
			}
			if strings.HasPrefix(n, "_") || strings.HasSuffix(n, "_") {
				return false
			}
			for _, r := range n {
				ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
				if !ok {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	// Parse then format then parse is stable.
	properties.Property("tag CSV round-trip is stable", prop.ForAll(
		func(tags []string) bool {
			first := ParseTags(FormatTags(tags))
			second := ParseTags(FormatTags(first))
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		in       string
		expected Mode
	}{
		{"real", ModeReal},
		{"demo", ModeDemo},
		{"", ModeDemo},
		{"REAL", ModeDemo}, // only the exact lowercase string enforces
		{" real", ModeDemo},
		{"production", ModeDemo},
	}
	for _, tc := range testCases {
		if got := ParseMode(tc.in); got != tc.expected {
			t.Errorf("ParseMode(%q) = %s, want %s", tc.in, got, tc.expected)
		}
	}
}
