package lib

import (
	"regexp"
	"testing"
)

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^PF-[A-HJ-NP-Z2-9]{8}$`)
	seen := make(map[string]struct{})

	for range 500 {
		n := GenerateOrderNumber()
		if !pattern.MatchString(n) {
			t.Fatalf("order number %q does not match %s", n, pattern)
		}
		seen[n] = struct{}{}
	}

	if len(seen) < 495 {
		t.Fatalf("too many collisions: %d unique of 500", len(seen))
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Bleu Nuit":       "bleu-nuit",
		"  Oud & Amber  ": "oud-amber",
		"N°5 -- Eau":      "n5-eau",
		"!!!":             "product",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
